// Command ghrally is an interactive terminal client for reviewing pull
// requests, with an optional dual-agent "rally" loop that drives a reviewer
// and a reviewee agent through iterative review/fix cycles.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/shhac/gh-rally/internal/config"
	"github.com/shhac/gh-rally/internal/forge"
	"github.com/shhac/gh-rally/internal/rally"
	"github.com/shhac/gh-rally/internal/ui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exit codes, per the CLI surface's contract
const (
	exitClean = 0
	exitSetup = 1
	exitUsage = 2
)

type cliArgs struct {
	repo       string
	pr         int
	refresh    bool
	cacheTTL   int
	aiRally    bool
	workingDir string
	local      bool
	autoFocus  bool
	demo       bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version":
			printVersion(false)
			return exitClean
		case "-v":
			printVersion(true)
			return exitClean
		case "init":
			return runInit(args[1:])
		case "clean":
			return runClean(args[1:])
		}
	}

	parsed, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gh-rally: %v\n", err)
		return exitUsage
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "gh-rally: stdin/stdout must be a terminal")
		return exitSetup
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gh-rally: failed to load configuration: %v\n", err)
		return exitSetup
	}
	if parsed.cacheTTL > 0 {
		cfg.CacheTTLSecs = parsed.cacheTTL
	}
	if parsed.autoFocus {
		cfg.AutoFocus = true
	}

	opts, code := buildAppOptions(parsed, cfg)
	if code != exitClean {
		return code
	}

	p := tea.NewProgram(ui.NewApp(opts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitSetup
	}
	return exitClean
}

// buildAppOptions resolves the demo/local/remote client choice and any
// initial-PR preselection, performing the forge client handshake (and its
// possible setup failure) here, before any tea.Program exists.
func buildAppOptions(parsed cliArgs, cfg *config.Config) ([]ui.AppOption, int) {
	var opts []ui.AppOption

	switch {
	case parsed.demo:
		opts = append(opts, ui.WithDemo())
	case parsed.local:
		dir := parsed.workingDir
		if dir == "" {
			dir = "."
		}
		opts = append(opts, ui.WithLocalDiff(dir))
	default:
		client, err := forge.NewClient()
		if err != nil {
			fmt.Fprintf(os.Stderr, "gh-rally: %v\n", err)
			return nil, exitSetup
		}
		opts = append(opts, ui.WithClient(client))
	}

	if parsed.repo != "" || parsed.pr != 0 {
		owner, repoName := splitRepo(parsed.repo)
		opts = append(opts, ui.WithInitialPR(owner, repoName, parsed.pr))
	}
	if parsed.autoFocus || cfg.AutoFocus {
		opts = append(opts, ui.WithAutoFocus())
	}
	if parsed.workingDir != "" && !parsed.local {
		opts = append(opts, ui.WithWorkingDir(parsed.workingDir))
	}
	if parsed.aiRally {
		opts = append(opts, ui.WithAIRally())
	}
	if parsed.refresh {
		opts = append(opts, ui.WithForceRefresh())
	}

	return opts, exitClean
}

func splitRepo(repo string) (owner, name string) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 {
		return "", repo
	}
	return parts[0], parts[1]
}

func parseArgs(args []string) (cliArgs, error) {
	var out cliArgs
	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}

	for ; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--repo":
			v, err := next(arg)
			if err != nil {
				return out, err
			}
			out.repo = v
		case "--pr":
			v, err := next(arg)
			if err != nil {
				return out, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return out, fmt.Errorf("--pr expects an integer, got %q", v)
			}
			out.pr = n
		case "--refresh":
			out.refresh = true
		case "--cache-ttl":
			v, err := next(arg)
			if err != nil {
				return out, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return out, fmt.Errorf("--cache-ttl expects an integer, got %q", v)
			}
			out.cacheTTL = n
		case "--ai-rally":
			out.aiRally = true
		case "--working-dir":
			v, err := next(arg)
			if err != nil {
				return out, err
			}
			out.workingDir = v
		case "--local":
			out.local = true
		case "--auto-focus":
			out.autoFocus = true
		case "--demo":
			out.demo = true
		default:
			return out, fmt.Errorf("unrecognized argument %q", arg)
		}
	}
	return out, nil
}

func printVersion(full bool) {
	if !full {
		fmt.Printf("gh-rally %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	fmt.Printf("gh-rally %s\n", version)
	fmt.Printf("  commit: %s\n", commit)
	fmt.Printf("  built:  %s\n", date)
	fmt.Printf("  go:     %s\n", runtime.Version())
	fmt.Printf("  os:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// runInit writes default configuration and prompt templates into the user
// config directory. With --force it overwrites an existing config.json;
// without it, an existing config.json is left untouched.
func runInit(args []string) int {
	force := false
	for _, a := range args {
		switch a {
		case "--force":
			force = true
		default:
			fmt.Fprintf(os.Stderr, "gh-rally: init: unrecognized argument %q\n", a)
			return exitUsage
		}
	}

	configPath := filepath.Join(config.DefaultConfigDir(), "config.json")
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Printf("gh-rally: configuration already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		if force {
			// Drop the existing file so Load returns defaults, not the old settings.
			if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "gh-rally: init: %v\n", err)
				return exitSetup
			}
		}
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "gh-rally: init: %v\n", err)
			return exitSetup
		}
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "gh-rally: init: failed to write configuration: %v\n", err)
			return exitSetup
		}
		fmt.Printf("gh-rally: wrote default configuration to %s\n", configPath)
	}

	if err := writePromptTemplates(force); err != nil {
		fmt.Fprintf(os.Stderr, "gh-rally: init: %v\n", err)
		return exitSetup
	}
	return exitClean
}

func writePromptTemplates(force bool) error {
	dir := config.PromptsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
	}

	templates := map[string]string{
		"reviewer.md": rally.DefaultReviewerPrompt,
		"reviewee.md": rally.DefaultRevieweePrompt,
	}
	for name, content := range templates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	fmt.Printf("gh-rally: wrote default prompt templates to %s\n", dir)
	return nil
}

// runClean removes all persisted rally session storage.
func runClean(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "gh-rally: clean: unrecognized argument %q\n", args[0])
		return exitUsage
	}
	dir := config.RallySessionsDir()
	if err := os.RemoveAll(dir); err != nil {
		fmt.Fprintf(os.Stderr, "gh-rally: clean: %v\n", err)
		return exitSetup
	}
	fmt.Printf("gh-rally: removed rally session storage at %s\n", dir)
	return exitClean
}
