package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds application configuration.
type Config struct {
	ClaudeTimeout int `json:"claudeTimeoutMs"`
	PollInterval  int `json:"pollIntervalMs"`

	PollEnabled           bool     `json:"pollEnabled"`
	NotificationsEnabled  bool     `json:"notificationsEnabled"`
	NotificationThreshold int      `json:"notificationThreshold"`
	StreamCheckpointMs    int      `json:"streamCheckpointMs"`
	DefaultReviewAction   string   `json:"defaultReviewAction"`
	DefaultPRTab          string   `json:"defaultPRTab"`
	CollapseThreshold     int      `json:"collapseThreshold"`
	StartCollapsed        []string `json:"startCollapsed"`
	PRFetchLimit          int      `json:"prFetchLimit"`
	AnalysisMaxTurns      int      `json:"analysisMaxTurns"`
	ChatMaxTurns          int      `json:"chatMaxTurns"`
	MaxPromptTokens       int      `json:"maxPromptTokens"`
	MaxChatHistory        int      `json:"maxChatHistory"`

	// Async data layer / local watcher
	CacheTTLSecs      int  `json:"cacheTtlSecs"`
	WatcherDebounceMs int  `json:"watcherDebounceMs"`
	AutoFocus         bool `json:"autoFocus"`

	// Editor fallback chain: config value, then $VISUAL, then $EDITOR, then vi.
	Editor string `json:"editor"`

	// Rally orchestrator
	RallyAgent         string   `json:"rallyAgent"` // "cli" (Agent A) or "file" (Agent B)
	RallyAgentAPath    string   `json:"rallyAgentAPath"`
	RallyAgentBPath    string   `json:"rallyAgentBPath"`
	RallyMaxIterations int      `json:"rallyMaxIterations"`
	RallyTimeoutSecs   int      `json:"rallyTimeoutSecs"`
	RallyAllowedTools  []string `json:"rallyAllowedTools"`
}

// Defaults
const (
	DefaultClaudeTimeoutMs        = 120000
	DefaultPollIntervalMs         = 60000
	DefaultNotificationThreshold  = 5
	DefaultStreamCheckpointMs     = 150
	DefaultCollapseThreshold      = 120
	DefaultPRFetchLimit           = 100
	DefaultAnalysisMaxTurns       = 30
	DefaultChatMaxTurns           = 5
	DefaultMaxPromptTokens        = 100000
	DefaultMaxChatHistory         = 20
	DefaultCacheTTLSecs           = 300
	DefaultWatcherDebounceMs      = 150
	DefaultRallyMaxIterations     = 10
	DefaultRallyTimeoutSecs       = 600
	DefaultRallyAgent             = "cli"
)

// DefaultConfigDir returns the platform-appropriate config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "gh-rally")
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".config", "gh-rally")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "gh-rally")
		}
		return filepath.Join(home, ".config", "gh-rally")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "gh-rally")
		}
		return filepath.Join(home, ".config", "gh-rally")
	}
}

// Load reads the config file, returning defaults for missing fields.
func Load() (*Config, error) {
	configPath := filepath.Join(DefaultConfigDir(), "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	dir := DefaultConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(dir, "config.json")
	tmpPath := configPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// AnalysesCacheDir returns the path to the analysis cache directory.
func AnalysesCacheDir() string {
	return filepath.Join(DefaultConfigDir(), "analyses")
}

// ChatCacheDir returns the path to the chat session cache directory.
func ChatCacheDir() string {
	return filepath.Join(DefaultConfigDir(), "chats")
}

// PromptsDir returns the path to the custom prompts directory.
func PromptsDir() string {
	return filepath.Join(DefaultConfigDir(), "prompts")
}

// DiffCacheDir returns the path to the PR diff snapshot cache directory,
// used by the loader's cache-hit-then-revalidate data path.
func DiffCacheDir() string {
	return filepath.Join(DefaultConfigDir(), "diffs")
}

// GetRepoPrompt loads a custom prompt file for a repository, if it exists.
func GetRepoPrompt(owner, repo string) (string, error) {
	path := filepath.Join(PromptsDir(), fmt.Sprintf("%s_%s.md", owner, repo))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read repo prompt: %w", err)
	}
	return string(data), nil
}

// ClaudeTimeoutDuration returns the configured claude timeout as a time.Duration.
func (c *Config) ClaudeTimeoutDuration() time.Duration {
	return time.Duration(c.ClaudeTimeout) * time.Millisecond
}

// PollIntervalDuration returns the configured background poll interval as a time.Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

func defaults() *Config {
	return &Config{
		ClaudeTimeout:         DefaultClaudeTimeoutMs,
		PollInterval:          DefaultPollIntervalMs,
		PollEnabled:           false,
		NotificationsEnabled:  false,
		NotificationThreshold: DefaultNotificationThreshold,
		StreamCheckpointMs:    DefaultStreamCheckpointMs,
		DefaultReviewAction:   "comment",
		DefaultPRTab:          "review",
		CollapseThreshold:     DefaultCollapseThreshold,
		PRFetchLimit:          DefaultPRFetchLimit,
		AnalysisMaxTurns:      DefaultAnalysisMaxTurns,
		ChatMaxTurns:          DefaultChatMaxTurns,
		MaxPromptTokens:       DefaultMaxPromptTokens,
		MaxChatHistory:        DefaultMaxChatHistory,
		CacheTTLSecs:          DefaultCacheTTLSecs,
		WatcherDebounceMs:     DefaultWatcherDebounceMs,
		RallyAgent:            DefaultRallyAgent,
		RallyMaxIterations:    DefaultRallyMaxIterations,
		RallyTimeoutSecs:      DefaultRallyTimeoutSecs,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ClaudeTimeout == 0 {
		cfg.ClaudeTimeout = DefaultClaudeTimeoutMs
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollIntervalMs
	}
	if cfg.NotificationThreshold == 0 {
		cfg.NotificationThreshold = DefaultNotificationThreshold
	}
	if cfg.StreamCheckpointMs == 0 {
		cfg.StreamCheckpointMs = DefaultStreamCheckpointMs
	}
	if cfg.DefaultReviewAction == "" {
		cfg.DefaultReviewAction = "comment"
	}
	if cfg.DefaultPRTab == "" {
		cfg.DefaultPRTab = "review"
	}
	if cfg.CollapseThreshold == 0 {
		cfg.CollapseThreshold = DefaultCollapseThreshold
	}
	if cfg.PRFetchLimit == 0 {
		cfg.PRFetchLimit = DefaultPRFetchLimit
	}
	if cfg.AnalysisMaxTurns == 0 {
		cfg.AnalysisMaxTurns = DefaultAnalysisMaxTurns
	}
	if cfg.ChatMaxTurns == 0 {
		cfg.ChatMaxTurns = DefaultChatMaxTurns
	}
	if cfg.MaxPromptTokens == 0 {
		cfg.MaxPromptTokens = DefaultMaxPromptTokens
	}
	if cfg.MaxChatHistory == 0 {
		cfg.MaxChatHistory = DefaultMaxChatHistory
	}
	if cfg.CacheTTLSecs == 0 {
		cfg.CacheTTLSecs = DefaultCacheTTLSecs
	}
	if cfg.WatcherDebounceMs == 0 {
		cfg.WatcherDebounceMs = DefaultWatcherDebounceMs
	}
	if cfg.RallyAgent == "" {
		cfg.RallyAgent = DefaultRallyAgent
	}
	if cfg.RallyMaxIterations == 0 {
		cfg.RallyMaxIterations = DefaultRallyMaxIterations
	}
	if cfg.RallyTimeoutSecs == 0 {
		cfg.RallyTimeoutSecs = DefaultRallyTimeoutSecs
	}
	cfg.RallyAgentAPath = expandHome(cfg.RallyAgentAPath)
	cfg.RallyAgentBPath = expandHome(cfg.RallyAgentBPath)
}

// expandHome resolves a leading "~/" against the user's home directory.
// Anything else, including a bare "~", passes through unchanged.
func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// CacheTTLDuration returns the configured PR/comment cache TTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// WatcherDebounceDuration returns the configured local-diff watcher debounce window.
func (c *Config) WatcherDebounceDuration() time.Duration {
	return time.Duration(c.WatcherDebounceMs) * time.Millisecond
}

// RallySessionsDir returns the path to persisted rally session storage.
func RallySessionsDir() string {
	return filepath.Join(DefaultConfigDir(), "rally")
}
