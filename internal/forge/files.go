package forge

import (
	"context"
	"fmt"
)

// ghPRFile is the JSON shape for a single entry of the pulls/files API.
type ghPRFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

// GetPRFiles returns all changed files in a PR with their patches.
func (c *GHClient) GetPRFiles(ctx context.Context, owner, repo string, number int) ([]PRFile, error) {
	var raw []ghPRFile
	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/files", owner, repo, number)
	if err := c.ghJSON(ctx, &raw, "api", endpoint, "--paginate"); err != nil {
		return nil, fmt.Errorf("failed to list files for PR #%d: %w", number, err)
	}

	files := make([]PRFile, 0, len(raw))
	for _, f := range raw {
		files = append(files, PRFile{
			Filename:  f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Patch:     f.Patch,
		})
	}
	return files, nil
}
