package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// DownloadTool fetches a URL into the workspace and reports where it landed.
type DownloadTool struct {
	Root      string
	UserAgent string

	lastMeta map[string]any
}

func NewDownloadTool(root string) *DownloadTool {
	absRoot, _ := filepath.Abs(root)
	return &DownloadTool{
		Root:      absRoot,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

func (d *DownloadTool) Name() string {
	return "download"
}

func (d *DownloadTool) Description() string {
	return "Download a file from a URL into the local workspace."
}

func (d *DownloadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL of the file to download",
			},
			"filename": map[string]any{
				"type":        "string",
				"description": "Optional target filename; derived from the URL when omitted",
			},
		},
		"required": []string{"url"},
	}
}

// ResultMetadata reports path, size and content type of the last download.
func (d *DownloadTool) ResultMetadata() map[string]any {
	return d.lastMeta
}

func (d *DownloadTool) Execute(ctx context.Context, input string) (any, error) {
	var args struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	d.lastMeta = nil

	name := args.Filename
	if name == "" {
		name = path.Base(args.URL)
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("download_%d", time.Now().Unix())
	}

	targetPath := filepath.Join(d.Root, name)
	rel, err := filepath.Rel(d.Root, targetPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("unsafe path attempt: %s", name)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	req, err := http.NewRequestWithContext(ctx, "GET", args.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.Root, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %v", err)
	}
	f, err := os.Create(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer f.Close()

	size, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}

	d.lastMeta = map[string]any{
		"path":         targetPath,
		"size":         size,
		"content_type": resp.Header.Get("Content-Type"),
	}
	return fmt.Sprintf("Downloaded %s to %s (%d bytes)", args.URL, targetPath, size), nil
}
