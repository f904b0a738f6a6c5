// Package repoloader turns a remote code repository into line-window chunks.
package repoloader

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/pkg/apperr"
)

// WindowLines is the number of lines per code chunk.
const WindowLines = 100

// Cloner fetches a repository into an existing empty directory.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// GitCloner shells out to git for a depth-1 clone.
type GitCloner struct {
	Binary string
}

func (g GitCloner) Clone(ctx context.Context, url, dir string) error {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, "clone", "--depth", "1", "--quiet", url, dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s: %w: %s", url, err, strings.TrimSpace(string(out)))
	}
	return nil
}

type LoaderConfig struct {
	Cloner Cloner
	// TempDir is the parent of per-load checkout directories. Empty means
	// os.TempDir.
	TempDir string
	// OnFile is called for every file that produced chunks.
	OnFile func(relPath string, chunks int)
}

type Loader struct {
	config LoaderConfig
}

func NewWithConfig(config LoaderConfig) *Loader {
	if config.Cloner == nil {
		config.Cloner = GitCloner{}
	}
	return &Loader{config: config}
}

func New() *Loader {
	return NewWithConfig(LoaderConfig{})
}

// Result is the outcome of loading one repository.
type Result struct {
	Ref     Ref
	Chunks  []models.Chunk
	Files   int
	Skipped int
}

// Load validates rawURL, clones it into a private temporary directory and
// chunks every eligible file. The checkout is removed before Load returns,
// whether or not it succeeded.
func (l *Loader) Load(ctx context.Context, workspaceID, rawURL string) (*Result, error) {
	ref, err := ParseRef(rawURL)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(l.config.TempDir, "sourcebook-")
	if err != nil {
		return nil, apperr.Upstream("repoloader", fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Failed to clean up %s: %v", dir, err)
		}
	}()

	log.Printf("Cloning %s to %s...", ref.URL, dir)
	if err := l.config.Cloner.Clone(ctx, ref.URL, dir); err != nil {
		return nil, apperr.Upstream("repoloader", fmt.Errorf("failed to clone repository: %w", err))
	}

	result, err := l.walk(ctx, dir, workspaceID, ref)
	if err != nil {
		return nil, apperr.Upstream("repoloader", err)
	}

	log.Printf("Extracted %d chunks from %d files of %s (%d skipped)",
		len(result.Chunks), result.Files, ref.Label(), result.Skipped)
	return result, nil
}

func (l *Loader) walk(ctx context.Context, root, workspaceID string, ref Ref) (*Result, error) {
	result := &Result{Ref: ref}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			log.Printf("Skipping unreadable path %s: %v", path, walkErr)
			result.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !isEligible(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Printf("Failed to stat %s: %v", rel, err)
			result.Skipped++
			return nil
		}
		if info.Size() > MaxFileSize {
			log.Printf("Skipping large file: %s (%dKB)", rel, info.Size()/1024)
			result.Skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Failed to read %s: %v", rel, err)
			result.Skipped++
			return nil
		}

		// empty or binary
		if len(data) == 0 || bytes.IndexByte(data, 0) >= 0 {
			result.Skipped++
			return nil
		}

		windows := SplitLines(string(data), WindowLines)
		for _, w := range windows {
			result.Chunks = append(result.Chunks, models.Chunk{
				WorkspaceID: workspaceID,
				Sequence:    len(result.Chunks),
				Text:        w.Text,
				SourceType:  models.SourceTypeGitHub,
				SourceLabel: ref.Label(),
				FilePath:    rel,
				LineStart:   w.Start,
				LineEnd:     w.End,
				RepoLabel:   ref.Label(),
			})
		}
		result.Files++

		if l.config.OnFile != nil {
			l.config.OnFile(rel, len(windows))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	return result, nil
}

// Window is a run of lines with 1-based inclusive bounds.
type Window struct {
	Start int
	End   int
	Text  string
}

// SplitLines cuts content into consecutive windows of size lines; the last
// window may be shorter. A trailing newline terminates the final line and
// does not start a new one.
func SplitLines(content string, size int) []Window {
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")

	windows := make([]Window, 0, (len(lines)+size-1)/size)
	for i := 0; i < len(lines); i += size {
		end := i + size
		if end > len(lines) {
			end = len(lines)
		}
		windows = append(windows, Window{
			Start: i + 1,
			End:   end,
			Text:  strings.Join(lines[i:end], "\n"),
		})
	}
	return windows
}
