package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/xhad/sourcebook/pkg/ingest"
	"github.com/xhad/sourcebook/pkg/processor"
)

var (
	ingestWorkspace string
	ingestGitHub    string
	ingestText      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add a GitHub repository, files or text to a workspace",
	Long: `Adds one source to a workspace. When several are given only the first
of --github, the file arguments and --text is used.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestWorkspace, "workspace", "w", "", "Workspace ID (required)")
	ingestCmd.Flags().StringVar(&ingestGitHub, "github", "", "GitHub repository URL")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "Raw text to ingest")
	_ = ingestCmd.MarkFlagRequired("workspace")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := ingest.Request{
		WorkspaceID: ingestWorkspace,
		GitHubURL:   ingestGitHub,
		Text:        ingestText,
	}

	uploads, err := readUploads(args)
	if err != nil {
		return err
	}
	if len(uploads) == 1 {
		req.File = &uploads[0]
	} else {
		req.Files = uploads
	}

	var (
		mu        sync.Mutex
		bar       *progressbar.ProgressBar
		filesSeen int
	)
	spinner := getSpinner(" Loading sources...")

	a, err := newApp(context.Background(), cfg, appOptions{
		onFile: func(relPath string, chunks int) {
			mu.Lock()
			defer mu.Unlock()
			filesSeen++
			spinner.Describe(color.CyanString(" Reading %s (%d files)", relPath, filesSeen))
		},
		onProgress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil {
				spinner.Finish()
				bar = getProgressBar(total, " Embedding and storing")
			}
			bar.Set(done)
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ingest.Ingest(context.Background(), req)
	spinner.Finish()
	if bar != nil {
		bar.Finish()
	}
	fmt.Println()

	if err != nil {
		if result != nil && result.Chunks > 0 {
			color.Yellow("Stored %d chunks before the failure (stamp %d)", result.Chunks, result.Stamp)
		}
		return err
	}

	color.Green("✓ Ingested %s (%s) into %s: %d chunks", result.SourceLabel, result.SourceType, ingestWorkspace, result.Chunks)
	return nil
}

func readUploads(paths []string) ([]processor.Upload, error) {
	uploads := make([]processor.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %v", p, err)
		}
		uploads = append(uploads, processor.Upload{Name: filepath.Base(p), Data: data})
	}
	return uploads, nil
}
