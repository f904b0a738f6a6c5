package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/pkg/apperr"
	"github.com/xhad/sourcebook/pkg/processor"
	"github.com/xhad/sourcebook/pkg/repoloader"
)

// Request names what to ingest into a workspace. When several sources are
// set only one is used, in the order GitHubURL, File, Files, Text.
type Request struct {
	WorkspaceID string
	GitHubURL   string
	File        *processor.Upload
	Files       []processor.Upload
	Text        string
}

func (r Request) empty() bool {
	return r.GitHubURL == "" && r.File == nil && len(r.Files) == 0 && r.Text == ""
}

// Repos loads a code repository into chunks.
type Repos interface {
	Load(ctx context.Context, workspaceID, rawURL string) (*repoloader.Result, error)
}

type ServiceConfig struct {
	Pipeline  *Pipeline
	Processor *processor.Processor
	Repos     Repos
}

// Service resolves a Request to chunks and runs them through the pipeline.
type Service struct {
	config ServiceConfig
}

func NewService(config ServiceConfig) (*Service, error) {
	if config.Pipeline == nil {
		return nil, fmt.Errorf("ingest service requires a pipeline")
	}
	if config.Processor == nil {
		p := processor.New()
		config.Processor = &p
	}
	if config.Repos == nil {
		config.Repos = repoloader.New()
	}
	return &Service{config: config}, nil
}

func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if req.WorkspaceID == "" {
		return nil, apperr.Validation("ingest", "Workspace ID is required")
	}
	if req.empty() {
		return nil, apperr.Validation("ingest", "No content provided")
	}

	job, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.config.Pipeline.Run(ctx, job)
}

func (s *Service) load(ctx context.Context, req Request) (Job, error) {
	job := Job{WorkspaceID: req.WorkspaceID}

	switch {
	case req.GitHubURL != "":
		log.Printf("Processing GitHub repo: %s", req.GitHubURL)
		repo, err := s.config.Repos.Load(ctx, req.WorkspaceID, req.GitHubURL)
		if err != nil {
			return job, err
		}
		job.Chunks = repo.Chunks
		job.SourceLabel = repo.Ref.Label()
		job.SourceType = models.SourceTypeGitHub
		return job, nil

	case req.File != nil:
		log.Printf("Processing file: %s", req.File.Name)
		job.SourceLabel = req.File.Name
		job.SourceType = processor.SourceTypeOf(*req.File)
		return s.chunkUploads(ctx, job, []processor.Upload{*req.File})

	case len(req.Files) > 0:
		log.Printf("Processing %d files", len(req.Files))
		job.SourceLabel = fmt.Sprintf("%d files", len(req.Files))
		job.SourceType = models.SourceTypePDF
		for _, f := range req.Files {
			if processor.SourceTypeOf(f) != models.SourceTypePDF {
				job.SourceType = models.SourceTypeText
				break
			}
		}
		return s.chunkUploads(ctx, job, req.Files)

	default:
		log.Printf("Processing raw text")
		job.SourceLabel = models.RawTextLabel
		job.SourceType = models.SourceTypeText
		return s.chunk(job, processor.RawText(req.Text))
	}
}

func (s *Service) chunkUploads(ctx context.Context, job Job, uploads []processor.Upload) (Job, error) {
	var docs []models.Document
	for _, u := range uploads {
		loaded, err := processor.Load(ctx, u)
		if err != nil {
			return job, err
		}
		docs = append(docs, loaded...)
	}
	return s.chunk(job, docs)
}

func (s *Service) chunk(job Job, docs []models.Document) (Job, error) {
	chunks, err := s.config.Processor.Process(job.WorkspaceID, docs)
	if err != nil {
		return job, apperr.Upstream("ingest", err)
	}
	job.Chunks = chunks
	return job, nil
}
