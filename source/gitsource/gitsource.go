// FILE: lixenwraith/props/source/gitsource/gitsource.go

// Package gitsource serves properties from a configuration document committed
// to a git repository, read at a fixed revision through the git CLI.
package gitsource

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/lixenwraith/props"
)

// Reader fetches the content of path at revision.
type Reader interface {
	Show(ctx context.Context, revision, path string) ([]byte, error)
}

// CLI reads files with "git -C <dir> show <rev>:<path>".
type CLI struct {
	Dir string
}

// Show runs git show. Stderr is included in the error on failure.
func (c CLI) Show(ctx context.Context, revision, path string) ([]byte, error) {
	object := revision + ":" + path
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "-C", c.Dir, "show", object)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git show %s in %s: %w (stderr: %s)",
			object, c.Dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Config describes which document to read.
type Config struct {
	// Dir is the repository (working tree or bare). Required unless Reader is set.
	Dir string
	// Path of the document inside the repository. Required.
	Path string
	// Revision to read, default "HEAD"
	Revision string
	// Format forces a document format; empty detects from the path extension
	Format string
	// ListDelimiter joins scalar arrays, default ","
	ListDelimiter string
	// Name reported to the chain, default "git:<path>@<revision>"
	Name string
	// Reader overrides the git CLI
	Reader Reader
	// Logger receives load events; nil discards
	Logger *slog.Logger
}

// Source loads the document on first lookup. A failed load is reported as a
// backend error and retried on the next lookup.
type Source struct {
	*props.DocumentSource
	cfg    Config
	reader Reader
	logger *slog.Logger
}

// New validates cfg. No git command runs until the first lookup.
func New(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("gitsource: Path is required")
	}
	if cfg.Reader == nil && cfg.Dir == "" {
		return nil, fmt.Errorf("gitsource: Dir is required")
	}
	if cfg.Revision == "" {
		cfg.Revision = "HEAD"
	}
	if cfg.Name == "" {
		cfg.Name = "git:" + cfg.Path + "@" + cfg.Revision
	}
	if cfg.Format == "" {
		cfg.Format = props.DetectFormat(cfg.Path)
	}
	reader := cfg.Reader
	if reader == nil {
		reader = CLI{Dir: cfg.Dir}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Source{cfg: cfg, reader: reader, logger: logger}
	s.DocumentSource = props.NewDocumentSource(cfg.Name, cfg.Format, cfg.ListDelimiter, s.fetch)
	return s, nil
}

// Revision returns the revision the document is read at.
func (s *Source) Revision() string { return s.cfg.Revision }

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	data, err := s.reader.Show(ctx, s.cfg.Revision, s.cfg.Path)
	if err != nil {
		return nil, err
	}
	s.logger.Info("properties read from git",
		"path", s.cfg.Path,
		"revision", s.cfg.Revision,
		"bytes", len(data),
	)
	return data, nil
}
