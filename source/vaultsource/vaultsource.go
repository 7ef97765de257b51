// FILE: lixenwraith/props/source/vaultsource/vaultsource.go

// Package vaultsource serves properties from a HashiCorp Vault KV secret.
// Each key of the secret's data map is a property; nested maps become dotted
// names.
package vaultsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/lixenwraith/props"
)

// Config describes the secret to read.
type Config struct {
	// Address of the Vault server; empty uses VAULT_ADDR
	Address string
	// Token overrides VAULT_TOKEN
	Token string
	// Mount is the KV engine mount, default "secret"
	Mount string
	// Path of the secret inside the mount. Required.
	Path string
	// KV1 reads a version 1 engine (no data/ segment, no metadata wrapper)
	KV1 bool
	// ListDelimiter joins scalar arrays, default ","
	ListDelimiter string
	// Name reported to the chain, default "vault:<mount>/<path>"
	Name string
	// Client overrides the client built from Address and Token
	Client *api.Client
	// Timeout for the HTTP client, default 30s
	Timeout time.Duration

	Logger *slog.Logger
}

// Source reads the secret on first lookup. A missing secret is an empty
// document; transport and permission errors are backend failures.
type Source struct {
	*props.DocumentSource
	cfg    Config
	client *api.Client
	path   string
	logger *slog.Logger
}

// New validates cfg and creates the client. Vault is not contacted until the
// first lookup.
func New(cfg Config) (*Source, error) {
	cfg.Path = strings.Trim(cfg.Path, "/")
	if cfg.Path == "" {
		return nil, fmt.Errorf("vaultsource: Path is required")
	}
	cfg.Mount = strings.Trim(cfg.Mount, "/")
	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	if cfg.Name == "" {
		cfg.Name = "vault:" + cfg.Mount + "/" + cfg.Path
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := cfg.Client
	if client == nil {
		vc := api.DefaultConfig()
		if vc.Error != nil {
			return nil, fmt.Errorf("failed to read Vault environment: %w", vc.Error)
		}
		if cfg.Address != "" {
			vc.Address = cfg.Address
		}
		vc.Timeout = cfg.Timeout

		var err error
		client, err = api.NewClient(vc)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vault client: %w", err)
		}
		if cfg.Token != "" {
			client.SetToken(cfg.Token)
		}
	}

	path := cfg.Mount + "/data/" + cfg.Path
	if cfg.KV1 {
		path = cfg.Mount + "/" + cfg.Path
	}

	s := &Source{cfg: cfg, client: client, path: path, logger: logger}
	s.DocumentSource = props.NewDocumentSource(cfg.Name, props.FormatJSON, cfg.ListDelimiter, s.fetch)
	return s, nil
}

// SecretPath returns the logical API path read by the source.
func (s *Source) SecretPath() string { return s.path }

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	secret, err := s.client.Logical().ReadWithContext(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("vaultsource: read %s: %w", s.path, err)
	}

	if secret == nil || secret.Data == nil {
		s.logger.Warn("vault secret not found, using empty document",
			slog.String("path", s.path))
		return []byte("{}"), nil
	}

	data := secret.Data
	if !s.cfg.KV1 {
		inner, ok := secret.Data["data"]
		if !ok || inner == nil {
			// Deleted latest version
			s.logger.Warn("vault secret has no data, using empty document",
				slog.String("path", s.path))
			return []byte("{}"), nil
		}
		m, ok := inner.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("vaultsource: invalid data format at %s", s.path)
		}
		data = m
	}

	// Reuse the JSON document flattening for nested values
	doc, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("vaultsource: encode %s: %w", s.path, err)
	}

	s.logger.Info("properties read from vault",
		slog.String("path", s.path),
		slog.Int("keys", len(data)),
		slog.Duration("duration", time.Since(start)))
	return doc, nil
}
