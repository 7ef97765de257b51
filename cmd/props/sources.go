// FILE: lixenwraith/props/cmd/props/sources.go
package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lixenwraith/props"
	"github.com/lixenwraith/props/source/gitsource"
	"github.com/lixenwraith/props/source/hclsource"
	"github.com/lixenwraith/props/source/s3source"
	"github.com/lixenwraith/props/source/sqlsource"
	"github.com/lixenwraith/props/source/vaultsource"
)

// buildProperties wires the sources and processors selected by flags. The
// returned closer releases database connections.
func buildProperties(cCtx *cli.Context, logger *slog.Logger) (*props.Properties, io.Closer, error) {
	var sources []props.Source
	closers := multiCloser{}

	if sets := cCtx.StringSlice(setFlag.Name); len(sets) > 0 {
		values := make(map[string]string, len(sets))
		for _, kv := range sets {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				return nil, nil, fmt.Errorf("invalid --set %q, want name=value", kv)
			}
			values[name] = value
		}
		sources = append(sources, props.NewMapSource("set", values))
	}

	if prefix := cCtx.String(envPrefixFlag.Name); prefix != "" {
		sources = append(sources, props.NewEnvSource(prefix))
	}

	for _, path := range cCtx.StringSlice(fileFlag.Name) {
		fs, err := props.NewFileSource(path)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, fs)
	}

	if app := cCtx.String(appFlag.Name); app != "" {
		fs, err := props.DiscoverFileSource(props.DefaultDiscoveryOptions(app), nil, props.FileOptions{})
		switch {
		case errors.Is(err, props.ErrFileNotFound):
			logger.Warn("no configuration file discovered", "app", app)
		case err != nil:
			return nil, nil, err
		default:
			logger.Debug("configuration file discovered", "path", fs.Path())
			sources = append(sources, fs)
		}
	}

	if path := cCtx.String(hclFlag.Name); path != "" {
		hs, err := hclsource.New(hclsource.Config{Path: path, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, hs)
	}

	if path := cCtx.String(sqliteFlag.Name); path != "" {
		ss, err := sqlsource.Open(sqlsource.Config{
			Path:   path,
			Table:  cCtx.String(sqliteTableFlag.Name),
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, ss)
		sources = append(sources, ss)
	}

	if dir := cCtx.String(gitDirFlag.Name); dir != "" {
		gs, err := gitsource.New(gitsource.Config{
			Dir:      dir,
			Path:     cCtx.String(gitPathFlag.Name),
			Revision: cCtx.String(gitRevFlag.Name),
			Logger:   logger,
		})
		if err != nil {
			closers.Close()
			return nil, nil, err
		}
		sources = append(sources, gs)
	}

	if path := cCtx.String(vaultPathFlag.Name); path != "" {
		vs, err := vaultsource.New(vaultsource.Config{
			Mount:  cCtx.String(vaultMountFlag.Name),
			Path:   path,
			Logger: logger,
		})
		if err != nil {
			closers.Close()
			return nil, nil, err
		}
		sources = append(sources, vs)
	}

	if bucket := cCtx.String(s3BucketFlag.Name); bucket != "" {
		endpoint := cCtx.String(s3EndpointFlag.Name)
		s3s, err := s3source.New(cCtx.Context, s3source.Config{
			Bucket:          bucket,
			Key:             cCtx.String(s3KeyFlag.Name),
			Endpoint:        endpoint,
			ForcePathStyle:  endpoint != "",
			AccessKeyID:     cCtx.String(s3AccessKeyFlag.Name),
			SecretAccessKey: cCtx.String(s3SecretKeyFlag.Name),
			Logger:          logger,
		})
		if err != nil {
			closers.Close()
			return nil, nil, err
		}
		sources = append(sources, s3s)
	}

	processors, err := buildProcessors(cCtx)
	if err != nil {
		closers.Close()
		return nil, nil, err
	}

	p, err := props.NewBuilder().
		WithSources(sources...).
		WithProcessors(processors...).
		WithLogger(logger).
		Build()
	if err != nil {
		closers.Close()
		if errors.Is(err, props.ErrNoSources) {
			return nil, nil, fmt.Errorf("%w: pass --file, --env-prefix, --set or a backend flag", err)
		}
		return nil, nil, err
	}
	return p, closers, nil
}

func buildProcessors(cCtx *cli.Context) ([]props.Processor, error) {
	var decryptors []props.Decryptor

	if encoded := cCtx.String(aesKeyFlag.Name); encoded != "" {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid --aes-key: %w", err)
		}
		d, err := props.NewAESGCMDecryptor(key)
		if err != nil {
			return nil, err
		}
		decryptors = append(decryptors, d)
	}

	if pass := cCtx.String(passphraseFlag.Name); pass != "" {
		d, err := props.NewXChaCha20Decryptor(pass)
		if err != nil {
			return nil, err
		}
		decryptors = append(decryptors, d)
	}

	if path := cCtx.String(ageIdentityFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read age identity: %w", err)
		}
		d, err := props.NewAgeDecryptor(string(data))
		if err != nil {
			return nil, err
		}
		decryptors = append(decryptors, d)
	}

	processors := []props.Processor{props.Base64Processor{}}
	if len(decryptors) > 0 {
		processors = append(processors, props.NewDecryptProcessor(decryptors...))
	}
	return processors, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
