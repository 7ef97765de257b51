// FILE: lixenwraith/props/source/s3source/s3source.go

// Package s3source serves properties from a configuration document stored as
// an S3 object.
package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lixenwraith/props"
)

// DefaultMaxObjectSize bounds the document read from S3.
const DefaultMaxObjectSize = 10 << 20

// API is the subset of the S3 client used here.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config describes the object to read.
type Config struct {
	Bucket string
	Key    string

	// Client overrides the client built from the default AWS config chain
	Client API

	// Region, Endpoint and ForcePathStyle tune the default client
	Region         string
	Endpoint       string
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey replace the default credential chain,
	// typically for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string

	// Format forces a document format; empty detects from the key extension
	Format string
	// ListDelimiter joins scalar arrays, default ","
	ListDelimiter string
	// MaxObjectSize rejects larger objects, default DefaultMaxObjectSize
	MaxObjectSize int64
	// MissingIsEmpty treats a missing object as an empty document
	MissingIsEmpty bool
	// Name reported to the chain, default "s3://<bucket>/<key>"
	Name string

	Logger *slog.Logger
}

// Source fetches the object on first lookup.
type Source struct {
	*props.DocumentSource
	cfg    Config
	client API
	logger *slog.Logger
}

// New validates cfg and, without an explicit client, loads the default AWS
// configuration. No object is read until the first lookup.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3source: bucket and key are required")
	}
	if cfg.MaxObjectSize <= 0 {
		cfg.MaxObjectSize = DefaultMaxObjectSize
	}
	if cfg.Name == "" {
		cfg.Name = "s3://" + cfg.Bucket + "/" + cfg.Key
	}
	if cfg.Format == "" {
		cfg.Format = props.DetectFormat(path.Base(cfg.Key))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := cfg.Client
	if client == nil {
		var opts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}
		if cfg.AccessKeyID != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	s := &Source{cfg: cfg, client: client, logger: logger}
	s.DocumentSource = props.NewDocumentSource(cfg.Name, cfg.Format, cfg.ListDelimiter, s.fetch)
	return s, nil
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) && s.cfg.MissingIsEmpty {
			s.logger.Warn("property object missing, using empty document",
				"bucket", s.cfg.Bucket,
				"key", s.cfg.Key,
			)
			return []byte{}, nil
		}
		return nil, fmt.Errorf("s3source: get s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > s.cfg.MaxObjectSize {
		return nil, fmt.Errorf("s3source: object exceeds maximum size %d bytes", s.cfg.MaxObjectSize)
	}
	data, err := io.ReadAll(io.LimitReader(out.Body, s.cfg.MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("s3source: read body: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxObjectSize {
		return nil, fmt.Errorf("s3source: object exceeds maximum size %d bytes", s.cfg.MaxObjectSize)
	}

	s.logger.Info("properties read from s3",
		"bucket", s.cfg.Bucket,
		"key", s.cfg.Key,
		"bytes", len(data),
	)
	return data, nil
}
