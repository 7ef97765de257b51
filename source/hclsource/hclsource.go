// FILE: lixenwraith/props/source/hclsource/hclsource.go

// Package hclsource serves properties from an HCL document. Attributes become
// properties; blocks and their labels become dotted name prefixes:
//
//	server "public" {
//	  port = 8080
//	}
//
// yields "server.public.port". Expressions are evaluated without variables or
// functions, so property placeholders must use HCL's literal escape:
// url = "postgres://$${db.host:localhost}/app".
package hclsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/lixenwraith/props"
)

// Config describes the document to read.
type Config struct {
	// Path of the HCL file. Required unless Data is set.
	Path string
	// Data is an in-memory document used instead of Path
	Data []byte
	// ListDelimiter joins scalar lists, default ","
	ListDelimiter string
	// MaxFileSize rejects larger files, default props.DefaultMaxFileSize
	MaxFileSize int64
	// Name reported to the chain, default "hcl:<base name>"
	Name string

	Logger *slog.Logger
}

// Source parses the document on first lookup; Refresh re-reads it.
type Source struct {
	*props.DocumentSource
	cfg    Config
	logger *slog.Logger
}

// New validates cfg. The file is not read until the first lookup.
func New(cfg Config) (*Source, error) {
	if cfg.Path == "" && cfg.Data == nil {
		return nil, fmt.Errorf("hclsource: Path or Data is required")
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = props.DefaultMaxFileSize
	}
	if cfg.Name == "" {
		cfg.Name = "hcl:inline"
		if cfg.Path != "" {
			cfg.Name = "hcl:" + filepath.Base(cfg.Path)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Source{cfg: cfg, logger: logger}
	s.DocumentSource = props.NewDocumentSource(cfg.Name, props.FormatJSON, cfg.ListDelimiter, s.fetch)
	return s, nil
}

func (s *Source) fetch(_ context.Context) ([]byte, error) {
	data := s.cfg.Data
	filename := s.cfg.Name
	if data == nil {
		var err error
		data, err = s.readFile()
		if err != nil {
			return nil, err
		}
		filename = s.cfg.Path
	}

	doc, err := Parse(data, filename)
	if err != nil {
		return nil, err
	}
	s.logger.Info("properties read from hcl", "file", filename, "bytes", len(data))
	return json.Marshal(doc)
}

func (s *Source) readFile() ([]byte, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hcl file '%s': %w", s.cfg.Path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read hcl file '%s': %w", s.cfg.Path, err)
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("hcl file '%s' exceeds maximum size %d bytes", s.cfg.Path, s.cfg.MaxFileSize)
	}
	return data, nil
}

// Parse converts an HCL document into nested maps. Repeated blocks with the
// same type and labels become a list indexed in declaration order.
func Parse(data []byte, filename string) (map[string]any, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected HCL body type %T", file.Body)
	}
	return decodeBody(body)
}

func decodeBody(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any, len(body.Attributes)+len(body.Blocks))

	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %w", name, diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = native
	}

	for _, block := range body.Blocks {
		inner, err := decodeBody(block.Body)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", block.Type, err)
		}
		if err := insertBlock(out, append([]string{block.Type}, block.Labels...), inner); err != nil {
			return nil, fmt.Errorf("block %q: %w", block.Type, err)
		}
	}
	return out, nil
}

// insertBlock places a decoded block body at the path given by its type and
// labels, turning a second occurrence into a list.
func insertBlock(out map[string]any, path []string, inner map[string]any) error {
	m := out
	for _, seg := range path[:len(path)-1] {
		next, exists := m[seg]
		if !exists {
			child := make(map[string]any)
			m[seg] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q conflicts with an attribute", seg)
		}
		m = child
	}

	last := path[len(path)-1]
	switch existing := m[last].(type) {
	case nil:
		m[last] = inner
	case map[string]any:
		m[last] = []any{existing, inner}
	case []any:
		m[last] = append(existing, inner)
	default:
		return fmt.Errorf("%q conflicts with an attribute", last)
	}
	return nil
}

func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(nil)
			return i.String(), nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, native)
		}
		return items, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			m[key.AsString()] = native
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
