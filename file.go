// FILE: lixenwraith/props/file.go
package props

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document formats understood by ParseDocument
const (
	FormatTOML       = "toml"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatProperties = "properties"
)

// DefaultMaxFileSize bounds documents read by FileSource.
const DefaultMaxFileSize = 10 << 20

// ErrFileNotFound is returned when a configuration file does not exist or
// discovery finds none.
var ErrFileNotFound = errors.New("configuration file not found")

// FileOptions configures a FileSource
type FileOptions struct {
	// Name reported by the source, default "file:<base name>"
	Name string
	// Format forces a document format; empty detects from extension, then content
	Format string
	// ListDelimiter joins scalar arrays, default ","
	ListDelimiter string
	// MaxFileSize rejects larger files, default DefaultMaxFileSize
	MaxFileSize int64
}

// FileSource serves properties from a configuration document loaded once at
// construction. Nested tables become dotted names.
type FileSource struct {
	name   string
	path   string
	values map[string]string
}

// NewFileSource loads path with default options.
func NewFileSource(path string) (*FileSource, error) {
	return NewFileSourceWithOptions(path, FileOptions{})
}

// NewFileSourceWithOptions loads path. A missing file returns ErrFileNotFound.
func NewFileSourceWithOptions(path string, opts FileOptions) (*FileSource, error) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Name == "" {
		opts.Name = "file:" + filepath.Base(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}
	if info.Size() > opts.MaxFileSize {
		return nil, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", path, opts.MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, opts.MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	format := opts.Format
	if format == "" {
		format = DetectFormat(path)
	}
	values, err := ParseDocument(data, format, opts.ListDelimiter)
	if err != nil {
		return nil, fmt.Errorf("config file '%s': %w", path, err)
	}

	return &FileSource{name: opts.Name, path: path, values: values}, nil
}

func (f *FileSource) Name() string { return f.name }

// Path returns the loaded file path
func (f *FileSource) Path() string { return f.path }

func (f *FileSource) Lookup(_ context.Context, name string) (string, bool, error) {
	v, ok := f.values[name]
	return v, ok, nil
}

// Keys returns the document's property names in sorted order
func (f *FileSource) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseDocument parses a configuration document into flat property values.
// An empty format is detected from content.
func ParseDocument(data []byte, format, delimiter string) (map[string]string, error) {
	if delimiter == "" {
		delimiter = DefaultListDelimiter
	}
	if format == "" {
		format = detectFormatFromContent(data)
	}

	if format == FormatProperties {
		return parseProperties(data)
	}

	doc := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	return flattenMap(doc, "", delimiter)
}

// DetectFormat determines the document format from a file extension; empty when unknown
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json", ".jsonc":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".properties", ".props":
		return FormatProperties
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing. Properties
// is the fallback since it accepts almost any text.
func detectFormatFromContent(data []byte) string {
	var probe map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &probe); err == nil {
		return FormatJSON
	}
	probe = nil
	if err := toml.Unmarshal(data, &probe); err == nil {
		return FormatTOML
	}
	probe = nil
	if err := yaml.Unmarshal(data, &probe); err == nil && len(probe) > 0 {
		return FormatYAML
	}
	return FormatProperties
}

// parseProperties reads the key=value / key: value line format. Placeholders
// are kept verbatim for the expander.
func parseProperties(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxValueSize)

	var logical strings.Builder
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if logical.Len() == 0 {
			line = strings.TrimLeft(line, " \t\f")
			if line == "" || line[0] == '#' || line[0] == '!' {
				continue
			}
		} else {
			line = strings.TrimLeft(line, " \t\f")
		}

		if continues(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)

		key, value, err := splitProperty(logical.String())
		logical.Reset()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if logical.Len() > 0 {
		key, value, err := splitProperty(logical.String())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		values[key] = value
	}
	return values, nil
}

// continues reports an odd number of trailing backslashes.
func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func splitProperty(line string) (string, string, error) {
	sep := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' {
			sep = i
			break
		}
	}

	rawKey, rawValue := line, ""
	if sep >= 0 {
		rawKey = line[:sep]
		rest := strings.TrimLeft(line[sep:], " \t")
		if rest != "" && (rest[0] == '=' || rest[0] == ':') {
			rest = strings.TrimLeft(rest[1:], " \t")
		}
		rawValue = rest
	}

	key, err := unescapeProperty(rawKey)
	if err != nil {
		return "", "", err
	}
	if key == "" {
		return "", "", errors.New("empty key")
	}
	value, err := unescapeProperty(rawValue)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

func unescapeProperty(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("truncated unicode escape in %q", s)
			}
			r, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape in %q", s)
			}
			b.WriteRune(rune(r))
			i += 4
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}
