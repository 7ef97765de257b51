// FILE: lixenwraith/props/file_test.go
package props_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/props"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseDocument(t *testing.T) {
	want := map[string]string{
		"server.host":    "localhost",
		"server.port":    "8080",
		"server.origins": "a,b",
		"server.debug":   "true",
		"ratio":          "0.5",
	}

	tests := []struct {
		name   string
		format string
		doc    string
	}{
		{"TOML", props.FormatTOML, `
ratio = 0.5
[server]
host = "localhost"
port = 8080
origins = ["a", "b"]
debug = true
`},
		{"JSON", props.FormatJSON, `{
  "ratio": 0.5,
  "server": {"host": "localhost", "port": 8080, "origins": ["a", "b"], "debug": true}
}`},
		{"JSONC", props.FormatJSON, `{
  // comments and trailing commas are accepted
  "ratio": 0.5,
  "server": {
    "host": "localhost", /* inline */
    "port": 8080,
    "origins": ["a", "b",],
    "debug": true,
  },
}`},
		{"YAML", props.FormatYAML, `
ratio: 0.5
server:
  host: localhost
  port: 8080
  origins: [a, b]
  debug: true
`},
		{"Properties", props.FormatProperties, `
# comment
! also a comment
ratio=0.5
server.host = localhost
server.port: 8080
server.origins a,b
server.debug=true
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := props.ParseDocument([]byte(tt.doc), tt.format, "")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("Detected From Content", func(t *testing.T) {
		for _, tt := range tests {
			if tt.format == props.FormatProperties {
				continue
			}
			got, err := props.ParseDocument([]byte(tt.doc), "", "")
			require.NoError(t, err, tt.name)
			assert.Equal(t, want, got, tt.name)
		}
	})

	t.Run("Custom Delimiter", func(t *testing.T) {
		got, err := props.ParseDocument([]byte(`hosts = ["a", "b"]`), props.FormatTOML, ";")
		require.NoError(t, err)
		assert.Equal(t, "a;b", got["hosts"])
	})

	t.Run("Element Containing Delimiter Rejected", func(t *testing.T) {
		_, err := props.ParseDocument([]byte("hosts: [\"a,b\", c]\n"), props.FormatYAML, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hosts[0]")

		got, err := props.ParseDocument([]byte("hosts: [\"a,b\", c]\n"), props.FormatYAML, ";")
		require.NoError(t, err)
		assert.Equal(t, "a,b;c", got["hosts"])
	})

	t.Run("Tables In Arrays Are Indexed", func(t *testing.T) {
		got, err := props.ParseDocument([]byte(`
[[servers]]
host = "a"
[[servers]]
host = "b"
`), props.FormatTOML, "")
		require.NoError(t, err)
		assert.Equal(t, "a", got["servers.0.host"])
		assert.Equal(t, "b", got["servers.1.host"])
	})

	t.Run("Placeholders Kept Verbatim", func(t *testing.T) {
		got, err := props.ParseDocument([]byte(`url = "${host}:${port:80}"`), props.FormatTOML, "")
		require.NoError(t, err)
		assert.Equal(t, "${host}:${port:80}", got["url"])
	})

	t.Run("Large Integers Keep Precision", func(t *testing.T) {
		got, err := props.ParseDocument([]byte(`{"id": 9007199254740993}`), props.FormatJSON, "")
		require.NoError(t, err)
		assert.Equal(t, "9007199254740993", got["id"])
	})

	t.Run("Syntax Errors", func(t *testing.T) {
		for format, doc := range map[string]string{
			props.FormatTOML: `[broken`,
			props.FormatJSON: `{"a":`,
			props.FormatYAML: "a: [1, 2",
		} {
			_, err := props.ParseDocument([]byte(doc), format, "")
			assert.Error(t, err, format)
		}
		_, err := props.ParseDocument([]byte("a=1"), "ini", "")
		assert.Error(t, err)
	})
}

func TestPropertiesFormat(t *testing.T) {
	doc := `
greeting = hello \
           world
path=C:\\temp
tab=a\tb
unicode=caf\u00e9
key\=with\:seps=value
empty=
bare
`
	got, err := props.ParseDocument([]byte(doc), props.FormatProperties, "")
	require.NoError(t, err)

	assert.Equal(t, "hello world", got["greeting"])
	assert.Equal(t, `C:\temp`, got["path"])
	assert.Equal(t, "a\tb", got["tab"])
	assert.Equal(t, "café", got["unicode"])
	assert.Equal(t, "value", got["key=with:seps"])
	assert.Equal(t, "", got["empty"])
	assert.Equal(t, "", got["bare"])

	_, err = props.ParseDocument([]byte(`bad=\u12`), props.FormatProperties, "")
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("Load And Lookup", func(t *testing.T) {
		path := writeFile(t, dir, "app.yaml", "db:\n  host: db.local\n  port: 5432\n")
		src, err := props.NewFileSource(path)
		require.NoError(t, err)

		assert.Equal(t, "file:app.yaml", src.Name())
		assert.Equal(t, path, src.Path())
		assert.Equal(t, []string{"db.host", "db.port"}, src.Keys())

		v, found, err := src.Lookup(ctx, "db.port")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "5432", v)
	})

	t.Run("Unknown Extension Detected", func(t *testing.T) {
		path := writeFile(t, dir, "app.conf", `{"a": {"b": 1}}`)
		src, err := props.NewFileSource(path)
		require.NoError(t, err)
		v, _, _ := src.Lookup(ctx, "a.b")
		assert.Equal(t, "1", v)
	})

	t.Run("Forced Format And Name", func(t *testing.T) {
		path := writeFile(t, dir, "settings.txt", "a = 1\n")
		src, err := props.NewFileSourceWithOptions(path, props.FileOptions{Format: props.FormatProperties, Name: "settings"})
		require.NoError(t, err)
		assert.Equal(t, "settings", src.Name())
		v, _, _ := src.Lookup(ctx, "a")
		assert.Equal(t, "1", v)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := props.NewFileSource(filepath.Join(dir, "nope.toml"))
		assert.ErrorIs(t, err, props.ErrFileNotFound)
	})

	t.Run("Too Large", func(t *testing.T) {
		path := writeFile(t, dir, "big.toml", `a = "`+strings.Repeat("x", 100)+`"`)
		_, err := props.NewFileSourceWithOptions(path, props.FileOptions{MaxFileSize: 10})
		assert.Error(t, err)
	})

	t.Run("Parse Error Names File", func(t *testing.T) {
		path := writeFile(t, dir, "broken.toml", "[broken")
		_, err := props.NewFileSource(path)
		assert.ErrorContains(t, err, "broken.toml")
	})
}

func TestDiscovery(t *testing.T) {
	t.Run("CLI Flag Wins", func(t *testing.T) {
		opts := props.DefaultDiscoveryOptions("myapp")
		t.Setenv("MYAPP_CONFIG", "/from/env.toml")

		path, ok := props.DiscoverFile(opts, []string{"--config", "/from/flag.toml"})
		assert.True(t, ok)
		assert.Equal(t, "/from/flag.toml", path)

		path, ok = props.DiscoverFile(opts, []string{"--config=/from/eq.toml"})
		assert.True(t, ok)
		assert.Equal(t, "/from/eq.toml", path)

		path, ok = props.DiscoverFile(opts, nil)
		assert.True(t, ok)
		assert.Equal(t, "/from/env.toml", path)
	})

	t.Run("Search Paths", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "myapp.yaml", "a: 1\n")
		writeFile(t, dir, "myapp.json", `{"a": 2}`)

		opts := props.FileDiscoveryOptions{
			Name:       "myapp",
			Extensions: []string{".toml", ".yaml", ".json"},
			Paths:      []string{dir},
		}
		assert.Equal(t, []string{dir}, opts.SearchDirs())
		assert.Equal(t, []string{
			filepath.Join(dir, "myapp.toml"),
			filepath.Join(dir, "myapp.yaml"),
			filepath.Join(dir, "myapp.json"),
		}, opts.Candidates())

		path, ok := props.DiscoverFile(opts, nil)
		assert.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "myapp.yaml"), path)

		src, err := props.DiscoverFileSource(opts, nil, props.FileOptions{})
		require.NoError(t, err)
		v, _, _ := src.Lookup(context.Background(), "a")
		assert.Equal(t, "1", v)
	})

	t.Run("XDG Config Home", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, "myapp"), 0755))
		writeFile(t, filepath.Join(home, "myapp"), "myapp.toml", "a = 1\n")
		t.Setenv("XDG_CONFIG_HOME", home)

		opts := props.FileDiscoveryOptions{Name: "myapp", Extensions: []string{".toml"}, UseXDG: true}
		path, ok := props.DiscoverFile(opts, nil)
		assert.True(t, ok)
		assert.Equal(t, filepath.Join(home, "myapp", "myapp.toml"), path)
	})

	t.Run("Nothing Found", func(t *testing.T) {
		opts := props.FileDiscoveryOptions{Name: "absent-app", Extensions: []string{".toml"}, Paths: []string{t.TempDir()}}
		_, err := props.DiscoverFileSource(opts, nil, props.FileOptions{})
		assert.ErrorIs(t, err, props.ErrFileNotFound)
	})
}

func TestDocumentSource(t *testing.T) {
	ctx := context.Background()

	t.Run("Lazy Single Fetch", func(t *testing.T) {
		var fetches atomic.Int32
		doc := props.NewDocumentSource("remote", props.FormatYAML, "", func(context.Context) ([]byte, error) {
			fetches.Add(1)
			return []byte("a:\n  b: 1\nlist: [x, y]\n"), nil
		})
		assert.Equal(t, int32(0), fetches.Load())
		assert.Empty(t, doc.Keys())

		v, found, err := doc.Lookup(ctx, "a.b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "1", v)

		v, _, _ = doc.Lookup(ctx, "list")
		assert.Equal(t, "x,y", v)
		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, []string{"a.b", "list"}, doc.Keys())
	})

	t.Run("Failed Fetch Retried", func(t *testing.T) {
		fail := true
		doc := props.NewDocumentSource("remote", props.FormatJSON, "", func(context.Context) ([]byte, error) {
			if fail {
				return nil, errors.New("unavailable")
			}
			return []byte(`{"a": "ok"}`), nil
		})

		_, _, err := doc.Lookup(ctx, "a")
		assert.Error(t, err)

		fail = false
		v, found, err := doc.Lookup(ctx, "a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "ok", v)
	})

	t.Run("Refresh", func(t *testing.T) {
		value := "one"
		doc := props.NewDocumentSource("remote", props.FormatJSON, "", func(context.Context) ([]byte, error) {
			return []byte(`{"a": "` + value + `"}`), nil
		})
		v, _, _ := doc.Lookup(ctx, "a")
		assert.Equal(t, "one", v)

		value = "two"
		v, _, _ = doc.Lookup(ctx, "a")
		assert.Equal(t, "one", v)

		require.NoError(t, doc.Refresh(ctx))
		v, _, _ = doc.Lookup(ctx, "a")
		assert.Equal(t, "two", v)
	})

	t.Run("Fetch Failure Falls Through Chain", func(t *testing.T) {
		doc := props.NewDocumentSource("remote", props.FormatJSON, "", func(context.Context) ([]byte, error) {
			return nil, errors.New("unavailable")
		})
		p := newProps(t, doc, props.NewMapSource("local", map[string]string{"a": "local"}))

		v, err := props.Get[string](ctx, p, "a")
		require.NoError(t, err)
		assert.Equal(t, "local", v)
		assert.Equal(t, int64(1), p.Stats().SourceFailures)
	})
}
