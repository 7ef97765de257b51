// FILE: lixenwraith/props/document.go
package props

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FetchFunc retrieves a raw configuration document from a remote store.
type FetchFunc func(ctx context.Context) ([]byte, error)

// DocumentSource serves properties from a document fetched on first lookup.
// A failed fetch is returned as a backend error and retried on the next
// lookup; a successful one is kept until Refresh.
type DocumentSource struct {
	name      string
	format    string
	delimiter string
	fetch     FetchFunc

	mu     sync.RWMutex
	values map[string]string
}

// NewDocumentSource creates a lazily loaded source. An empty format is
// detected from content.
func NewDocumentSource(name, format, delimiter string, fetch FetchFunc) *DocumentSource {
	return &DocumentSource{name: name, format: format, delimiter: delimiter, fetch: fetch}
}

func (d *DocumentSource) Name() string { return d.name }

func (d *DocumentSource) Lookup(ctx context.Context, name string) (string, bool, error) {
	values, err := d.load(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := values[name]
	return v, ok, nil
}

// Refresh fetches and parses the document again.
func (d *DocumentSource) Refresh(ctx context.Context) error {
	values, err := d.read(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.values = values
	d.mu.Unlock()
	return nil
}

// Keys returns loaded property names, empty before the first successful load.
func (d *DocumentSource) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *DocumentSource) load(ctx context.Context) (map[string]string, error) {
	d.mu.RLock()
	values := d.values
	d.mu.RUnlock()
	if values != nil {
		return values, nil
	}

	// Fetch outside the lock; concurrent first lookups may both fetch
	values, err := d.read(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.values == nil {
		d.values = values
	}
	values = d.values
	d.mu.Unlock()
	return values, nil
}

func (d *DocumentSource) read(ctx context.Context) (map[string]string, error) {
	data, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}
	values, err := ParseDocument(data, d.format, d.delimiter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	return values, nil
}
