// File: lixenwraith/props/builder.go
package props

import (
	"errors"
	"fmt"
	"log/slog"
)

// Options configures a Properties instance.
type Options struct {
	// Sources in priority order (first = highest priority). Required.
	Sources []Source

	// Processors in execution order
	Processors []Processor

	// Converters tried before the built-ins, typically enum converters
	Converters []Converter

	// DefaultConverters appends the built-in converters after Converters
	DefaultConverters bool

	// Placeholder delimiters, default "${" and "}"
	PlaceholderPrefix string
	PlaceholderSuffix string

	// DefaultSeparator splits ${name:default}, default ":"
	DefaultSeparator string

	// ListDelimiter separates collection elements, default ","
	ListDelimiter string

	// EmptySegments controls blank list segments, default skip
	EmptySegments EmptySegments

	// MaxDepth bounds nested placeholder resolution, default 50
	MaxDepth int

	// Logger receives source failures and debug events; nil discards
	Logger *slog.Logger

	// Observer receives resolution events; nil disables
	Observer Observer
}

// DefaultOptions returns options with every knob at its default and the
// built-in converters enabled.
func DefaultOptions() Options {
	return Options{
		DefaultConverters: true,
		PlaceholderPrefix: DefaultPlaceholderPrefix,
		PlaceholderSuffix: DefaultPlaceholderSuffix,
		DefaultSeparator:  DefaultDefaultSeparator,
		ListDelimiter:     DefaultListDelimiter,
		EmptySegments:     EmptySegmentsSkip,
		MaxDepth:          DefaultMaxDepth,
	}
}

// New wires a Properties instance from opts.
func New(opts Options) (*Properties, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	chain, err := NewResolverChain(logger, opts.Sources...)
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	chain.observer = observer
	chain.stats = stats

	if opts.PlaceholderPrefix != "" && opts.PlaceholderPrefix == opts.PlaceholderSuffix {
		return nil, fmt.Errorf("placeholder prefix and suffix must differ: %q", opts.PlaceholderPrefix)
	}

	converters := append([]Converter(nil), opts.Converters...)
	if opts.DefaultConverters {
		converters = append(converters, DefaultConverters()...)
	}
	if len(converters) == 0 {
		return nil, errors.New("no converters configured")
	}

	for i, proc := range opts.Processors {
		if proc == nil {
			return nil, fmt.Errorf("processor at position %d is nil", i)
		}
	}

	return &Properties{
		chain:    chain,
		expander: NewExpander(opts.PlaceholderPrefix, opts.PlaceholderSuffix, opts.DefaultSeparator, opts.MaxDepth),
		pipeline: NewProcessorPipeline(opts.Processors...),
		registry: NewConverterRegistry(opts.ListDelimiter, opts.EmptySegments, converters...),
		cache:    NewCache(),
		logger:   logger,
		observer: observer,
		stats:    stats,
	}, nil
}

// Builder provides a fluent interface for wiring a Properties instance
type Builder struct {
	opts Options
	err  error
}

// NewBuilder creates a builder starting from DefaultOptions
func NewBuilder() *Builder {
	return &Builder{opts: DefaultOptions()}
}

// WithSources appends sources in priority order
func (b *Builder) WithSources(sources ...Source) *Builder {
	b.opts.Sources = append(b.opts.Sources, sources...)
	return b
}

// WithProcessors appends processors in execution order
func (b *Builder) WithProcessors(processors ...Processor) *Builder {
	b.opts.Processors = append(b.opts.Processors, processors...)
	return b
}

// WithConverters appends converters that take priority over the built-ins
func (b *Builder) WithConverters(converters ...Converter) *Builder {
	b.opts.Converters = append(b.opts.Converters, converters...)
	return b
}

// WithDefaultConverters toggles the built-in converters
func (b *Builder) WithDefaultConverters(enabled bool) *Builder {
	b.opts.DefaultConverters = enabled
	return b
}

// WithPlaceholder sets the placeholder delimiters
func (b *Builder) WithPlaceholder(prefix, suffix string) *Builder {
	if prefix == "" || suffix == "" {
		b.err = errors.Join(b.err, fmt.Errorf("placeholder delimiters cannot be empty"))
		return b
	}
	b.opts.PlaceholderPrefix = prefix
	b.opts.PlaceholderSuffix = suffix
	return b
}

// WithDefaultSeparator sets the separator between a placeholder name and its default
func (b *Builder) WithDefaultSeparator(sep string) *Builder {
	if sep == "" {
		b.err = errors.Join(b.err, fmt.Errorf("default separator cannot be empty"))
		return b
	}
	b.opts.DefaultSeparator = sep
	return b
}

// WithListDelimiter sets the collection element delimiter
func (b *Builder) WithListDelimiter(delim string) *Builder {
	if delim == "" {
		b.err = errors.Join(b.err, fmt.Errorf("list delimiter cannot be empty"))
		return b
	}
	b.opts.ListDelimiter = delim
	return b
}

// WithEmptySegments sets the blank list segment policy
func (b *Builder) WithEmptySegments(policy EmptySegments) *Builder {
	b.opts.EmptySegments = policy
	return b
}

// WithMaxDepth bounds nested placeholder resolution
func (b *Builder) WithMaxDepth(depth int) *Builder {
	if depth <= 0 {
		b.err = errors.Join(b.err, fmt.Errorf("max depth must be positive, got %d", depth))
		return b
	}
	b.opts.MaxDepth = depth
	return b
}

// WithLogger sets the logger
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

// WithObserver sets the resolution observer
func (b *Builder) WithObserver(o Observer) *Builder {
	b.opts.Observer = o
	return b
}

// Build creates the Properties instance. It fails with ErrNoSources when no
// source was configured.
func (b *Builder) Build() (*Properties, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.opts)
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Properties {
	p, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("props build failed: %v", err))
	}
	return p
}
