// File: lixenwraith/props/convenience.go
package props

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Quick wires the standard precedence CLI > Env > File > Defaults with the
// built-in converters. The file is found with DefaultDiscoveryOptions(appName);
// a missing file is not an error.
func Quick(appName, envPrefix string, defaults map[string]string) (*Properties, error) {
	return QuickWithArgs(appName, envPrefix, os.Args[1:], defaults, nil)
}

// QuickWithArgs is Quick with explicit arguments and logger.
func QuickWithArgs(appName, envPrefix string, args []string, defaults map[string]string, logger *slog.Logger) (*Properties, error) {
	argsSource, err := NewArgsSource(args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	b := NewBuilder().
		WithLogger(logger).
		WithSources(argsSource, NewEnvSource(envPrefix))

	fileSource, err := DiscoverFileSource(DefaultDiscoveryOptions(appName), args, FileOptions{})
	switch {
	case err == nil:
		b.WithSources(fileSource)
	case errors.Is(err, ErrFileNotFound):
		// Defaults and env are enough
	default:
		return nil, err
	}

	return b.WithSources(NewMapSource("defaults", defaults)).Build()
}

// MustQuick is like Quick but panics on error
func MustQuick(appName, envPrefix string, defaults map[string]string) *Properties {
	p, err := Quick(appName, envPrefix, defaults)
	if err != nil {
		panic(fmt.Sprintf("props initialization failed: %v", err))
	}
	return p
}
