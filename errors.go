// FILE: lixenwraith/props/errors.go
package props

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution failures. Every error returned by Properties.Get wraps exactly one
// of these, so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when no source has the property and no default was given.
	ErrNotFound = errors.New("property not found")
	// ErrCircularReference is returned when placeholder expansion revisits an in-progress property.
	ErrCircularReference = errors.New("circular reference")
	// ErrMissingPlaceholder is returned when a placeholder without default names an absent property.
	ErrMissingPlaceholder = errors.New("missing placeholder")
	// ErrExpansionDepth is returned when nested expansion exceeds the configured depth.
	ErrExpansionDepth = errors.New("maximum expansion depth exceeded")
	// ErrProcessing is returned when a processor fails to transform a marked value.
	ErrProcessing = errors.New("processing failed")
	// ErrConversion is returned when a raw value cannot be converted to the requested type.
	ErrConversion = errors.New("conversion failed")
	// ErrNoConverter is returned when no registered converter supports the requested type.
	ErrNoConverter = fmt.Errorf("%w: no converter", ErrConversion)
	// ErrBackend marks a source failure. The chain absorbs it; it is never returned by Get.
	ErrBackend = errors.New("backend failure")

	// ErrNoSources is returned by Build when the chain would have no sources.
	ErrNoSources = errors.New("no sources configured")
	// ErrInvalidDescriptor is returned for malformed type descriptors.
	ErrInvalidDescriptor = errors.New("invalid type descriptor")
)

// PropertyError ties a resolution failure to the property that was requested.
type PropertyError struct {
	Name string
	Err  error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("property %q: %v", e.Name, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}

// cycleError reports the reference path that closed a placeholder cycle.
func cycleError(path []string, name string) error {
	chain := append(append([]string{}, path...), name)
	return fmt.Errorf("%w: %s", ErrCircularReference, strings.Join(chain, " -> "))
}
