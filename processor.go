// FILE: lixenwraith/props/processor.go
package props

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Processor transforms a raw value that carries its marker. Values without the
// marker are left untouched by the pipeline.
type Processor interface {
	Name() string
	Applies(raw string) bool
	Process(raw string) (string, error)
}

// ProcessorPipeline runs processors in configured order. Each processor sees
// the output of the one before it. The pipeline is read-only after construction.
type ProcessorPipeline struct {
	processors []Processor
}

// NewProcessorPipeline creates a pipeline over processors in the given order.
func NewProcessorPipeline(processors ...Processor) *ProcessorPipeline {
	return &ProcessorPipeline{processors: append([]Processor(nil), processors...)}
}

// Names returns processor names in execution order.
func (p *ProcessorPipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// Process applies every processor whose marker is present.
func (p *ProcessorPipeline) Process(raw string) (string, error) {
	value := raw
	for _, proc := range p.processors {
		if !proc.Applies(value) {
			continue
		}
		out, err := proc.Process(value)
		if err != nil {
			return "", processingError(proc.Name(), err)
		}
		value = out
	}
	return value, nil
}

func processingError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrProcessing, name, err)
}

// Base64Marker prefixes values that Base64Processor decodes.
const Base64Marker = "base64:"

// Base64Processor decodes "base64:<payload>" values using standard encoding.
type Base64Processor struct{}

func (Base64Processor) Name() string { return "base64" }

func (Base64Processor) Applies(raw string) bool {
	return strings.HasPrefix(raw, Base64Marker)
}

func (Base64Processor) Process(raw string) (string, error) {
	payload := strings.TrimSpace(strings.TrimPrefix(raw, Base64Marker))
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	return string(decoded), nil
}
