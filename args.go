// FILE: lixenwraith/props/args.go
package props

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ArgsSource serves properties given as command-line flags:
// --key=value, --key value, and bare --flag (true).
type ArgsSource struct {
	values map[string]string
}

// NewArgsSource parses args, normally os.Args[1:]. Non-flag arguments are ignored.
func NewArgsSource(args []string) (*ArgsSource, error) {
	values, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	return &ArgsSource{values: values}, nil
}

func (a *ArgsSource) Name() string { return "args" }

func (a *ArgsSource) Lookup(_ context.Context, name string) (string, bool, error) {
	v, ok := a.values[name]
	return v, ok, nil
}

// Keys returns the parsed property names in sorted order
func (a *ArgsSource) Keys() []string {
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseArgs processes command-line arguments into a flat name to value map.
// A later occurrence of the same flag overrides an earlier one.
func parseArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			i++
			continue
		}

		content := strings.TrimPrefix(arg, "--")
		if content == "" {
			// "--" ends flag parsing
			break
		}

		var name, value string
		if k, v, ok := strings.Cut(content, "="); ok {
			name, value = k, v
			i++
		} else {
			name = content
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				value = "true"
				i++
			} else {
				value = args[i+1]
				i += 2
			}
		}

		if name == "" {
			continue
		}
		for _, segment := range strings.Split(name, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in %q", segment, name)
			}
		}
		result[name] = value
	}
	return result, nil
}
