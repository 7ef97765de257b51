// FILE: lixenwraith/props/env.go
package props

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// MaxValueSize bounds a single raw value read from the environment or a file.
const MaxValueSize = 1 << 20

// EnvTransformFunc converts a property name to an environment variable name
type EnvTransformFunc func(name string) string

// EnvSource reads properties from environment variables. The exact property
// name is tried first, then its transformed form.
type EnvSource struct {
	name      string
	transform EnvTransformFunc
	lookupEnv func(string) (string, bool)
}

// NewEnvSource creates an env source using the default transform with prefix
// (db.host -> PREFIX_DB_HOST when prefix is "PREFIX_").
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		name:      "env",
		transform: defaultEnvTransform(prefix),
		lookupEnv: os.LookupEnv,
	}
}

// WithTransform replaces the name transform
func (e *EnvSource) WithTransform(fn EnvTransformFunc) *EnvSource {
	if fn != nil {
		e.transform = fn
	}
	return e
}

func (e *EnvSource) Name() string { return e.name }

func (e *EnvSource) Lookup(_ context.Context, name string) (string, bool, error) {
	candidates := []string{name}
	if t := e.transform(name); t != name {
		candidates = append(candidates, t)
	}
	for _, key := range candidates {
		if value, ok := e.lookupEnv(key); ok {
			if len(value) > MaxValueSize {
				return "", false, fmt.Errorf("environment variable %s exceeds %d bytes", key, MaxValueSize)
			}
			return value, true, nil
		}
	}
	return "", false, nil
}

// EnvName returns the transformed variable name for a property
func (e *EnvSource) EnvName(name string) string {
	return e.transform(name)
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return func(name string) string {
		env := strings.ToUpper(replacer.Replace(name))
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}
