// FILE: lixenwraith/props/discovery.go
package props

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions controls where a property document is looked for
type FileDiscoveryOptions struct {
	// Name is the document base name without extension
	Name string

	// Extensions are tried in order within each directory
	Extensions []string

	// Paths are searched before the current and XDG directories
	Paths []string

	// EnvVar names a variable holding an explicit document path
	EnvVar string

	// CLIFlag names a flag holding an explicit document path ("--config")
	CLIFlag string

	UseXDG        bool
	UseCurrentDir bool
}

// documentExtensions lists every extension DetectFormat recognises, TOML first.
var documentExtensions = []string{".toml", ".yaml", ".yml", ".json", ".jsonc", ".properties"}

// DefaultDiscoveryOptions searches for <app>.<ext> in the current and XDG
// directories, honouring --config and <APP>_CONFIG.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    append([]string(nil), documentExtensions...),
		EnvVar:        strings.ToUpper(strings.ReplaceAll(appName, "-", "_")) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// explicitPath returns a path named by the CLI flag or the environment.
func (o FileDiscoveryOptions) explicitPath(args []string) (string, bool) {
	if o.CLIFlag != "" {
		for i, arg := range args {
			if value, ok := strings.CutPrefix(arg, o.CLIFlag+"="); ok {
				return value, true
			}
			if arg == o.CLIFlag && i+1 < len(args) {
				return args[i+1], true
			}
		}
	}
	if o.EnvVar != "" {
		if path := os.Getenv(o.EnvVar); path != "" {
			return path, true
		}
	}
	return "", false
}

// SearchDirs returns the directories searched, in priority order.
func (o FileDiscoveryOptions) SearchDirs() []string {
	dirs := append([]string(nil), o.Paths...)
	if o.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if o.UseXDG {
		dirs = append(dirs, xdgConfigDirs(o.Name)...)
	}
	return dirs
}

// Candidates returns every path the search would try, in order.
func (o FileDiscoveryOptions) Candidates() []string {
	dirs := o.SearchDirs()
	paths := make([]string, 0, len(dirs)*len(o.Extensions))
	for _, dir := range dirs {
		for _, ext := range o.Extensions {
			paths = append(paths, filepath.Join(dir, o.Name+ext))
		}
	}
	return paths
}

// DiscoverFile locates a property document. A path given by flag or
// environment is returned without checking that it exists, so a mistyped
// explicit path surfaces as ErrFileNotFound when loaded.
func DiscoverFile(opts FileDiscoveryOptions, args []string) (string, bool) {
	if path, ok := opts.explicitPath(args); ok {
		return path, true
	}
	for _, path := range opts.Candidates() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// DiscoverFileSource loads the document found by DiscoverFile. When nothing
// is found the error wraps ErrFileNotFound, which callers may treat as non-fatal.
func DiscoverFileSource(opts FileDiscoveryOptions, args []string, fileOpts FileOptions) (*FileSource, error) {
	path, ok := DiscoverFile(opts, args)
	if !ok {
		return nil, fmt.Errorf("%w: no %s document in %d search paths", ErrFileNotFound, opts.Name, len(opts.SearchDirs()))
	}
	return NewFileSourceWithOptions(path, fileOpts)
}

// xdgConfigDirs follows the XDG base directory spec, falling back to
// ~/.config and /etc when the variables are unset.
func xdgConfigDirs(appName string) []string {
	var dirs []string
	switch {
	case os.Getenv("XDG_CONFIG_HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), appName))
	case os.Getenv("HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", appName))
	}

	system := []string{"/etc/xdg", "/etc"}
	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		system = filepath.SplitList(xdgDirs)
	}
	for _, dir := range system {
		dirs = append(dirs, filepath.Join(dir, appName))
	}
	return dirs
}
