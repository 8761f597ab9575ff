// Package gulconfig loads the optional gul.toml project manifest: the
// entry file to compile, the output path, the codegen target, and
// build-cache settings, the way internal/tqw loads TQW world manifests.
package gulconfig

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrNoEntry is returned by Load when a manifest is present but names no
// entry file.
var ErrNoEntry = errors.New("gul.toml does not specify an entry file")

// Target names a native code generator backend. Only Object is implemented
// by this toolchain; the field exists so a manifest can name a future
// target without the loader rejecting it outright.
type Target string

const (
	TargetObject Target = "object"
)

// Cache holds the build-cache settings section of a manifest.
type Cache struct {
	// Enabled turns the on-disk build cache on. Defaults to true.
	Enabled bool `toml:"enabled"`

	// Path is the sqlite database file backing the cache. Defaults to
	// ".gulcache.db"; a relative path resolves against the working
	// directory, not the manifest's directory.
	Path string `toml:"path"`
}

// Manifest is the parsed contents of a gul.toml project file.
type Manifest struct {
	// Entry is the source file gulc/guli loads as the program to run or
	// compile. Required.
	Entry string `toml:"entry"`

	// Output is the destination path for gulc's generated module text.
	// Defaults to the entry path with its extension replaced by ".ll".
	Output string `toml:"output"`

	// CodegenTarget selects the native code generator backend.
	CodegenTarget Target `toml:"target"`

	Cache Cache `toml:"cache"`
}

// defaults fills in every field a manifest is allowed to omit.
func (m *Manifest) defaults() {
	if m.CodegenTarget == "" {
		m.CodegenTarget = TargetObject
	}
	if m.Output == "" {
		m.Output = deriveOutputPath(m.Entry)
	}
	if m.Cache.Path == "" {
		m.Cache.Path = ".gulcache.db"
	}
}

func deriveOutputPath(entry string) string {
	base := entry
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			base = base[:i]
			break
		}
		if base[i] == '/' || base[i] == '\\' {
			break
		}
	}
	return base + ".ll"
}

// Load reads and parses the manifest at path. A missing manifest file is
// returned as the os.ReadFile error, so callers that want to run without
// one can check for os.IsNotExist on the returned error.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}

	var m Manifest
	m.Cache.Enabled = true
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	if m.Entry == "" {
		return Manifest{}, ErrNoEntry
	}
	m.defaults()
	return m, nil
}
