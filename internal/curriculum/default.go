package curriculum

import (
	"embed"
	"io/fs"
)

//go:embed data/*.yaml
var defaultData embed.FS

// NewDefaultLoader returns a loader for the bundled six-level curriculum
func NewDefaultLoader() *Loader {
	sub, err := fs.Sub(defaultData, "data")
	if err != nil {
		panic("chatty: embedded curriculum missing: " + err.Error())
	}
	return NewFSLoader(sub, "embedded")
}

// LoadDefault loads the bundled curriculum into a new registry
func LoadDefault() (*Registry, error) {
	r := NewRegistry(NewDefaultLoader())
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Open returns a loaded registry for path, or the bundled curriculum when
// path is empty.
func Open(path string) (*Registry, error) {
	if path == "" {
		return LoadDefault()
	}
	r := NewRegistry(NewLoader(path))
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}
