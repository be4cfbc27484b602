package registry

import (
	"bytes"
	_ "embed"
	"sync"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var loadDefault = sync.OnceValue(func() *Registry {
	r, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic("registry: invalid embedded catalog: " + err.Error())
	}
	return r
})

// Default returns the registry built from the embedded catalog. The same
// instance is returned on every call.
func Default() *Registry {
	return loadDefault()
}

// DefaultCatalog returns a copy of the embedded YAML catalog, useful as a
// starting point for a custom catalog file.
func DefaultCatalog() []byte {
	return bytes.Clone(defaultCatalog)
}
