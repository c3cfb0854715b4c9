package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/v2"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

// MapProvider returns a koanf provider serving a nested config document.
// Every Read returns a deep copy, so loading the layer never aliases m.
func MapProvider(m map[string]any) koanf.Provider {
	return mapProvider(m)
}

type mapProvider map[string]any

// ReadBytes returns an error as map provider doesn't support byte serialization.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns a copy of the document.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Copy(m), nil
}
