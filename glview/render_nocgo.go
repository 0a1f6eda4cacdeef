//go:build tinygo || !cgo

package glview

import (
	"errors"
	"image"

	"github.com/shadegraph/shadegraph"
)

func view(fragSrc string, pre *shadegraph.Prepared, cfg Config) error {
	return errors.New("require cgo for shader rendering")
}

func renderImage(fragSrc string, pre *shadegraph.Prepared, cfg ImageConfig) (*image.RGBA, error) {
	return nil, errors.New("require cgo for shader rendering")
}
