// Package formatregistry registers the built-in converter groups with a
// conversion registry. It replaces per-converter self registration with one
// explicit startup routine.
package formatregistry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/c360/formatkit/config"
	pkgerrors "github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/formats/data"
	"github.com/c360/formatkit/formats/encoding"
	"github.com/c360/formatkit/formats/hashing"
	"github.com/c360/formatkit/formats/images"
	"github.com/c360/formatkit/formats/numbers"
	"github.com/c360/formatkit/registry"
)

// group pairs a name from config.FormatGroups with its registration function.
type group struct {
	name     string
	register func(*registry.Registry) error
}

// groups run in order. Later groups win when two claim the same pair.
var groups = []group{
	{config.GroupEncoding, encoding.Register},
	{config.GroupNumbers, numbers.Register},
	{config.GroupHashing, hashing.Register},
	{config.GroupData, data.Register},
	{config.GroupImages, images.Register},
}

// Register adds every built-in converter group to reg, skipping the groups
// named in disabled:
//
//   - encoding: base64, base32, hex, url, html, ascii
//   - numbers: decimal, binary_num, hex_num, octal, roman
//   - hashing: md5, sha1, sha256, sha512, sha3_256, blake2b, crc32
//   - data: json, yaml, xml, cbor, protobuf, csv, query_string, hcl
//   - images: png, jpeg, gif, bmp, tiff, webp, plus base64, hex and binary carriers
func Register(reg *registry.Registry, disabled ...string) error {
	// Nil registry is a programming error (fatal), not invalid input
	if reg == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"FormatRegistry", "Register", "registry validation")
	}

	for _, name := range disabled {
		if !slices.Contains(config.FormatGroups, name) {
			return pkgerrors.WrapInvalid(
				fmt.Errorf("unknown converter group %q", name),
				"FormatRegistry", "Register", "group selection")
		}
	}

	for _, g := range groups {
		if slices.Contains(disabled, g.name) {
			continue
		}
		if err := g.register(reg); err != nil {
			return pkgerrors.WrapFatal(err, "FormatRegistry", "Register", g.name+" converter registration")
		}
	}
	return nil
}

// New returns a registry populated with every group enabled by cfg.
func New(cfg *config.Config, opts ...registry.Option) (*registry.Registry, error) {
	reg := registry.New(opts...)
	if err := Register(reg, cfg.Formats.Disabled...); err != nil {
		return nil, err
	}
	return reg, nil
}
