// Package hashing registers one-way digest and checksum converters.
//
// Every digest is produced by one generic converter parameterised from a
// static table. Digest outputs honour the "format" option: hex (default) or
// base64. The crc32 checksum takes hex (default, 8 digits), int or unsigned.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

// Algorithm names a digest and its constructor.
type Algorithm struct {
	Name string
	New  func() hash.Hash
}

var (
	MD5     = Algorithm{Name: "md5", New: md5.New}
	SHA1    = Algorithm{Name: "sha1", New: sha1.New}
	SHA256  = Algorithm{Name: "sha256", New: sha256.New}
	SHA512  = Algorithm{Name: "sha512", New: sha512.New}
	SHA3256 = Algorithm{Name: "sha3_256", New: sha3.New256}
	BLAKE2b = Algorithm{Name: "blake2b", New: newBLAKE2b}
)

func newBLAKE2b() hash.Hash {
	// Only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

// digests lists every (source, algorithm) combination that gets a converter.
var digests = []struct {
	source string
	algo   Algorithm
}{
	{"text", MD5},
	{"text", SHA1},
	{"text", SHA256},
	{"text", SHA512},
	{"text", SHA3256},
	{"text", BLAKE2b},
	{"binary", MD5},
	{"binary", SHA256},
}

// Target returns the format name for an algorithm's output, e.g. "sha256_hash".
func Target(a Algorithm) string {
	return a.Name + "_hash"
}

// Converters returns the group's converters in registration order.
func Converters() []converter.Converter {
	out := make([]converter.Converter, 0, len(digests)+1)
	for _, d := range digests {
		out = append(out, NewDigest(d.source, d.algo))
	}
	return append(out, converter.New("text", "crc32", crc32Checksum,
		converter.WithDescription("Generate CRC32 checksum from text"),
		converter.WithValidator(converter.ExpectString)))
}

// Register adds every hashing converter to reg.
func Register(reg *registry.Registry) error {
	for _, c := range Converters() {
		if err := reg.Register(c); err != nil {
			return errors.WrapInvalid(err, "hashing", "Register", c.From()+" -> "+c.To())
		}
	}
	return nil
}

// NewDigest builds the one-way converter source -> <algo>_hash. Text sources
// take strings, binary sources take bytes.
func NewDigest(source string, algo Algorithm) *converter.Func {
	validate := converter.ExpectString
	if source == "binary" {
		validate = converter.ExpectBytes
	}
	return converter.New(source, Target(algo), digest(algo),
		converter.WithDescription(fmt.Sprintf("Generate %s hash from %s", strings.ToUpper(algo.Name), source)),
		converter.WithValidator(validate))
}

func digest(algo Algorithm) converter.TransformFunc {
	return func(data any, opts converter.Options) (any, error) {
		h := algo.New()
		switch v := data.(type) {
		case string:
			h.Write([]byte(v))
		case []byte:
			h.Write(v)
		}
		sum := h.Sum(nil)

		switch f := opts.String("format", "hex"); f {
		case "hex":
			return hex.EncodeToString(sum), nil
		case "base64":
			return base64.StdEncoding.EncodeToString(sum), nil
		default:
			return nil, errors.Validationf("text", "unknown output format %q (use hex or base64)", f)
		}
	}
}

func crc32Checksum(data any, opts converter.Options) (any, error) {
	sum := crc32.ChecksumIEEE([]byte(data.(string)))
	switch f := opts.String("format", "hex"); f {
	case "hex":
		return fmt.Sprintf("%08x", sum), nil
	case "int", "unsigned":
		return strconv.FormatUint(uint64(sum), 10), nil
	default:
		return nil, errors.Validationf("text", "unknown output format %q (use hex, int or unsigned)", f)
	}
}
