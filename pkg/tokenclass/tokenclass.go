// Package tokenclass implements the size-class table: the closed set of
// coarse buckets that select padded plaintext lengths and max-output-token
// hints for a gateway request.
package tokenclass

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
)

// Class is a symbolic size-class variant. The zero value is not a valid
// class; always go through Parse or one of the package-level constants.
type Class struct {
	name          string
	id            int
	reqPadded     int
	respPadded    int
	maxOutputHint int
}

var (
	C256 = Class{name: "c256", id: 1, reqPadded: 8192, respPadded: 8192, maxOutputHint: 256}
	C512 = Class{name: "c512", id: 2, reqPadded: 12288, respPadded: 16384, maxOutputHint: 512}
	C1024 = Class{name: "c1024", id: 3, reqPadded: 20480, respPadded: 32768, maxOutputHint: 1024}
	C2048 = Class{name: "c2048", id: 4, reqPadded: 36864, respPadded: 65536, maxOutputHint: 2048}
	C4096 = Class{name: "c4096", id: 5, reqPadded: 69632, respPadded: 131072, maxOutputHint: 4096}
)

// all holds the canonical set in id order.
var all = [5]Class{C256, C512, C1024, C2048, C4096}

// fold performs Unicode case folding. Folding is locale-independent, so no
// language.Tag is required.
var fold = cases.Fold(cases.Compact)

// All returns the five size classes in ascending id order.
func All() []Class {
	out := make([]Class, len(all))
	copy(out, all[:])
	return out
}

// Parse accepts either the symbolic name ("c512") or the bare numeric
// suffix ("512"), case-insensitively and with surrounding whitespace
// trimmed. Any other input yields an InvalidTokenClass error.
func Parse(text string) (Class, error) {
	normalized := fold.String(strings.TrimSpace(text))

	for _, c := range all {
		if normalized == c.name {
			return c, nil
		}
	}

	// Bare numeric suffix form, e.g. "2048" or "C2048" already handled above.
	numeric := strings.TrimPrefix(normalized, "c")
	if n, err := strconv.Atoi(numeric); err == nil {
		for _, c := range all {
			if n == c.maxSuffix() {
				return c, nil
			}
		}
	}

	return Class{}, gwerrs.InvalidTokenClass(text)
}

// maxSuffix returns the numeric suffix encoded in the class name, e.g. 512
// for "c512".
func (c Class) maxSuffix() int {
	n, _ := strconv.Atoi(strings.TrimPrefix(c.name, "c"))
	return n
}

// String returns the symbolic lowercase name, e.g. "c1024".
func (c Class) String() string { return c.name }

// MarshalText implements encoding.TextMarshaler so Class plugs directly
// into YAML/JSON config and ticket files.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.name), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IsZero reports whether c is the unset zero value.
func (c Class) IsZero() bool { return c.name == "" }

// ID returns the class's small positive integer id (1..5).
func (c Class) ID() int { return c.id }

// RequestPaddedLen returns the padded length, in bytes, of a request
// plaintext frame for this class.
func (c Class) RequestPaddedLen() int { return c.reqPadded }

// ResponsePaddedLen returns the padded length, in bytes, of a response
// plaintext frame for this class.
func (c Class) ResponsePaddedLen() int { return c.respPadded }

// MaxOutputTokensHint returns the default max-output-tokens value used when
// a caller does not specify one explicitly.
func (c Class) MaxOutputTokensHint() int { return c.maxOutputHint }

// MaxPromptBytes returns the largest plaintext payload (pre-padding) that
// fits in this class's request frame, i.e. RequestPaddedLen minus the
// padding codec's 8-byte header.
func (c Class) MaxPromptBytes() int { return c.reqPadded - 8 }

// ByID returns the class with the given id (1..5), or false if none match.
func ByID(id int) (Class, bool) {
	for _, c := range all {
		if c.id == id {
			return c, true
		}
	}
	return Class{}, false
}

// Equal reports whether two classes are the same variant.
func (c Class) Equal(other Class) bool { return c.name == other.name }
