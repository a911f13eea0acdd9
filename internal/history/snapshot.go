package history

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Snapshot is the canonical JSON encoding of the host state at one instant.
// It is treated as immutable.
type Snapshot []byte

// emptySnapshot is what the capture stub yields.
var emptySnapshot = Snapshot("{}")

var canonicalOptions = &pretty.Options{SortKeys: true}

// Encode serializes v into a canonical Snapshot.
// A json.RawMessage or []byte value is taken as already-encoded JSON.
func Encode(v any) (Snapshot, error) {
	var raw []byte
	switch t := v.(type) {
	case Snapshot:
		raw = t
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		raw = b
	}
	return Canonicalize(raw)
}

// Canonicalize returns data with object keys sorted and whitespace removed.
func Canonicalize(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidSnapshot
	}
	sorted := pretty.PrettyOptions(data, canonicalOptions)
	return Snapshot(pretty.Ugly(sorted)), nil
}

// Equal reports whether s and other encode the same state.
func (s Snapshot) Equal(other Snapshot) bool {
	return bytes.Equal(s, other)
}

// Decode unmarshals the snapshot into v.
func (s Snapshot) Decode(v any) error {
	return json.Unmarshal(s, v)
}

// Get looks up a gjson path such as "points.#" or "points.0.image.x".
func (s Snapshot) Get(path string) gjson.Result {
	return gjson.GetBytes(s, path)
}

func (s Snapshot) String() string {
	return string(s)
}
