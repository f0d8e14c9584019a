package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a request id. JSON-RPC allows either a string or an integer.
type ID struct {
	str   string
	num   int64
	isNum bool
	set   bool
}

// StringID returns a string-valued id.
func StringID(s string) ID {
	return ID{str: s, set: true}
}

// IntID returns an integer-valued id.
func IntID(n int64) ID {
	return ID{num: n, isNum: true, set: true}
}

// IsZero reports whether the id is unset (absent or null on the wire).
func (id ID) IsZero() bool {
	return !id.set
}

// Key returns a map key that keeps string "1" and integer 1 distinct.
func (id ID) Key() string {
	if id.isNum {
		return "n:" + strconv.FormatInt(id.num, 10)
	}

	return "s:" + id.str
}

// String returns the id for logging.
func (id ID) String() string {
	switch {
	case !id.set:
		return "<none>"
	case id.isNum:
		return strconv.FormatInt(id.num, 10)
	default:
		return id.str
	}
}

// Raw returns the id as it appears on the wire.
func (id ID) Raw() any {
	switch {
	case !id.set:
		return nil
	case id.isNum:
		return id.num
	default:
		return id.str
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Raw())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ID{}

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}

		*id = StringID(s)

		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be a string or an integer, got %s", data)
	}

	*id = IntID(n)

	return nil
}
