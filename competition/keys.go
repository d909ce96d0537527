package competition

import (
	"bytes"
	stdjson "encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// FlexString is a scalar that upstream software serializes either as a JSON
// string or as a JSON number. Athlete keys, team ids and lot numbers all
// arrive in both forms depending on the producer version. The decoded value
// is canonicalized so that map lookups and set membership never depend on
// which form was sent.
type FlexString string

// UnmarshalJSON accepts strings, numbers and null.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errors.New("empty value")
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := stdjson.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n stdjson.Number
	if err := stdjson.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "value is neither string nor number")
	}
	if i, err := n.Int64(); err == nil {
		*s = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*s = FlexString(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// IsZero reports whether no value was present.
func (s FlexString) IsZero() bool {
	return s == ""
}

// OrderEntry is one element of a start-order or lifting-order array. Entries
// are either an athlete key or a spacer marking a category or lift-type
// boundary. On the wire an entry is a bare scalar key or an object of the
// form {"isSpacer": true, "title": "..."}.
type OrderEntry struct {
	Key    FlexString `json:"key,omitempty"`
	Spacer bool       `json:"isSpacer,omitempty"`
	Title  string     `json:"title,omitempty"`
}

// UnmarshalJSON accepts both the scalar and the object wire forms.
func (e *OrderEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		type plain OrderEntry
		var p plain
		if err := stdjson.Unmarshal(b, &p); err != nil {
			return err
		}
		*e = OrderEntry(p)
		return nil
	}
	var k FlexString
	if err := k.UnmarshalJSON(b); err != nil {
		return err
	}
	*e = OrderEntry{Key: k}
	return nil
}

// Keys filters spacers out of an order array and returns the athlete keys in
// order.
func Keys(entries []OrderEntry) []FlexString {
	keys := make([]FlexString, 0, len(entries))
	for _, e := range entries {
		if e.Spacer {
			continue
		}
		keys = append(keys, e.Key)
	}
	return keys
}
