package projection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrOptionInvalid rejects requests whose options do not fit the
// projection's declared schema.
var ErrOptionInvalid = errors.New("invalid projection option")

// OptionType is the closed set of value types an option can declare.
type OptionType string

const (
	OptionString  OptionType = "string"
	OptionNumber  OptionType = "number"
	OptionBoolean OptionType = "boolean"
	OptionEnum    OptionType = "enum"
)

// Option declares one key a projection accepts, with its type, bounds and
// default. The declaration doubles as the discovery document served to
// operator UIs.
type Option struct {
	Key     string      `json:"key"`
	Label   string      `json:"label,omitempty"`
	Type    OptionType  `json:"type"`
	Enum    []string    `json:"enum,omitempty"`
	Default interface{} `json:"default,omitempty"`
	Min     *float64    `json:"min,omitempty"`
	Max     *float64    `json:"max,omitempty"`
}

// Schema is the full option declaration of one projection.
type Schema []Option

// Options holds canonicalized request options: defaults filled in, values
// parsed into their declared types.
type Options map[string]interface{}

// Canonicalize validates raw request options against the schema and returns
// the canonical set. Unknown keys, type mismatches, out-of-range numbers and
// unlisted enum values are all rejected.
func (s Schema) Canonicalize(raw map[string]string) (Options, error) {
	opts := make(Options, len(s))
	for i := range s {
		if s[i].Default != nil {
			opts[s[i].Key] = s[i].Default
		}
	}
	for key, value := range raw {
		o := s.find(key)
		if o == nil {
			return nil, errors.Wrapf(ErrOptionInvalid, "unknown option %q", key)
		}
		parsed, err := o.parse(value)
		if err != nil {
			return nil, err
		}
		opts[key] = parsed
	}
	return opts, nil
}

func (s Schema) find(key string) *Option {
	for i := range s {
		if s[i].Key == key {
			return &s[i]
		}
	}
	return nil
}

func (o *Option) parse(value string) (interface{}, error) {
	switch o.Type {
	case OptionString:
		return value, nil
	case OptionNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrOptionInvalid, "option %q wants a number, got %q", o.Key, value)
		}
		if o.Min != nil && f < *o.Min {
			return nil, errors.Wrapf(ErrOptionInvalid, "option %q below minimum %v", o.Key, *o.Min)
		}
		if o.Max != nil && f > *o.Max {
			return nil, errors.Wrapf(ErrOptionInvalid, "option %q above maximum %v", o.Key, *o.Max)
		}
		return f, nil
	case OptionBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.Wrapf(ErrOptionInvalid, "option %q wants a boolean, got %q", o.Key, value)
		}
		return b, nil
	case OptionEnum:
		for _, e := range o.Enum {
			if e == value {
				return value, nil
			}
		}
		return nil, errors.Wrapf(ErrOptionInvalid, "option %q must be one of %v", o.Key, o.Enum)
	}
	return nil, errors.Wrapf(ErrOptionInvalid, "option %q has unsupported type %q", o.Key, o.Type)
}

// Num returns a number option, zero when absent.
func (o Options) Num(key string) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Str returns a string or enum option, empty when absent.
func (o Options) Str(key string) string {
	v, _ := o[key].(string)
	return v
}

// Bool returns a boolean option, false when absent.
func (o Options) Bool(key string) bool {
	v, _ := o[key].(bool)
	return v
}

// canonical renders the options deterministically for cache keying: sorted
// keys, numbers in their shortest form.
func (o Options) canonical() string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatOptionValue(o[k]))
	}
	return strings.Join(parts, "&")
}

func formatOptionValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return fmt.Sprintf("%v", v)
}
