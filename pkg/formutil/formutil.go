// Package formutil builds application/x-www-form-urlencoded bodies whose field order is the
// order the fields were added in, unlike url.Values which sorts by key.
package formutil

import (
	"net/url"
	"strings"
)

type field struct {
	key   string
	value string
}

// Values is an ordered list of form fields. The zero value is ready to use.
type Values struct {
	fields []field
}

// Add appends a field, a key may be added more than once.
func (v *Values) Add(key, value string) {
	v.fields = append(v.fields, field{key: key, value: value})
}

// Get returns the first value stored under key.
func (v Values) Get(key string) (string, bool) {
	for _, f := range v.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return "", false
}

// Len is the number of fields.
func (v Values) Len() int {
	return len(v.fields)
}

// Keys returns the field names in insertion order.
func (v Values) Keys() []string {
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.key
	}
	return keys
}

// Encode renders the fields as "k1=v1&k2=v2", escaping both sides with query escaping.
func (v Values) Encode() string {
	var out strings.Builder
	for i, f := range v.fields {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(f.key))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(f.value))
	}
	return out.String()
}

// Join concatenates already encoded form fragments with '&', skipping empty ones so that any
// subset of optional fragments can be passed without special casing.
func Join(fragments ...string) string {
	nonEmpty := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f == "" {
			continue
		}
		nonEmpty = append(nonEmpty, f)
	}
	return strings.Join(nonEmpty, "&")
}
