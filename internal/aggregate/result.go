package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the joined output of a job set. It keeps declaration order.
type Result[V any] struct {
	keys   []string
	values map[string]V
}

func newResult[V any](keys []string, values []V) *Result[V] {
	r := &Result[V]{
		keys:   keys,
		values: make(map[string]V, len(keys)),
	}
	for i, key := range keys {
		r.values[key] = values[i]
	}
	return r
}

// Get returns the value produced for key
func (r *Result[V]) Get(key string) (V, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in declaration order
func (r *Result[V]) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Values returns a copy of the key to value mapping
func (r *Result[V]) Values() map[string]V {
	values := make(map[string]V, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return values
}

// Len returns the number of values
func (r *Result[V]) Len() int {
	return len(r.keys)
}

// MarshalJSON encodes the result as an object whose keys follow declaration order
func (r *Result[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key %q: %w", key, err)
		}
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode value for %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
