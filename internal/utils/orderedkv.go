package utils

import (
	"bytes"
	"encoding/json"
	"sort"
)

type KV[T any] struct {
	Key   string
	Value T
}

// OrderedKV is a string-keyed map that marshals its keys in slice order.
type OrderedKV[T any] []KV[T]

// Set replaces the value of an existing key or appends a new one.
func (om OrderedKV[T]) Set(key string, value T) OrderedKV[T] {
	for i := range om {
		if om[i].Key == key {
			om[i].Value = value
			return om
		}
	}
	return append(om, KV[T]{Key: key, Value: value})
}

func (om OrderedKV[T]) Get(key string) (T, bool) {
	for _, kv := range om {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	var zero T
	return zero, false
}

// SortByKey orders the entries lexically by key.
func (om OrderedKV[T]) SortByKey() {
	sort.SliceStable(om, func(i, j int) bool {
		return om[i].Key < om[j].Key
	})
}

func (om OrderedKV[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range om {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order found in the document.
func (om *OrderedKV[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := OrderedKV[T]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value T
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = out.Set(key, value)
	}
	*om = out
	return nil
}
