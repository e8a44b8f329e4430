package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BuildKey derives a cache key from a namespace and a filter value.
//
// The filters are serialized to JSON and decoded into a generic value before
// being re-encoded, so map keys always come out sorted. Two filter objects
// holding the same fields produce the same key regardless of construction order.
func BuildKey(namespace string, filters any) (string, error) {
	raw, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("encode filters: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode filters: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize filters: %w", err)
	}
	return namespace + ":" + string(canonical), nil
}
