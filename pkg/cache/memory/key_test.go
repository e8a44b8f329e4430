package memory

import (
	"strings"
	"testing"

	"github.com/homely-rentals/homely/pkg/models"
)

func TestBuildKeyDeterministic(t *testing.T) {
	minPrice := 500.0
	f := models.SearchFilters{City: "Berlin", MinPrice: &minPrice}

	k1, err := BuildKey("search", f)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := BuildKey("search", f)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Errorf("same input should produce same key: %s vs %s", k1, k2)
	}
	if !strings.HasPrefix(k1, "search:") {
		t.Errorf("expected namespace prefix, got %s", k1)
	}
	if !strings.Contains(k1, "Berlin") {
		t.Errorf("key should stay readable for pattern clears, got %s", k1)
	}
}

func TestBuildKeyIgnoresInsertionOrder(t *testing.T) {
	a := map[string]any{"city": "Berlin", "minPrice": 500, "rooms": 2}
	b := map[string]any{"rooms": 2, "minPrice": 500, "city": "Berlin"}

	ka, _ := BuildKey("search", a)
	kb, _ := BuildKey("search", b)
	if ka != kb {
		t.Errorf("insertion order must not change the key: %s vs %s", ka, kb)
	}

	// A struct and a map with the same fields collapse to one key too.
	minPrice := 500.0
	rooms := 2
	ks, _ := BuildKey("search", models.SearchFilters{City: "Berlin", MinPrice: &minPrice, Rooms: &rooms})
	if ks != ka {
		t.Errorf("struct and map keys differ: %s vs %s", ks, ka)
	}
}

func TestBuildKeyDistinguishesNamespaceAndValues(t *testing.T) {
	k1, _ := BuildKey("search", map[string]any{"city": "Berlin"})
	k2, _ := BuildKey("popular", map[string]any{"city": "Berlin"})
	k3, _ := BuildKey("search", map[string]any{"city": "Munich"})

	if k1 == k2 || k1 == k3 {
		t.Error("different namespace or values should produce different keys")
	}
}

func TestBuildKeyRejectsUnencodable(t *testing.T) {
	if _, err := BuildKey("search", map[string]any{"bad": make(chan int)}); err == nil {
		t.Error("expected error for unencodable filters")
	}
}
