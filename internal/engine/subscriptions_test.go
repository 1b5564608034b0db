package engine

import (
	"testing"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_DispatchOrder(t *testing.T) {
	r := newRegistry()
	var got []string

	r.add(eventDetected, func(scanner.Result) { got = append(got, "d1") })
	r.add(eventProcessed, func(scanner.Result) { got = append(got, "p1") })
	r.add(eventDetected, func(scanner.Result) { got = append(got, "d2") })
	r.add(eventProcessed, func(scanner.Result) { got = append(got, "p2") })

	r.dispatch(scanner.Result{Codes: []barcode.Result{{Text: "1"}}})
	assert.Equal(t, []string{"p1", "p2", "d1", "d2"}, got)

	got = nil
	r.dispatch(scanner.Result{})
	assert.Equal(t, []string{"p1", "p2"}, got, "frames without codes only reach processed handlers")
}

func TestRegistry_RemoveByToken(t *testing.T) {
	r := newRegistry()
	a := r.add(eventProcessed, func(scanner.Result) {})
	b := r.add(eventProcessed, func(scanner.Result) {})
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.count(eventProcessed))

	r.remove(eventDetected, a)
	assert.Equal(t, 2, r.count(eventProcessed), "tokens are scoped to their event kind")

	r.remove(eventProcessed, a)
	r.remove(eventProcessed, a)
	assert.Equal(t, 1, r.count(eventProcessed))
}

func TestRegistry_NilHandlerNotStored(t *testing.T) {
	r := newRegistry()
	id := r.add(eventDetected, nil)
	assert.NotEmpty(t, id)
	assert.Equal(t, 0, r.count(eventDetected))
}

func TestExhaustiveSearch(t *testing.T) {
	assert.True(t, exhaustiveSearch(scanner.PatchSizeXSmall))
	assert.True(t, exhaustiveSearch(scanner.PatchSizeSmall))
	assert.False(t, exhaustiveSearch(scanner.PatchSizeMedium))
	assert.False(t, exhaustiveSearch(scanner.PatchSizeXLarge))
}
