package engine

import (
	"slices"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/google/uuid"
)

type eventKind int

const (
	eventDetected eventKind = iota
	eventProcessed
)

type subscriber struct {
	id scanner.Subscription
	h  scanner.Handler
}

// registry keeps handlers in registration order.
type registry struct {
	mu        sync.RWMutex
	detected  []subscriber
	processed []subscriber
}

func newRegistry() *registry { return &registry{} }

func (r *registry) list(kind eventKind) *[]subscriber {
	if kind == eventDetected {
		return &r.detected
	}
	return &r.processed
}

func (r *registry) add(kind eventKind, h scanner.Handler) scanner.Subscription {
	id := scanner.Subscription(uuid.NewString())
	if h == nil {
		return id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.list(kind)
	*l = append(*l, subscriber{id: id, h: h})
	return id
}

func (r *registry) remove(kind eventKind, id scanner.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.list(kind)
	*l = slices.DeleteFunc(*l, func(s subscriber) bool { return s.id == id })
}

func (r *registry) count(kind eventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(*r.list(kind))
}

// dispatch delivers processed events first, then detected events.
func (r *registry) dispatch(res scanner.Result) {
	r.mu.RLock()
	processed := slices.Clone(r.processed)
	var detected []subscriber
	if res.Detected() {
		detected = slices.Clone(r.detected)
	}
	r.mu.RUnlock()

	for _, s := range processed {
		s.h(res)
	}
	for _, s := range detected {
		s.h(res)
	}
}
