package bundle

import "sync/atomic"

// Holder publishes the active bundle to concurrent readers. Swaps replace the
// whole bundle, so a reader never observes a mix of old and new artifacts.
type Holder struct {
	p atomic.Pointer[Bundle]
}

// NewHolder returns a Holder publishing b, which may be nil.
func NewHolder(b *Bundle) *Holder {
	h := &Holder{}
	if b != nil {
		h.p.Store(b)
	}
	return h
}

// Get returns the active bundle, or nil if none is loaded.
func (h *Holder) Get() *Bundle { return h.p.Load() }

// Swap publishes b and returns the bundle it replaced.
func (h *Holder) Swap(b *Bundle) *Bundle { return h.p.Swap(b) }

// Reload loads dir and publishes it. On failure the active bundle is kept.
func (h *Holder) Reload(dir string) (*Bundle, error) {
	b, err := Load(dir)
	if err != nil {
		return nil, err
	}
	h.p.Store(b)
	logger.Logf("reloaded model bundle from %s", dir)
	return b, nil
}
