package client

import (
	"maps"
	"net/http"
	"net/textproto"
	"sync"
)

// HeaderRegistry holds headers applied to every request a Client
// sends. It is owned by the Client rather than being process-global,
// and is safe for concurrent use: last write wins per key, and a call
// only sees writes that happened before its headers were captured.
type HeaderRegistry struct {
	mu      sync.RWMutex
	headers map[string]string
}

// NewHeaderRegistry returns an empty registry.
func NewHeaderRegistry() *HeaderRegistry {
	return &HeaderRegistry{headers: make(map[string]string)}
}

// Set adds or replaces a header, matching existing names
// case-insensitively.
func (r *HeaderRegistry) Set(name, value string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers[key] = value
}

// Remove deletes a header by case-insensitive name.
func (r *HeaderRegistry) Remove(name string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.headers, key)
}

// Clear removes all registered headers.
func (r *HeaderRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.headers)
}

// Snapshot returns an independent copy of the current headers.
// In-flight calls built from an earlier snapshot are unaffected by
// later writes.
func (r *HeaderRegistry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.headers)
}

// headerSet is the resolved, ordered merge of the three header tiers
// for one call: registry headers, then per-call option headers, then
// explicit call headers. Later tiers override earlier ones by
// case-insensitive name. Built once per call, never mutated after the
// request is sent.
type headerSet struct {
	h http.Header
}

// newHeaderSet merges the tiers in override order.
func newHeaderSet(registry, options, explicit map[string]string) headerSet {
	hs := headerSet{h: make(http.Header)}
	for _, tier := range []map[string]string{registry, options, explicit} {
		for name, value := range tier {
			hs.h.Set(name, value)
		}
	}
	return hs
}

// set applies a single header, overriding any tier.
func (hs headerSet) set(name, value string) {
	hs.h.Set(name, value)
}

// get returns the value for a case-insensitive name, or "".
func (hs headerSet) get(name string) string {
	return hs.h.Get(name)
}

// apply copies the resolved headers onto an outgoing request.
func (hs headerSet) apply(req *http.Request) {
	for name, values := range hs.h {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}
}
