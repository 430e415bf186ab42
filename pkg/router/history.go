// Package router provides an in-memory history router.
package router

import (
	"sync"
)

// History is a stack of visited paths with path-change listeners.
// Listeners run synchronously on the navigating goroutine, after the
// history lock is released, so they may navigate again.
type History struct {
	mu        sync.Mutex
	entries   []string
	listeners map[uint64]func(string)
	nextID    uint64
}

// New creates a history positioned at start.
func New(start string) *History {
	if start == "" {
		start = "/"
	}
	return &History{
		entries:   []string{start},
		listeners: make(map[uint64]func(string)),
	}
}

// Path returns the current path.
func (h *History) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Push navigates to path.
func (h *History) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	fns := h.snapshotListeners()
	h.mu.Unlock()

	notify(fns, path)
}

// Back returns to the previous entry. At the first entry it does nothing.
func (h *History) Back() {
	h.mu.Lock()
	if len(h.entries) == 1 {
		h.mu.Unlock()
		return
	}
	h.entries = h.entries[:len(h.entries)-1]
	path := h.entries[len(h.entries)-1]
	fns := h.snapshotListeners()
	h.mu.Unlock()

	notify(fns, path)
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of the history stack, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Listen registers fn for path changes.
func (h *History) Listen(fn func(path string)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *History) snapshotListeners() []func(string) {
	fns := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(string), path string) {
	for _, fn := range fns {
		fn(path)
	}
}
