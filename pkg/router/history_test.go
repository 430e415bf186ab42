package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPushAndBack(t *testing.T) {
	h := New("/")
	h.Push("/dashboard")
	h.Push("/login")
	require.Equal(t, "/login", h.Path())
	assert.Equal(t, []string{"/", "/dashboard", "/login"}, h.Entries())

	h.Back()
	assert.Equal(t, "/dashboard", h.Path())
	assert.Equal(t, 2, h.Len())
}

func TestHistoryBackAtStart(t *testing.T) {
	h := New("")
	h.Back()
	assert.Equal(t, "/", h.Path())
	assert.Equal(t, 1, h.Len())
}

func TestHistoryListeners(t *testing.T) {
	h := New("/")
	var seen []string
	cancel := h.Listen(func(p string) { seen = append(seen, p) })

	h.Push("/a")
	h.Push("/b")
	h.Back()
	cancel()
	h.Push("/c")

	assert.Equal(t, []string{"/a", "/b", "/a"}, seen)
}

func TestHistoryListenerMayNavigate(t *testing.T) {
	h := New("/")
	h.Listen(func(p string) {
		if p == "/private" {
			h.Push("/login")
		}
	})

	h.Push("/private")
	assert.Equal(t, "/login", h.Path())
	assert.Equal(t, []string{"/", "/private", "/login"}, h.Entries())
}
