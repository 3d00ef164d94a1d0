// Package state holds the engine's in-memory bookkeeping. None of it is
// synchronized: every method must be called from the engine's loop.
package state

import (
	"github.com/harshul/coderun/internal/language"
)

// DefaultHistorySize is the number of runs kept when no size is configured.
const DefaultHistorySize = 10

// HistoryEntry records one completed run.
type HistoryEntry struct {
	RunID          string
	FileName       string
	LanguageID     string
	ElapsedSeconds float64
	ExitCode       int
	Timestamp      string
}

// History keeps the most recent runs, newest first.
type History struct {
	entries  []HistoryEntry
	capacity int
}

// NewHistory returns an empty history bounded to capacity entries.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistorySize
	}
	return &History{capacity: capacity}
}

// Push inserts e at the head and trims the oldest entries beyond capacity.
func (h *History) Push(e HistoryEntry) {
	h.entries = append([]HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
}

// Entries returns a copy, newest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Artifact is the runnable result of the last successful build.
type Artifact struct {
	Path    string
	Command string
}

// BuildCache maps a language to its most recent successful artifact.
type BuildCache struct {
	artifacts map[string]Artifact
}

func NewBuildCache() *BuildCache {
	return &BuildCache{artifacts: make(map[string]Artifact)}
}

func (c *BuildCache) Get(lang string) (Artifact, bool) {
	a, ok := c.artifacts[lang]
	return a, ok
}

func (c *BuildCache) Put(lang string, a Artifact) {
	c.artifacts[lang] = a
}

// Clear forgets every artifact.
func (c *BuildCache) Clear() {
	c.artifacts = make(map[string]Artifact)
}

func (c *BuildCache) Len() int {
	return len(c.artifacts)
}

// ProfileIndex tracks the active 1-based flag profile per language.
type ProfileIndex struct {
	active map[string]int
}

func NewProfileIndex() *ProfileIndex {
	return &ProfileIndex{active: make(map[string]int)}
}

// Index returns the active index for lang, 1 when never cycled.
func (p *ProfileIndex) Index(lang string) int {
	if i, ok := p.active[lang]; ok {
		return i
	}
	return 1
}

// Active resolves the active flag profile of prof.
func (p *ProfileIndex) Active(prof language.Profile) language.FlagProfile {
	return prof.ActiveFlags(p.Index(prof.ID))
}

// Cycle advances lang to its next profile, wrapping around. It reports false
// and leaves the index untouched when the language has no profiles.
func (p *ProfileIndex) Cycle(prof language.Profile) (string, bool) {
	n := len(prof.FlagProfiles)
	if n == 0 {
		return "", false
	}
	next := (p.Index(prof.ID) % n) + 1
	p.active[prof.ID] = next
	return prof.FlagProfiles[next-1].Name, true
}

// Subscription is an installed watch trigger.
type Subscription interface {
	Close() error
}

// Watch is the watch-mode flag and its single subscription.
type Watch struct {
	sub Subscription
}

// Enabled reports whether a subscription is installed.
func (w *Watch) Enabled() bool {
	return w.sub != nil
}

// Toggle removes the active subscription, or installs the one returned by
// subscribe. It returns the new enabled state.
func (w *Watch) Toggle(subscribe func() (Subscription, error)) (bool, error) {
	if w.sub != nil {
		err := w.sub.Close()
		w.sub = nil
		return false, err
	}
	sub, err := subscribe()
	if err != nil {
		return false, err
	}
	w.sub = sub
	return true, nil
}
