package language

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Registry is the read-only language table consumed by the engine.
type Registry struct {
	profiles map[string]Profile
	byExt    map[string]string
}

// NewRegistry validates the profiles, attaches their strategies and indexes
// them by file extension.
func NewRegistry(profiles []Profile) (*Registry, error) {
	r := &Registry{
		profiles: make(map[string]Profile, len(profiles)),
		byExt:    make(map[string]string),
	}
	for _, p := range profiles {
		s, err := DeriveStrategy(p)
		if err != nil {
			return nil, err
		}
		p.Strategy = s
		if p.OutputFlag == "" {
			p.OutputFlag = "-o"
		}
		r.profiles[p.ID] = p
		for _, ext := range p.Extensions {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.byExt[ext] = p.ID
		}
	}
	return r, nil
}

// Lookup returns the profile registered for id.
func (r *Registry) Lookup(id string) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w for %q", ErrUnknownLanguage, id)
	}
	return p, nil
}

// Detect maps a file to a language id by its extension.
func (r *Registry) Detect(path string) (string, bool) {
	id, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return id, ok
}

// IDs returns the registered language ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Extensions returns every extension that maps to a language.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
