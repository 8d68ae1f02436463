// Package orderedset keeps strings unique while preserving the order they were first seen.
package orderedset

import (
	"encoding/json"
	"strings"
)

// Set is an insertion-ordered collection of strings. Membership is case-insensitive and ignores
// surrounding or repeated whitespace; the first spelling added is the one kept.
// The zero value is ready to use. A Set is not safe for concurrent use.
type Set struct {
	items []string
	index map[string]int
}

// New returns a set seeded with items.
func New(items ...string) *Set {
	s := &Set{}
	s.Add(items...)
	return s
}

// Key returns the membership key used for item.
func Key(item string) string {
	return strings.ToLower(strings.Join(strings.Fields(item), " "))
}

// Add appends items that are not yet present and reports how many were added.
func (s *Set) Add(items ...string) int {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	added := 0
	for _, item := range items {
		clean := strings.Join(strings.Fields(item), " ")
		if clean == "" {
			continue
		}
		key := Key(clean)
		if _, ok := s.index[key]; ok {
			continue
		}
		s.index[key] = len(s.items)
		s.items = append(s.items, clean)
		added++
	}
	return added
}

// Remove drops item if present.
func (s *Set) Remove(item string) bool {
	pos, ok := s.index[Key(item)]
	if !ok {
		return false
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, Key(item))
	for i := pos; i < len(s.items); i++ {
		s.index[Key(s.items[i])] = i
	}
	return true
}

// RemoveFunc drops every item for which fn returns true.
func (s *Set) RemoveFunc(fn func(string) bool) int {
	removed := 0
	for _, item := range s.Items() {
		if fn(item) && s.Remove(item) {
			removed++
		}
	}
	return removed
}

// Contains reports membership.
func (s *Set) Contains(item string) bool {
	if s == nil || s.index == nil {
		return false
	}
	_, ok := s.index[Key(item)]
	return ok
}

// Items returns a copy of the members in insertion order.
func (s *Set) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Clear empties the set.
func (s *Set) Clear() {
	s.items = nil
	s.index = nil
}

// MarshalJSON encodes the set as an ordered array.
func (s *Set) MarshalJSON() ([]byte, error) {
	items := s.Items()
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}
