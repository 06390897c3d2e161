// Package seqset remembers the most recent sequence numbers seen by a
// consumer, so redelivered events can be recognised without assuming they
// arrive in order.
package seqset

import "github.com/hashicorp/golang-lru/v2/simplelru"

// Set holds up to a fixed number of ids. When full, the id added longest
// ago is forgotten. Not safe for concurrent use.
type Set struct {
	ids *simplelru.LRU[int64, struct{}]
	max int64
}

// New creates a Set remembering the last size ids. size below one is
// treated as one.
func New(size int) *Set {
	ids, err := simplelru.NewLRU[int64, struct{}](max(size, 1), nil)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Set{ids: ids}
}

// Add records id and reports whether it was not already present.
func (s *Set) Add(id int64) bool {
	if s.ids.Contains(id) {
		return false
	}
	s.ids.Add(id, struct{}{})
	s.max = max(s.max, id)
	return true
}

// Has reports whether id is remembered.
func (s *Set) Has(id int64) bool { return s.ids.Contains(id) }

// Max returns the largest id ever added, or zero.
func (s *Set) Max() int64 { return s.max }

// Len returns the number of remembered ids.
func (s *Set) Len() int { return s.ids.Len() }
