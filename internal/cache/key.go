// Package cache is the client-side normalized entity store. Entities live
// once under their TypeName:id key; nested entities are stored as Refs and
// nested lists as named Lists, so every reader observes the latest merged
// value of a key.
package cache

import (
	"strings"

	"github.com/heartmarshall/social-backend/internal/connection"
)

// OptimisticPrefix starts the id of every placeholder entity.
const OptimisticPrefix = "optimistic:"

// Key returns the normalized key of an entity.
func Key(typeName, id string) string {
	return typeName + ":" + id
}

// ParseKey splits a key into type name and id.
func ParseKey(key string) (typeName, id string, ok bool) {
	return strings.Cut(key, ":")
}

// IsOptimistic reports whether key names a placeholder entity.
func IsOptimistic(key string) bool {
	_, id, ok := ParseKey(key)
	return ok && strings.HasPrefix(id, OptimisticPrefix)
}

// Ref replaces a nested entity inside a stored entity.
type Ref struct {
	Key string
}

// ListRef replaces a nested entity list inside a stored entity.
type ListRef struct {
	Key string
}

// ListKey names the list held by field of the entity at key.
func ListKey(key, field string) string {
	return key + "." + field
}

// List is the membership and order of a named list of entity keys, plus what
// is needed to fetch the next page.
type List struct {
	IDs        []string
	Args       connection.Args
	NextCursor string
	PrevCursor string
	HasNext    bool
}

func (l List) clone() List {
	l.IDs = append([]string(nil), l.IDs...)
	return l
}

func (l List) index(id string) int {
	for i, v := range l.IDs {
		if v == id {
			return i
		}
	}
	return -1
}
