package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/heartmarshall/social-backend/internal/view"
)

// Store holds entities and lists. All mutations are serialized by one
// mutex; readers receive deep copies and never share state with the store.
type Store struct {
	mu       sync.Mutex
	entities map[string]view.Record
	lists    map[string]List
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entities: make(map[string]view.Record),
		lists:    make(map[string]List),
	}
}

// Read returns a copy of the entity at key.
func (s *Store) Read(key string) (view.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[key]
	if !ok {
		return nil, false
	}
	return cloneRecord(e), true
}

// Merge writes the fields named in mask into the entity at key, creating it
// when absent. Unmasked fields are left untouched; nested plain records are
// merged recursively. A nil mask means every key of fields.
func (s *Store) Merge(key string, fields view.Record, mask []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeLocked(key, fields, mask, nil)
}

// SetList replaces the membership and order of a list. Entities are
// untouched.
func (s *Store) SetList(key string, l List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setListLocked(key, l.clone(), nil)
}

// List returns a copy of the list at key.
func (s *Store) List(key string) (List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[key]
	if !ok {
		return List{}, false
	}
	return l.clone(), true
}

// AppendToList adds id at the end of the list unless it is already a member.
// It reports whether the list changed.
func (s *Store) AppendToList(key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(key, id, false, nil)
}

// PrependToList adds id at the start of the list unless it is already a
// member. It reports whether the list changed.
func (s *Store) PrependToList(key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(key, id, true, nil)
}

// RemoveFromList removes id from the list. It reports whether the list
// changed.
func (s *Store) RemoveFromList(key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[key]
	if !ok {
		return false
	}
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.IDs = slices.Delete(slices.Clone(l.IDs), i, i+1)
	s.lists[key] = l
	return true
}

// Snapshot is a deep copy of the whole store.
type Snapshot struct {
	Entities map[string]view.Record
	Lists    map[string]List
}

// Snapshot copies the store content.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		Entities: make(map[string]view.Record, len(s.entities)),
		Lists:    make(map[string]List, len(s.lists)),
	}
	for k, e := range s.entities {
		out.Entities[k] = cloneRecord(e)
	}
	for k, l := range s.lists {
		out.Lists[k] = l.clone()
	}
	return out
}

// ---------------------------------------------------------------------------
// Locked helpers. A non-nil journal records prior state for rollback.
// ---------------------------------------------------------------------------

func (s *Store) mergeLocked(key string, fields view.Record, mask []string, j *journal) {
	if mask == nil {
		mask = slices.Sorted(maps.Keys(fields))
	}

	cur, ok := s.entities[key]
	if j != nil {
		j.entity(key, ok)
	}
	next := make(view.Record, len(cur)+len(mask))
	maps.Copy(next, cur)

	for _, f := range mask {
		v, present := fields[f]
		if !present {
			continue
		}
		if j != nil {
			j.field(key, f, cur)
		}
		if incoming, isRec := v.(view.Record); isRec && incoming != nil {
			if existing, ok := next[f].(view.Record); ok {
				next[f] = deepMerge(existing, incoming)
				continue
			}
		}
		next[f] = cloneValue(v)
	}
	s.entities[key] = next
}

func (s *Store) setListLocked(key string, l List, j *journal) {
	if j != nil {
		prev, ok := s.lists[key]
		j.list(key, prev, ok)
	}
	s.lists[key] = l
}

func (s *Store) insertLocked(key, id string, atStart bool, j *journal) bool {
	l, ok := s.lists[key]
	if ok && l.index(id) >= 0 {
		return false
	}
	if j != nil {
		j.list(key, l, ok)
	}
	ids := make([]string, 0, len(l.IDs)+1)
	if atStart {
		ids = append(ids, id)
		ids = append(ids, l.IDs...)
	} else {
		ids = append(ids, l.IDs...)
		ids = append(ids, id)
	}
	l.IDs = ids
	s.lists[key] = l
	return true
}

// ---------------------------------------------------------------------------
// Copies
// ---------------------------------------------------------------------------

func deepMerge(dst, src view.Record) view.Record {
	out := cloneRecord(dst)
	for k, v := range src {
		if sv, ok := v.(view.Record); ok && sv != nil {
			if dv, ok := out[k].(view.Record); ok {
				out[k] = deepMerge(dv, sv)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneRecord(r view.Record) view.Record {
	if r == nil {
		return nil
	}
	out := make(view.Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case view.Record:
		return cloneRecord(t)
	case []view.Record:
		out := make([]view.Record, len(t))
		for i, r := range t {
			out[i] = cloneRecord(r)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
