package cache

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/heartmarshall/social-backend/internal/view"
)

// ErrResolved is returned when a handle is committed after it was already
// committed or rolled back.
var ErrResolved = errors.New("cache: optimistic write already resolved")

// Placement inserts the placeholder into a list.
type Placement struct {
	List    string
	Prepend bool
}

// Handle tracks one optimistic write until it is committed or rolled back.
type Handle struct {
	// Key is the placeholder entity key.
	Key  string
	Type string

	j    *journal
	done bool
}

// BeginOptimistic writes a placeholder entity of typeName with a fresh
// optimistic id, inserts it into the given lists, and returns a handle that
// remembers what was there before. Nested entities in fields carrying an id
// and __typename are normalized and their prior values journaled as well.
func (s *Store) BeginOptimistic(typeName string, fields view.Record, placements ...Placement) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := make(view.Record, len(fields)+2)
	for k, v := range fields {
		rec[k] = v
	}
	rec[view.IDField] = OptimisticPrefix + ulid.Make().String()
	rec[view.TypenameField] = typeName

	j := newJournal()
	// the record has an id and a type, so writeLocked cannot fail at the top
	// level; a nested entity without an id stays embedded
	key, _ := s.writeLocked(typeName, rec, nil, j)
	for _, p := range placements {
		s.insertLocked(p.List, key, p.Prepend, j)
	}
	j.seal(s)

	return &Handle{Key: key, Type: typeName, j: j}
}

// CommitOptimistic writes the server-confirmed entity, shaped by v, and
// swaps the placeholder for it in every list, in place. When the confirmed
// key is already a member of a list (a live event delivered it first) the
// placeholder is only removed. The placeholder entity is then deleted.
// It returns the confirmed key.
func (s *Store) CommitOptimistic(h *Handle, server view.Record, v *view.View) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.done {
		return "", ErrResolved
	}
	key, err := s.writeLocked(h.Type, server, v, nil)
	if err != nil {
		return "", err
	}
	h.done = true

	for lk, l := range s.lists {
		i := l.index(h.Key)
		if i < 0 {
			continue
		}
		ids := slices.Clone(l.IDs)
		if l.index(key) >= 0 {
			ids = slices.Delete(ids, i, i+1)
		} else {
			ids[i] = key
		}
		l.IDs = ids
		s.lists[lk] = l
	}
	s.dropPlaceholderLocked(h.Key)
	return key, nil
}

// RollbackOptimistic undoes an optimistic write. The placeholder leaves the
// entity table and every list; lists the write created and that are now
// empty are deleted. Fields of other entities go back to their prior values
// unless something wrote them since, and entities the write created are
// deleted once nothing else is left on them. Rolling back a resolved handle
// is a no-op.
func (s *Store) RollbackOptimistic(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.done {
		return
	}
	h.done = true
	j := h.j

	for key, prior := range j.fields {
		if key == h.Key {
			continue
		}
		cur, ok := s.entities[key]
		if !ok {
			continue
		}
		next := cloneRecord(cur)
		for f, p := range prior {
			if f == view.IDField || f == view.TypenameField {
				continue
			}
			now, present := next[f]
			was, wrote := j.after[key][f]
			if !present || !wrote || !reflect.DeepEqual(now, was) {
				continue
			}
			if p.present {
				next[f] = p.value
			} else {
				delete(next, f)
			}
		}
		if !j.entities[key] && onlyIdentity(next) {
			delete(s.entities, key)
			continue
		}
		s.entities[key] = next
	}

	for lk, l := range s.lists {
		i := l.index(h.Key)
		if i < 0 {
			continue
		}
		l.IDs = slices.Delete(slices.Clone(l.IDs), i, i+1)
		s.lists[lk] = l
	}
	for lk, prior := range j.lists {
		l, ok := s.lists[lk]
		if ok && !prior.existed && len(l.IDs) == 0 {
			delete(s.lists, lk)
		}
	}
	s.dropPlaceholderLocked(h.Key)
}

// dropPlaceholderLocked deletes the placeholder entity and the lists nested
// under it.
func (s *Store) dropPlaceholderLocked(key string) {
	delete(s.entities, key)
	prefix := key + "."
	for lk := range s.lists {
		if strings.HasPrefix(lk, prefix) {
			delete(s.lists, lk)
		}
	}
}

// onlyIdentity reports whether rec holds nothing beyond id and __typename.
func onlyIdentity(rec view.Record) bool {
	for f := range rec {
		if f != view.IDField && f != view.TypenameField {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

type priorField struct {
	value   any
	present bool
}

type priorList struct {
	list    List
	existed bool
}

// journal records the state an optimistic write replaced: the first value
// seen for every field and list it touched, and what it wrote.
type journal struct {
	entities map[string]bool
	fields   map[string]map[string]priorField
	lists    map[string]priorList
	after    map[string]view.Record
}

func newJournal() *journal {
	return &journal{
		entities: make(map[string]bool),
		fields:   make(map[string]map[string]priorField),
		lists:    make(map[string]priorList),
		after:    make(map[string]view.Record),
	}
}

func (j *journal) entity(key string, existed bool) {
	if _, seen := j.entities[key]; !seen {
		j.entities[key] = existed
	}
}

func (j *journal) field(key, field string, cur view.Record) {
	fs, ok := j.fields[key]
	if !ok {
		fs = make(map[string]priorField)
		j.fields[key] = fs
	}
	if _, seen := fs[field]; seen {
		return
	}
	v, present := cur[field]
	fs[field] = priorField{value: cloneValue(v), present: present}
}

func (j *journal) list(key string, prev List, existed bool) {
	if _, seen := j.lists[key]; !seen {
		j.lists[key] = priorList{list: prev.clone(), existed: existed}
	}
}

// seal captures the values the write left behind, so rollback can tell
// which fields were overwritten since.
func (j *journal) seal(s *Store) {
	for key, fs := range j.fields {
		e := s.entities[key]
		out := make(view.Record, len(fs))
		for f := range fs {
			if v, ok := e[f]; ok {
				out[f] = cloneValue(v)
			}
		}
		j.after[key] = out
	}
}
