package cache

import (
	"errors"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/view"
)

// ErrNoID is returned when a record to normalize has no string id.
var ErrNoID = errors.New("cache: record has no id")

// Write normalizes a resolved record of typeName and merges it into the
// store. Nested entities are merged under their own keys and replaced by
// Refs; nested entity lists become named Lists replaced by ListRefs. The
// type of a nested entity comes from its __typename, or from v when set.
// The merge mask at every level is the set of fields present in the record.
// It returns the key of the record.
func (s *Store) Write(typeName string, rec view.Record, v *view.View) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(typeName, rec, v, nil)
}

// WriteMany writes records in order and returns their keys.
func (s *Store) WriteMany(typeName string, recs []view.Record, v *view.View) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		key, err := s.writeLocked(typeName, rec, v, nil)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Store) writeLocked(typeName string, rec view.Record, v *view.View, j *journal) (string, error) {
	if t, ok := rec[view.TypenameField].(string); ok && t != "" {
		typeName = t
	}
	id, ok := rec[view.IDField].(string)
	if !ok || id == "" || typeName == "" {
		return "", fmt.Errorf("%w: %s", ErrNoID, typeName)
	}
	key := Key(typeName, id)

	body := make(view.Record, len(rec)+1)
	for name, val := range rec {
		var sub *view.View
		if v != nil {
			if f, ok := v.Fields[name]; ok {
				sub = f.View
			}
		}

		if nested, ok := val.(view.Record); ok && nested != nil {
			if childType, ok := entityType(nested, sub); ok {
				childKey, err := s.writeLocked(childType, nested, sub, j)
				if err != nil {
					return "", fmt.Errorf("%s.%s: %w", key, name, err)
				}
				body[name] = Ref{Key: childKey}
				continue
			}
		}

		if items, ok := entityList(val, sub); ok {
			ids := make([]string, 0, len(items))
			for _, item := range items {
				childType, _ := entityType(item, sub)
				childKey, err := s.writeLocked(childType, item, sub, j)
				if err != nil {
					return "", fmt.Errorf("%s.%s: %w", key, name, err)
				}
				ids = append(ids, childKey)
			}
			listKey := ListKey(key, name)
			prev := s.lists[listKey]
			s.setListLocked(listKey, List{IDs: ids, Args: prev.Args}, j)
			body[name] = ListRef{Key: listKey}
			continue
		}

		body[name] = val
	}
	body[view.TypenameField] = typeName

	s.mergeLocked(key, body, nil, j)
	return key, nil
}

// entityType reports whether rec is an entity and its type.
func entityType(rec view.Record, v *view.View) (string, bool) {
	if _, ok := rec[view.IDField].(string); !ok {
		return "", false
	}
	if t, ok := rec[view.TypenameField].(string); ok && t != "" {
		return t, true
	}
	if v != nil {
		return v.Type, true
	}
	return "", false
}

// entityList reports whether val is a non-empty list of entities, or an
// empty list declared as a relation by v.
func entityList(val any, v *view.View) ([]view.Record, bool) {
	var items []view.Record
	switch t := val.(type) {
	case []view.Record:
		items = t
	case []any:
		items = make([]view.Record, 0, len(t))
		for _, e := range t {
			r, ok := e.(view.Record)
			if !ok {
				return nil, false
			}
			items = append(items, r)
		}
	default:
		return nil, false
	}
	if len(items) == 0 {
		return items, v != nil
	}
	for _, r := range items {
		if _, ok := entityType(r, v); !ok {
			return nil, false
		}
	}
	return items, true
}

// ReadView returns the entity at key with Refs and ListRefs replaced by the
// entities they point at. With a view only its fields (plus id and
// __typename) are returned; without one every stored field is.
func (s *Store) ReadView(key string, v *view.View) (view.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.denormalizeLocked(key, v, map[string]bool{})
}

// ReadList returns the entities of a list in order, denormalized by v.
// Members missing from the entity table are skipped.
func (s *Store) ReadList(listKey string, v *view.View) []view.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.lists[listKey]
	out := make([]view.Record, 0, len(l.IDs))
	for _, id := range l.IDs {
		if rec, ok := s.denormalizeLocked(id, v, map[string]bool{}); ok {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Store) denormalizeLocked(key string, v *view.View, seen map[string]bool) (view.Record, bool) {
	e, ok := s.entities[key]
	if !ok {
		return nil, false
	}
	if seen[key] {
		return view.Record{view.IDField: e[view.IDField], view.TypenameField: e[view.TypenameField]}, true
	}
	seen[key] = true
	defer delete(seen, key)

	out := make(view.Record, len(e))
	for name, val := range e {
		var sub *view.View
		if v != nil {
			f, ok := v.Fields[name]
			if !ok && name != view.IDField && name != view.TypenameField {
				continue
			}
			sub = f.View
		}

		switch ref := val.(type) {
		case Ref:
			if rec, ok := s.denormalizeLocked(ref.Key, sub, seen); ok {
				out[name] = rec
			} else {
				out[name] = nil
			}
		case ListRef:
			l := s.lists[ref.Key]
			items := make([]view.Record, 0, len(l.IDs))
			for _, id := range l.IDs {
				if rec, ok := s.denormalizeLocked(id, sub, seen); ok {
					items = append(items, rec)
				}
			}
			out[name] = items
		default:
			out[name] = cloneValue(val)
		}
	}
	return out, true
}
