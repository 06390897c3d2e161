package view

import (
	"encoding/json"
	"math"
)

// ResolveOne shapes a raw storage row into the entity declared by v.
//
// Scalars are copied, nested entities are resolved recursively (nil when the
// row has no sub-object, e.g. it was filtered out upstream), derived fields
// receive the full raw row, and connection fields resolve every element of
// the included array in order. Storage fields fetched only for derived
// fields are not copied. ResolveOne never performs I/O.
func ResolveOne(row Record, v *View) Record {
	if row == nil {
		return nil
	}

	out := make(Record, len(v.Fields)+1)
	out[TypenameField] = v.Type
	for name, f := range v.Fields {
		switch f.Kind {
		case KindScalar:
			if val, ok := row[name]; ok {
				out[name] = val
			}
		case KindNested:
			nested, ok := asRecord(row[name])
			if !ok {
				out[name] = nil
				continue
			}
			out[name] = ResolveOne(nested, f.View)
		case KindConnection:
			items, ok := asRecords(row[name])
			if !ok {
				out[name] = nil
				continue
			}
			out[name] = ResolveMany(items, f.View)
		case KindDerived:
			out[name] = f.Derived.Resolve(row)
		}
	}
	return out
}

// ResolveMany resolves rows in order. The result has the same length as rows.
func ResolveMany(rows []Record, v *View) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = ResolveOne(row, v)
	}
	return out
}

func asRecord(v any) (Record, bool) {
	switch r := v.(type) {
	case Record:
		return r, r != nil
	case json.RawMessage:
		var out Record
		if err := json.Unmarshal(r, &out); err != nil || out == nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

func asRecords(v any) ([]Record, bool) {
	switch items := v.(type) {
	case []Record:
		return items, true
	case []any:
		out := make([]Record, 0, len(items))
		for _, it := range items {
			if r, ok := asRecord(it); ok {
				out = append(out, r)
			}
		}
		return out, true
	case json.RawMessage:
		var out []Record
		if err := json.Unmarshal(items, &out); err != nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// Int reads a numeric storage value as int64. Aggregates arrive as int64 at
// the top level of a row but as float64 when nested inside JSON.
func Int(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(math.Round(n))
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
