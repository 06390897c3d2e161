package connection

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// cursorPrefix marks encoded positions. Item ids are uuids and never start
// with it, so any other token is a bare id.
const cursorPrefix = "c1."

// Position places an item in a sort order: the value of the primary sort
// field and the id used as tie-break.
type Position struct {
	Value string
	ID    string
}

// EncodeCursor encodes a position into an opaque cursor token.
// Format: "c1." + base64url(sort_value + "|" + id).
func EncodeCursor(p Position) string {
	return cursorPrefix + base64.RawURLEncoding.EncodeToString([]byte(p.Value+"|"+p.ID))
}

// DecodeCursor decodes a cursor token. A token that does not carry a sort
// value is treated as a bare item id; positioned reports which form it was.
func DecodeCursor(token string) (p Position, positioned bool) {
	payload, ok := strings.CutPrefix(token, cursorPrefix)
	if !ok {
		return Position{ID: token}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil || !utf8.Valid(data) {
		return Position{ID: token}, false
	}
	// ids never contain the separator, sort values may
	i := strings.LastIndexByte(string(data), '|')
	if i < 0 || i == len(data)-1 {
		return Position{ID: token}, false
	}
	return Position{Value: string(data[:i]), ID: string(data[i+1:])}, true
}
