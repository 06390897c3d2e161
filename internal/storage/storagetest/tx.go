package storagetest

import "context"

// Tx runs transactional callbacks inline and counts them.
type Tx struct {
	Runs int
}

// RunInTx calls fn with ctx.
func (t *Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Runs++
	return fn(ctx)
}

// Rows builds a FindMany result from records with the given ids.
func Rows(ids ...string) []map[string]any {
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"id": id}
	}
	return out
}
