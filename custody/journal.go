package custody

import (
	"context"
	"log"
)

type journalKey struct{}

// journal collects undo steps for the ledger calls made inside one Atomic group.
// Steps run with World.mu held.
type journal struct {
	undo []func()
}

// Atomic implements core.Transactor. Ledger calls made with the context handed to fn are
// journaled; if fn fails they are undone in reverse order. Undo steps are inverse
// deltas, so concurrent groups touching other accounts are not disturbed.
func (w *World) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(journalKey{}).(*journal); nested {
		return fn(ctx)
	}

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	if len(j.undo) > 0 {
		log.Printf("INFO: Rolled back %d ledger changes: %v", len(j.undo), err)
	}
	return err
}

// record registers an undo step with the journal carried by ctx, if any.
// The caller must hold w.mu.
func (w *World) record(ctx context.Context, undo func()) {
	if ctx == nil {
		return
	}
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}
