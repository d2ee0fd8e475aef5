package history

import (
	"context"
	"time"
)

// Adapter bridges Store to the core HistoryStore port and applies the
// configured retention after every save.
type Adapter struct {
	store     *Store
	retention time.Duration
	now       func() time.Time
}

func NewAdapter(store *Store, retention time.Duration) *Adapter {
	return &Adapter{store: store, retention: retention, now: time.Now}
}

func (a *Adapter) SaveRun(ctx context.Context, run Run) error {
	if err := a.store.SaveRun(ctx, run); err != nil {
		return err
	}
	if a.retention > 0 {
		if _, err := a.store.Prune(ctx, a.now().Add(-a.retention)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) ListRuns(ctx context.Context, crate string, limit int) ([]Run, error) {
	return a.store.ListRuns(ctx, crate, limit)
}

func (a *Adapter) Close() error {
	return a.store.Close()
}
