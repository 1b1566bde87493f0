package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker periodically rewrites Badger's value log so disk space
// freed by compactions is actually reclaimed. Badger never does this on
// its own; it has to be driven by the application.
type BadgerGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewBadgerGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{log: log, db: db, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// One call rewrites at most one file; loop until nothing is left.
			for {
				err := w.db.RunValueLogGC(0.5)
				if errors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					w.log.Warn("Value log GC failed", "error", err)
					break
				}
				w.log.Debug("Value log file rewritten")
			}
		}
	}
}
