// Package sync holds the reconciliation engine: an outbound pass that
// projects tasks and stories into the reminder store, and an inbound
// pass that folds reminder edits back into the documents. Both passes
// are diff-and-merge: no detected change, no write, so re-running
// against unchanged data is free.
package sync

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/bobhq/bobsync/pkg/bob"
	"github.com/bobhq/bobsync/pkg/reminders"
)

// Options configures one engine instance.
type Options struct {
	// Owner scopes every document query.
	Owner string
	// List is the reminder list new entries are created in.
	List string
	// ExtraLists are additional list titles scanned on the inbound pass.
	ExtraLists []string
	// DryRun suppresses every write and logs what would change.
	DryRun bool
}

// Engine reconciles the two stores. Both clients are injected so tests
// can substitute in-memory fakes.
type Engine struct {
	docs bob.Store
	rems reminders.Store
	log  *log.Logger
	opts Options
}

func New(docs bob.Store, rems reminders.Store, logger *log.Logger, opts Options) *Engine {
	return &Engine{docs: docs, rems: rems, log: logger, opts: opts}
}

// Run executes one full sync: outbound fully completes before inbound
// starts, so the inbound pass never races data this run just wrote.
// External failures are logged and end the run early; partial
// completion is safe because the next run re-converges.
func (e *Engine) Run(ctx context.Context) {
	sc, err := e.loadContext(ctx)
	if err != nil {
		e.log.Error("loading sync context", "err", err)
		return
	}
	if sc.Empty() {
		e.log.Info("no tasks or stories to sync", "owner", e.opts.Owner)
		return
	}
	if err := e.outbound(ctx, sc); err != nil {
		e.log.Error("outbound pass aborted", "err", err)
		return
	}
	if err := e.inbound(ctx, sc); err != nil {
		e.log.Error("inbound pass aborted", "err", err)
	}
}
