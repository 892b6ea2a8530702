package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcin-skalski/gerrit-top/internal/gerrit"
	"github.com/marcin-skalski/gerrit-top/internal/tui"
)

// Source is the subset of the Gerrit API a poll needs.
type Source interface {
	Hostname() string
	Version(ctx context.Context) (string, error)
	ProjectCount(ctx context.Context) (int, error)
	OpenChanges(ctx context.Context, limit int) ([]gerrit.Change, error)
}

type Poller struct {
	src    Source
	logger *slog.Logger
	now    func() time.Time
}

func New(src Source, logger *slog.Logger) *Poller {
	return &Poller{src: src, logger: logger, now: time.Now}
}

// Poll runs the three fetches one after another and returns a new snapshot.
// A field whose fetch fails is carried over from prev. The timestamp is taken
// once all fetches are done.
func (p *Poller) Poll(ctx context.Context, prev tui.Snapshot, maxChanges int) tui.Snapshot {
	next := tui.Snapshot{
		Hostname:     p.src.Hostname(),
		Version:      prev.Version,
		ProjectCount: prev.ProjectCount,
		Changes:      prev.Changes,
	}
	if next.Hostname == "" {
		next.Hostname = prev.Hostname
	}

	if v, err := p.src.Version(ctx); err != nil {
		p.fetchFailed(ctx, "version", err)
	} else {
		next.Version = v
	}

	if n, err := p.src.ProjectCount(ctx); err != nil {
		p.fetchFailed(ctx, "projects", err)
	} else {
		next.ProjectCount = n
	}

	if changes, err := p.src.OpenChanges(ctx, maxChanges); err != nil {
		p.fetchFailed(ctx, "changes", err)
	} else {
		next.Changes = toRows(changes)
	}

	next.Timestamp = p.now()

	p.logger.Debug("polled server",
		"host", next.Hostname,
		"version", next.Version,
		"projects", next.ProjectCount,
		"open_changes", len(next.Changes))

	return next
}

// Run polls every interval until ctx is done, handing each snapshot to emit.
// size reports the current display rows, which bound the change count. A poll
// cut short by cancellation is never emitted.
func (p *Poller) Run(ctx context.Context, interval time.Duration, size func() int, emit func(tui.Snapshot)) error {
	p.logger.Info("poller started", "interval", interval)

	snap := p.Poll(ctx, tui.InitialSnapshot(), size())
	if err := ctx.Err(); err != nil {
		p.logger.Info("poller stopped")
		return err
	}
	emit(snap)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			snap = p.Poll(ctx, snap, size())
			if err := ctx.Err(); err != nil {
				p.logger.Info("poller stopped")
				return err
			}
			emit(snap)
		}
	}
}

// fetchFailed logs at debug once ctx is done, since shutdown aborts every
// in-flight request.
func (p *Poller) fetchFailed(ctx context.Context, endpoint string, err error) {
	if ctx.Err() != nil {
		p.logger.Debug("fetch aborted", "endpoint", endpoint, "err", err)
		return
	}
	p.logger.Warn("fetch failed, keeping previous value", "endpoint", endpoint, "err", err)
}

func toRows(changes []gerrit.Change) []tui.ChangeRow {
	rows := make([]tui.ChangeRow, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, tui.ChangeRow{
			Number:     c.Number,
			Owner:      c.Owner,
			ChangeID:   c.ChangeID,
			Subject:    c.Subject,
			Insertions: c.Insertions,
			Deletions:  c.Deletions,
		})
	}
	return rows
}
