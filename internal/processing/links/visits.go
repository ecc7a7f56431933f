package links

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DirectVisitRecorder applies a visit in place. The event is appended first,
// the counter incremented, then the event marked applied. A replayed event
// only skips the increment when the earlier attempt got that far.
type DirectVisitRecorder struct {
	repo Repository
	log  VisitLog
}

func NewDirectVisitRecorder(repo Repository, log VisitLog) *DirectVisitRecorder {
	return &DirectVisitRecorder{repo: repo, log: log}
}

func (r *DirectVisitRecorder) RecordVisit(ctx context.Context, ev VisitEvent) error {
	if ev.LinkID == "" {
		return ErrNotFound
	}
	if r.log == nil {
		return r.repo.IncrementVisits(ctx, ev.LinkID)
	}

	if err := r.log.Append(ctx, ev); err != nil {
		if !errors.Is(err, ErrDuplicateVisit) {
			return err
		}
		applied, err := r.log.Applied(ctx, ev.EventID)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}

	if err := r.repo.IncrementVisits(ctx, ev.LinkID); err != nil {
		return err
	}

	// the visit is already counted; failing here would count it twice on replay
	if err := r.log.MarkApplied(ctx, ev.EventID); err != nil {
		logger.Warn("failed to mark visit applied",
			zap.Error(err),
			zap.String("event_id", ev.EventID),
			zap.String("link_id", ev.LinkID),
		)
	}
	return nil
}
