// Package workers holds background jobs that run alongside the HTTP server.
package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
	"github.com/match-developers/matchplay/services"
)

// DeadlineWorker periodically starts deadline-based competitions whose
// enrollment deadline has passed, generating their schedules with whatever
// roster has enrolled by then.
type DeadlineWorker struct {
	competitionRepo repositories.CompetitionRepository
	scheduleService services.ScheduleService
	cron            *cron.Cron
	logger          *slog.Logger
}

func NewDeadlineWorker(
	competitionRepo repositories.CompetitionRepository,
	scheduleService services.ScheduleService,
	logger *slog.Logger,
) *DeadlineWorker {
	return &DeadlineWorker{
		competitionRepo: competitionRepo,
		scheduleService: scheduleService,
		cron:            cron.New(),
		logger:          logger,
	}
}

// Start registers the sweep on the given cron spec (e.g. "@every 1m") and
// launches the scheduler. It returns an error only for an invalid spec.
func (w *DeadlineWorker) Start(spec string) error {
	_, err := w.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		w.sweep(ctx)
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("deadline worker started", slog.String("spec", spec))
	return nil
}

// Stop halts the cron scheduler and waits for a running sweep to finish.
func (w *DeadlineWorker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info("deadline worker stopped")
}

func (w *DeadlineWorker) sweep(ctx context.Context) {
	due, err := w.competitionRepo.ListDueForStart(ctx, nil, models.PolicyDeadlineBased, time.Now())
	if err != nil {
		w.logger.Error("deadline sweep failed to list competitions", slog.Any("error", err))
		return
	}

	for _, competition := range due {
		// Caller ID 0 marks a system-initiated start; the schedule service
		// skips the organizer check for it. force=true accepts a partially
		// filled roster because the deadline, not the capacity, decides.
		_, err := w.scheduleService.Generate(ctx, competition.ID, 0, true)
		switch {
		case err == nil:
			w.logger.Info("deadline-based competition started",
				slog.Int("competition_id", competition.ID))
		case errors.Is(err, services.ErrScheduleAlreadyGenerated):
			// Another instance got there first.
		case errors.Is(err, services.ErrInsufficientParticipants):
			w.logger.Warn("deadline passed with too few participants",
				slog.Int("competition_id", competition.ID))
		default:
			w.logger.Error("deadline start failed",
				slog.Int("competition_id", competition.ID),
				slog.Any("error", err))
		}
	}
}
