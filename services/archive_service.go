package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
	"github.com/match-developers/matchplay/storage"
)

// standingsArchiver writes the final ranked table of a finished competition
// to object storage as a JSON snapshot. Archiving is best effort: a failed
// upload is logged and never rolls the competition back.
type standingsArchiver struct {
	competitionRepo repositories.CompetitionRepository
	standingRepo    repositories.StandingRepository
	store           storage.ObjectStore
	logger          *slog.Logger
}

func NewStandingsArchiver(
	competitionRepo repositories.CompetitionRepository,
	standingRepo repositories.StandingRepository,
	store storage.ObjectStore,
	logger *slog.Logger,
) StandingsArchiver {
	return &standingsArchiver{
		competitionRepo: competitionRepo,
		standingRepo:    standingRepo,
		store:           store,
		logger:          logger,
	}
}

type standingsSnapshot struct {
	CompetitionID int                           `json:"competition_id"`
	Name          string                        `json:"name"`
	Kind          models.CompetitionKind        `json:"kind"`
	ArchivedAt    time.Time                     `json:"archived_at"`
	Standings     []*models.CompetitionStanding `json:"standings"`
}

func standingsKey(competitionID int) string {
	return fmt.Sprintf("standings/competition_%d.json", competitionID)
}

func (a *standingsArchiver) ArchiveStandings(ctx context.Context, competitionID int) {
	if a.store == nil {
		return
	}

	competition, err := a.competitionRepo.GetByID(ctx, nil, competitionID)
	if err != nil {
		a.logger.Warn("standings archive skipped: failed to load competition",
			slog.Int("competition_id", competitionID),
			slog.Any("error", err))
		return
	}
	standings, err := a.standingRepo.ListRanked(ctx, nil, competitionID)
	if err != nil {
		a.logger.Warn("standings archive skipped: failed to load standings",
			slog.Int("competition_id", competitionID),
			slog.Any("error", err))
		return
	}

	payload, err := json.Marshal(standingsSnapshot{
		CompetitionID: competitionID,
		Name:          competition.Name,
		Kind:          competition.Kind,
		ArchivedAt:    time.Now().UTC(),
		Standings:     standings,
	})
	if err != nil {
		a.logger.Warn("standings archive skipped: failed to marshal snapshot",
			slog.Int("competition_id", competitionID),
			slog.Any("error", err))
		return
	}

	key := standingsKey(competitionID)
	stored, err := a.store.Put(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		a.logger.Warn("standings archive upload failed",
			slog.Int("competition_id", competitionID),
			slog.String("key", key),
			slog.Any("error", err))
		return
	}

	a.logger.Info("standings archived",
		slog.Int("competition_id", competitionID),
		slog.String("location", stored.URL))
}

func (a *standingsArchiver) RemoveStandings(ctx context.Context, competitionID int) {
	if a.store == nil {
		return
	}
	key := standingsKey(competitionID)
	if err := a.store.Remove(ctx, key); err != nil {
		a.logger.Warn("standings archive removal failed",
			slog.Int("competition_id", competitionID),
			slog.String("key", key),
			slog.Any("error", err))
		return
	}
	a.logger.Info("standings archive removed",
		slog.Int("competition_id", competitionID),
		slog.String("key", key))
}
