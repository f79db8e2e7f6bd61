package services

import (
	"errors"
	"time"

	"github.com/match-developers/matchplay/repositories"
)

func mapCompetitionRepoError(err error) error {
	if errors.Is(err, repositories.ErrCompetitionNotFound) {
		return ErrCompetitionNotFound
	}
	return err
}

func mapMatchRepoError(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

func mapTeamRepoError(err error) error {
	if errors.Is(err, repositories.ErrTeamNotFound) {
		return ErrTeamNotFound
	}
	return err
}

func validateCompetitionDates(start, deadline time.Time) error {
	if start.IsZero() || deadline.IsZero() {
		return ErrCompetitionInvalidDates
	}
	if !start.Before(deadline) {
		return ErrCompetitionInvalidDates
	}
	return nil
}
