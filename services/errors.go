package services

import "errors"

// Engine errors, shared across services and the HTTP error mapper.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Input validation: rejected synchronously, nothing is committed.
	ErrInsufficientParticipants = errors.New("not enough participants to build a schedule")
	ErrInvalidBracketSize       = errors.New("bracket size must be a power of two")
	ErrRosterNotFull            = errors.New("competition roster is not full")
	ErrValidationFailed         = errors.New("validation failed")

	// State machine: rejected before any mutation, never coerced.
	ErrInvalidTransition = errors.New("invalid match status transition")

	// Idempotency: fixture generation is one-shot per competition.
	ErrScheduleAlreadyGenerated = errors.New("schedule already generated for this competition")

	// Domain consistency: organizer configuration problems, no automatic
	// resolution.
	ErrDrawNotAllowed             = errors.New("a draw is not a valid result for an elimination match")
	ErrUnresolvedEliminationMatch = errors.New("elimination match cannot be canceled without organizer resolution")
	ErrInvalidMatchResult         = errors.New("match result is malformed")

	// Enrollment and CRUD.
	ErrCompetitionNotFound      = errors.New("competition not found")
	ErrCompetitionFull          = errors.New("competition enrollment is full")
	ErrRegistrationClosed       = errors.New("competition registration is closed")
	ErrCompetitionNotInProgress = errors.New("competition is not in progress")
	ErrMatchNotFound            = errors.New("match not found")
	ErrTeamNotFound             = errors.New("team not found")
	ErrWinningMethodNotFound    = errors.New("winning method not found")
	ErrForbiddenOperation       = errors.New("operation not allowed for the current user")
	ErrCompetitionNameRequired  = errors.New("competition name is required")
	ErrCompetitionInvalidDates  = errors.New("competition deadline must be after start date")
	ErrCompetitionInvalidCap    = errors.New("competition capacity must be positive")
	ErrCompetitionInvalidRounds = errors.New("competition total rounds must be positive")
)
