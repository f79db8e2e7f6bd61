package handlers

import (
	"net/http"
	"strconv"

	"github.com/match-developers/matchplay/middleware"
	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/services"
)

type CompetitionHandler struct {
	competitionService services.CompetitionService
	scheduleService    services.ScheduleService
	matchService       services.MatchService
}

func NewCompetitionHandler(
	competitionService services.CompetitionService,
	scheduleService services.ScheduleService,
	matchService services.MatchService,
) *CompetitionHandler {
	return &CompetitionHandler{
		competitionService: competitionService,
		scheduleService:    scheduleService,
		matchService:       matchService,
	}
}

func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var input services.CreateCompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.OrganizerID = organizerID

	competition, err := h.competitionService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *models.CompetitionStatus
	if s := r.URL.Query().Get("status"); s != "" {
		v := models.CompetitionStatus(s)
		status = &v
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	competitions, err := h.competitionService.List(r.Context(), status, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": competitions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var input services.JoinInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID == nil {
		input.UserID = &userID
	}

	team, err := h.competitionService.Join(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, team, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) Standings(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.competitionService.Standings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateSchedule starts the competition on the organizer's request,
// producing the full fixture list for leagues or the opening round of a
// knockout bracket.
func (h *CompetitionHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	force := r.URL.Query().Get("force") == "true"

	matches, err := h.scheduleService.Generate(r.Context(), id, callerID, force)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	if err := h.competitionService.Cancel(r.Context(), id, callerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompetitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	if err := h.competitionService.Delete(r.Context(), id, callerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompetitionHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if s := r.URL.Query().Get("round"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			errorResponse(w, r, http.StatusBadRequest, "invalid round parameter")
			return
		}
		round = &v
	}
	var status *models.MatchStatus
	if s := r.URL.Query().Get("status"); s != "" {
		v := models.MatchStatus(s)
		status = &v
	}

	matches, err := h.matchService.ListByCompetition(r.Context(), id, round, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
