package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/scheduling"
	"github.com/Dosada05/courtside/services"
)

type SchedulingHandler struct {
	schedulingService services.SchedulingService
	summaryService    services.SummaryService
}

func NewSchedulingHandler(schedulingService services.SchedulingService, summaryService services.SummaryService) *SchedulingHandler {
	return &SchedulingHandler{
		schedulingService: schedulingService,
		summaryService:    summaryService,
	}
}

type versionedRequest struct {
	Version int `json:"version"`
}

type assignRequest struct {
	CourtID int `json:"court_id"`
	Version int `json:"version"`
}

type completeRequest struct {
	Version int     `json:"version"`
	Score   *string `json:"score,omitempty"`
}

type setTeamsRequest struct {
	Version int  `json:"version"`
	Team1ID *int `json:"team1_id"`
	Team2ID *int `json:"team2_id"`
}

// AssignMatch godoc
// @Summary Assign a queued match to a specific court
// @Tags scheduling
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param body body assignRequest true "Target court and expected match version"
// @Success 200 {object} map[string]interface{} "Assigned match"
// @Failure 400 {object} map[string]string "Not queued or court restricted"
// @Failure 404 {object} map[string]string "Match or court not found"
// @Failure 409 {object} map[string]string "Court occupied or version conflict"
// @Security BearerAuth
// @Router /matches/{matchID}/assign [post]
func (h *SchedulingHandler) AssignMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input assignRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.schedulingService.Assign(r.Context(), matchID, input.CourtID, input.Version)
	if err != nil {
		h.respondConflictWithState(w, r, matchID, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SchedulingHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.schedulingService.Start)
}

func (h *SchedulingHandler) UnassignMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.schedulingService.Unassign)
}

func (h *SchedulingHandler) RetireMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.schedulingService.Retire)
}

func (h *SchedulingHandler) RequeueMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.schedulingService.Requeue)
}

func (h *SchedulingHandler) EnqueueMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.schedulingService.Enqueue)
}

// CompleteMatch godoc
// @Summary Complete an active match, optionally recording the score
// @Tags scheduling
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param body body completeRequest true "Expected version and optional score"
// @Success 200 {object} map[string]interface{} "Completed match"
// @Security BearerAuth
// @Router /matches/{matchID}/complete [post]
func (h *SchedulingHandler) CompleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input completeRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.schedulingService.Complete(r.Context(), matchID, input.Version, input.Score)
	if err != nil {
		h.respondConflictWithState(w, r, matchID, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SchedulingHandler) SetMatchTeams(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input setTeamsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.schedulingService.SetMatchTeams(r.Context(), matchID, input.Version, input.Team1ID, input.Team2ID)
	if err != nil {
		h.respondConflictWithState(w, r, matchID, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceCourt godoc
// @Summary Pull the next eligible queued match onto a free court
// @Tags scheduling
// @Produce json
// @Param courtID path int true "Court ID"
// @Success 200 {object} services.AdvanceResult "advanced=false means the queue had nothing eligible"
// @Security BearerAuth
// @Router /courts/{courtID}/advance [post]
func (h *SchedulingHandler) AdvanceCourt(w http.ResponseWriter, r *http.Request) {
	courtID, err := urlParamInt(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.schedulingService.Advance(r.Context(), courtID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SchedulingHandler) AdvanceAllCourts(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.schedulingService.AdvanceAll(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SchedulingHandler) SeedQueue(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.schedulingService.SeedQueue(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"enqueued": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListQueue godoc
// @Summary List queued matches in play order
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param division_id query int false "Restrict to one division"
// @Success 200 {object} map[string]interface{} "Queued matches"
// @Router /tournaments/{tournamentID}/queue [get]
func (h *SchedulingHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	divisionID, err := queryParamInt(r, "division_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.schedulingService.ListQueue(r.Context(), tournamentID, divisionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetSummary godoc
// @Summary Tournament dashboard counters
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} models.Summary
// @Router /tournaments/{tournamentID}/summary [get]
func (h *SchedulingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.summaryService.GetSummary(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, summary, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SchedulingHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.schedulingService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type matchOp func(ctx context.Context, matchID, expectedVersion int) (*models.Match, error)

// transition funnels the single-match lifecycle endpoints through one
// body-parse + respond path.
func (h *SchedulingHandler) transition(w http.ResponseWriter, r *http.Request, op matchOp) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input versionedRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := op(r.Context(), matchID, input.Version)
	if err != nil {
		h.respondConflictWithState(w, r, matchID, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// respondConflictWithState attaches the current match state to version
// conflict responses so the client can retry without a second round
// trip.
func (h *SchedulingHandler) respondConflictWithState(w http.ResponseWriter, r *http.Request, matchID int, err error) {
	if !errors.Is(err, scheduling.ErrConcurrentModification) {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	env := jsonResponse{"error": err.Error()}
	if match, getErr := h.schedulingService.GetMatch(r.Context(), matchID); getErr == nil {
		env["match"] = match
	}
	if writeErr := writeJSON(w, http.StatusConflict, env, nil); writeErr != nil {
		serverErrorResponse(w, r, writeErr)
	}
}
