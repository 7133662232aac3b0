package handlers

import (
	"net/http"

	"github.com/Dosada05/courtside/services"
)

type CourtHandler struct {
	courtService services.CourtService
}

func NewCourtHandler(courtService services.CourtService) *CourtHandler {
	return &CourtHandler{courtService: courtService}
}

// CreateCourt godoc
// @Summary Add a court to a tournament
// @Tags courts
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body services.CreateCourtInput true "Court label and optional division restriction"
// @Success 201 {object} map[string]interface{} "Created court"
// @Failure 409 {object} map[string]string "Label already in use"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/courts [post]
func (h *CourtHandler) CreateCourt(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.CreateCourtInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	court, err := h.courtService.CreateCourt(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"court": court}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CourtHandler) ListCourts(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	courts, err := h.courtService.ListCourts(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"courts": courts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetCourtActive godoc
// @Summary Activate or deactivate a court
// @Tags courts
// @Accept json
// @Produce json
// @Param courtID path int true "Court ID"
// @Param body body setActiveRequest true "Desired availability"
// @Success 200 {object} map[string]interface{} "Updated court"
// @Failure 409 {object} map[string]string "Court currently holds a match"
// @Security BearerAuth
// @Router /courts/{courtID}/active [put]
func (h *CourtHandler) SetCourtActive(w http.ResponseWriter, r *http.Request) {
	courtID, err := urlParamInt(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input setActiveRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	court, err := h.courtService.SetActive(r.Context(), courtID, input.Active)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"court": court}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
