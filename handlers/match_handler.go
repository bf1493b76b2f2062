package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-engine/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// ListLiveMatches godoc
// @Summary Матчи, идущие сейчас
// @Tags matches
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /matches/live [get]
func (h *MatchHandler) ListLiveMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListLiveMatches(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatch godoc
// @Summary Матч
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Матч не найден"
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartMatch godoc
// @Summary Начать матч
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч не в статусе SCHEDULED"
// @Failure 422 {object} map[string]string "Нет обоих участников"
// @Security BearerAuth
// @Router /matches/{matchID}/start [post]
func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.StartMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMatchScore godoc
// @Summary Обновить счёт матча
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.ScoreUpdateInput true "Счёт и заметки"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Некорректное тело запроса"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч ещё не начат"
// @Failure 422 {object} map[string]string "Некорректный счёт"
// @Security BearerAuth
// @Router /matches/{matchID}/score [patch]
func (h *MatchHandler) UpdateMatchScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ScoreUpdateInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateMatchScore(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EndMatch godoc
// @Summary Завершить матч
// @Tags matches
// @Description Фиксирует победителя и продвигает его в следующий матч.
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.EndMatchInput true "Победитель"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Некорректное тело запроса"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч не в статусе LIVE"
// @Failure 422 {object} map[string]string "Победитель не участник матча"
// @Security BearerAuth
// @Router /matches/{matchID}/end [post]
func (h *MatchHandler) EndMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.EndMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerID <= 0 {
		failedValidationResponse(w, r, map[string]string{"winner_id": "must be a positive fighter id"})
		return
	}

	match, err := h.matchService.EndMatch(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
