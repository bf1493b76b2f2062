package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-engine/services"
)

type BracketHandler struct {
	bracketService   services.BracketService
	placementService services.PlacementService
}

func NewBracketHandler(bs services.BracketService, ps services.PlacementService) *BracketHandler {
	return &BracketHandler{
		bracketService:   bs,
		placementService: ps,
	}
}

// BuildBrackets godoc
// @Summary Сформировать сетки турнира
// @Tags brackets
// @Description Группирует одобренные заявки по категориям и создаёт сетку single elimination для каждой.
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 201 {object} map[string]interface{} "Созданные сетки"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Сетки уже сформированы"
// @Failure 422 {object} map[string]string "Нет одобренных участников"
// @Security BearerAuth
// @Router /events/{eventID}/brackets [post]
func (h *BracketHandler) BuildBrackets(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	built, err := h.bracketService.BuildBrackets(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"brackets": built}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListEventBrackets godoc
// @Summary Сетки турнира со всеми матчами
// @Tags brackets
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /events/{eventID}/brackets [get]
func (h *BracketHandler) ListEventBrackets(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	list, err := h.bracketService.GetEventBrackets(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"brackets": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket godoc
// @Summary Сетка категории
// @Tags brackets
// @Produce json
// @Param bracketID path int true "Bracket ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Router /brackets/{bracketID} [get]
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GetBracket(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ComputePlacements godoc
// @Summary Подвести итоги сетки
// @Tags results
// @Description Записывает золото, серебро и бронзу и переводит сетку в COMPLETED.
// @Produce json
// @Param bracketID path int true "Bracket ID"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Failure 409 {object} map[string]string "Итоги уже подведены"
// @Failure 422 {object} map[string]string "Не все матчи завершены"
// @Security BearerAuth
// @Router /brackets/{bracketID}/placements [post]
func (h *BracketHandler) ComputePlacements(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.placementService.ComputePlacements(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListBracketResults godoc
// @Summary Призёры сетки
// @Tags results
// @Produce json
// @Param bracketID path int true "Bracket ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Router /brackets/{bracketID}/results [get]
func (h *BracketHandler) ListBracketResults(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.placementService.ListResultsByBracket(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListEventResults godoc
// @Summary Призёры турнира по всем категориям
// @Tags results
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /events/{eventID}/results [get]
func (h *BracketHandler) ListEventResults(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.placementService.ListResultsByEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
