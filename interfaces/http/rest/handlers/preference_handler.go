package handlers

import (
	"net/http"
	"net/url"

	"chatter/application/commands"
	"chatter/application/commands/bus"
	"chatter/application/queries"
	querybus "chatter/application/queries/bus"
	"chatter/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// PreferenceHandler serves the preference, profile and recommendation
// endpoints for the authenticated user.
type PreferenceHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *PreferenceHandler {
	return &PreferenceHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// AddPreferenceRequest represents the request body for adding a preference
type AddPreferenceRequest struct {
	Category string `json:"category"`
	ID       string `json:"id"`
}

// PreferenceResponse echoes the affected preference
type PreferenceResponse struct {
	Category string `json:"category"`
	ID       string `json:"id"`
}

// Login handles POST /session. The profile is created on first use.
func (h *PreferenceHandler) Login(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.LoginCommand{UserID: userID}); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondProfile(w, r, userID)
}

// AddPreference handles POST /preferences
func (h *PreferenceHandler) AddPreference(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req AddPreferenceRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}

	cmd := commands.AddPreferenceCommand{UserID: userID, Category: req.Category, PreferenceID: req.ID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, PreferenceResponse{Category: req.Category, ID: req.ID})
}

// RemovePreference handles DELETE /preferences/{category}/{id}
func (h *PreferenceHandler) RemovePreference(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cmd := commands.RemovePreferenceCommand{
		UserID:       userID,
		Category:     pathParam(r, "category"),
		PreferenceID: pathParam(r, "id"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetRecommendation handles GET /recommendations/{category}. It answers
// 204 when no candidate scores above zero.
func (h *PreferenceHandler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetRecommendationQuery{
		UserID:   userID,
		Category: pathParam(r, "category"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetProfile handles GET /profile
func (h *PreferenceHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.respondProfile(w, r, userID)
}

func (h *PreferenceHandler) respondProfile(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetProfileQuery{UserID: userID})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func (h *PreferenceHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
	}
	return userID, ok
}

func (h *PreferenceHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	common.RespondAppError(w, err)
}

// pathParam returns a decoded route parameter. chi matches on RawPath when
// the request carried escaped separators, leaving the value encoded.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
