package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"design-studio-server/internal/domain"
)

const maxDescriptionLen = 2000

// DesignHandler exposes the metered generation endpoint. The quota gate
// middleware has already consumed a token by the time the handler runs.
type DesignHandler struct {
	designService domain.DesignService
	logger        domain.Logger
}

func NewDesignHandler(designService domain.DesignService, logger domain.Logger) *DesignHandler {
	return &DesignHandler{
		designService: designService,
		logger:        logger,
	}
}

// Decorate generates a redecorated version of the submitted room photo.
func (h *DesignHandler) Decorate(w http.ResponseWriter, r *http.Request) {
	if h.designService == nil {
		writeError(w, http.StatusServiceUnavailable, "Design service not configured (missing GCP_PROJECT_ID or credentials)")
		return
	}

	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.DesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description cannot be empty")
		return
	}
	if len(req.Description) > maxDescriptionLen {
		writeError(w, http.StatusBadRequest, "description too long")
		return
	}
	if req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "image_base64 is required")
		return
	}

	result, err := h.designService.Decorate(r.Context(), user.ID, &req)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		h.logger.Error("Design generation failed", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to generate design")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
