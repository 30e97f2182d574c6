package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Caskiuz/nemy-marketplace/internal/middleware"
	"go.uber.org/zap"
)

func (h *Handler) RunAudit(res http.ResponseWriter, req *http.Request) {
	actorID, role := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	if !role.IsAdmin() {
		res.WriteHeader(http.StatusForbidden)
		return
	}

	report, err := h.auditor.RunQuickAudit(req.Context())
	if err != nil {
		zap.L().Info("error run audit: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(report); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}
