package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/middleware"
	"github.com/Caskiuz/nemy-marketplace/internal/models"
	"github.com/Caskiuz/nemy-marketplace/internal/services/money"
	"github.com/Caskiuz/nemy-marketplace/internal/services/transition"
	"github.com/Caskiuz/nemy-marketplace/internal/settlement"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// TransitionOrder is the single write path for order status: it hands
// the request to the settlement engine and translates the engine's
// failure taxonomy into response codes, keeping the current and
// requested states in the body for client display.
func (h *Handler) TransitionOrder(res http.ResponseWriter, req *http.Request) {
	actorID, role := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	number := chi.URLParam(req, "number")

	if err := goluhn.Validate(number); err != nil {
		zap.L().Info("order number validation failed: %w", zap.Error(err))

		res.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	var requestModel models.TransitionRequest
	if err := json.NewDecoder(req.Body).Decode(&requestModel); err != nil || requestModel.Status == "" {
		zap.L().Info("cannot decode transition request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	target := entities.OrderStatus(requestModel.Status)

	summary, err := h.engine.Transition(req.Context(), actorID, role, number, target)
	if err != nil {
		h.writeTransitionError(res, requestModel.Status, err)
		return
	}

	response := models.TransitionResponse{
		Number:    summary.OrderNumber,
		OldStatus: string(summary.OldStatus),
		NewStatus: string(summary.NewStatus),
	}

	if summary.Settled {
		response.Settlement = &models.SettlementResponse{
			PlatformFee:      money.Format(summary.PlatformFee),
			BusinessEarnings: money.Format(summary.BusinessEarnings),
			DeliveryEarnings: money.Format(summary.DeliveryEarnings),
			CashOwed:         money.Format(summary.CashOwed),
			AlreadySettled:   summary.AlreadySettled,
		}
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func (h *Handler) writeTransitionError(res http.ResponseWriter, requested string, err error) {
	var transitionErr *transition.Error
	if errors.As(err, &transitionErr) {
		response := models.TransitionErrorResponse{
			Code:            string(transitionErr.Code),
			CurrentStatus:   string(transitionErr.From),
			RequestedStatus: string(transitionErr.To),
			Reason:          transitionErr.Reason,
		}

		status := http.StatusForbidden
		if transitionErr.Code == transition.CodeInvalidTransition {
			status = http.StatusConflict
		}

		res.Header().Set("Content-Type", "application/json")
		res.WriteHeader(status)

		if err := json.NewEncoder(res).Encode(response); err != nil {
			zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
		}

		return
	}

	switch {
	case errors.Is(err, storage.ErrNoRows):
		res.WriteHeader(http.StatusNotFound)
	case errors.Is(err, settlement.ErrConflictAlreadyAssigned),
		errors.Is(err, settlement.ErrStateChanged):
		res.Header().Set("Content-Type", "application/json")
		res.WriteHeader(http.StatusConflict)

		response := models.TransitionErrorResponse{
			Code:            "conflict",
			RequestedStatus: requested,
			Reason:          err.Error(),
		}

		if err := json.NewEncoder(res).Encode(response); err != nil {
			zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
		}
	default:
		zap.L().Info("error transition order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
	}
}
