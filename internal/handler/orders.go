package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/middleware"
	"github.com/Caskiuz/nemy-marketplace/internal/models"
	"github.com/Caskiuz/nemy-marketplace/internal/services/money"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

const orderNumberLength = 12

func (h *Handler) CreateBusiness(res http.ResponseWriter, req *http.Request) {
	actorID, role := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	if role != entities.RoleBusinessOwner && !role.IsAdmin() {
		res.WriteHeader(http.StatusForbidden)
		return
	}

	var requestModel models.CreateBusinessRequest
	if err := json.NewDecoder(req.Body).Decode(&requestModel); err != nil || requestModel.Name == "" {
		zap.L().Info("cannot decode create business request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	businessID, err := h.storage.CreateBusiness(req.Context(), actorID, requestModel.Name)
	if err != nil {
		zap.L().Info("error create business: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(res).Encode(models.CreateBusinessResponse{ID: businessID}); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

// CreateOrder is the checkout surface: the subtotal it receives already
// carries the platform markup and the total must equal subtotal plus
// delivery fee.
func (h *Handler) CreateOrder(res http.ResponseWriter, req *http.Request) {
	actorID, role := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	if role != entities.RoleCustomer {
		res.WriteHeader(http.StatusForbidden)
		return
	}

	var requestModel models.CreateOrderRequest
	if err := json.NewDecoder(req.Body).Decode(&requestModel); err != nil {
		zap.L().Info("cannot decode create order request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	order, err := h.buildOrder(actorID, requestModel)
	if err != nil {
		zap.L().Info("error invalid create order request: %w", zap.Error(err))

		res.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	created, err := h.storage.CreateOrder(req.Context(), order)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			res.WriteHeader(http.StatusConflict)
			return
		}

		zap.L().Info("error create order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(res).Encode(orderToResponse(created)); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func (h *Handler) buildOrder(customerID string, requestModel models.CreateOrderRequest) (entities.Order, error) {
	if requestModel.BusinessID == "" {
		return entities.Order{}, errors.New("business id is required")
	}

	method := entities.PaymentMethod(requestModel.PaymentMethod)
	if method != entities.PaymentMethodCard && method != entities.PaymentMethodCash {
		return entities.Order{}, errors.New("payment method must be card or cash")
	}

	subtotal := money.Convert(requestModel.Subtotal)
	deliveryFee := money.Convert(requestModel.DeliveryFee)
	total := money.Convert(requestModel.Total)

	if subtotal <= 0 || deliveryFee < 0 {
		return entities.Order{}, errors.New("amounts must be positive")
	}

	if total != subtotal+deliveryFee {
		return entities.Order{}, errors.New("total must equal subtotal plus delivery fee")
	}

	return entities.Order{
		Number:        goluhn.Generate(orderNumberLength),
		CustomerID:    customerID,
		BusinessID:    requestModel.BusinessID,
		Subtotal:      subtotal,
		DeliveryFee:   deliveryFee,
		Total:         total,
		PaymentMethod: method,
	}, nil
}

func (h *Handler) GetOrders(res http.ResponseWriter, req *http.Request) {
	actorID, role := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	orders, err := h.storage.ListOrders(req.Context(), actorID, role)
	if err != nil {
		zap.L().Info("error get orders from database: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	responseOrders := make(models.GetOrdersResponse, 0, len(orders))
	for _, order := range orders {
		responseOrders = append(responseOrders, orderToResponse(order))
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(responseOrders); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func (h *Handler) GetOrder(res http.ResponseWriter, req *http.Request) {
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

	order, err := h.storage.GetOrderByNumber(req.Context(), number)
	if err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			res.WriteHeader(http.StatusNotFound)
			return
		}

		zap.L().Info("error get order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	visible, err := h.canViewOrder(req, order, actorID, role)
	if err != nil {
		zap.L().Info("error check order visibility: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !visible {
		res.WriteHeader(http.StatusForbidden)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(orderToResponse(order)); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func (h *Handler) canViewOrder(req *http.Request, order entities.Order, actorID string, role entities.Role) (bool, error) {
	switch {
	case role.IsAdmin():
		return true, nil
	case role == entities.RoleCustomer:
		return order.CustomerID == actorID, nil
	case role == entities.RoleDriver:
		unclaimed := order.Status == entities.OrderStatusReady && !order.DeliveryPersonID.Valid
		return unclaimed || (order.DeliveryPersonID.Valid && order.DeliveryPersonID.String == actorID), nil
	case role == entities.RoleBusinessOwner:
		business, err := h.storage.GetBusiness(req.Context(), order.BusinessID)
		if err != nil {
			return false, err
		}

		return business.OwnerID == actorID, nil
	}

	return false, nil
}

func orderToResponse(order entities.Order) models.OrderResponse {
	response := models.OrderResponse{
		Number:        order.Number,
		Status:        string(order.Status),
		BusinessID:    order.BusinessID,
		PaymentMethod: string(order.PaymentMethod),
		Subtotal:      money.Format(order.Subtotal),
		DeliveryFee:   money.Format(order.DeliveryFee),
		Total:         money.Format(order.Total),
		CreatedAt:     order.CreatedAt.Format(time.RFC3339),
	}

	if order.PlatformFee.Valid {
		platformFee := money.Format(order.PlatformFee.Int64)
		response.PlatformFee = &platformFee
	}

	if order.BusinessEarnings.Valid {
		businessEarnings := money.Format(order.BusinessEarnings.Int64)
		response.BusinessEarnings = &businessEarnings
	}

	if order.DeliveryEarnings.Valid {
		deliveryEarnings := money.Format(order.DeliveryEarnings.Int64)
		response.DeliveryEarnings = &deliveryEarnings
	}

	if order.DeliveredAt.Valid {
		response.DeliveredAt = order.DeliveredAt.Time.Format(time.RFC3339)
	}

	return response
}
