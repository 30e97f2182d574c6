package handler

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/middleware"
	"github.com/Caskiuz/nemy-marketplace/internal/models"
	"github.com/Caskiuz/nemy-marketplace/internal/services/jwttoken"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"go.uber.org/zap"
)

func (h *Handler) Register(res http.ResponseWriter, req *http.Request) {
	requestModel, err := h.validateAuthorizationRequest(req)
	if err != nil {
		zap.L().Info("error validate register request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	role, err := registrationRole(requestModel.Role)
	if err != nil {
		zap.L().Info("error invalid registration role: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	userID, err := h.storage.CreateUser(req.Context(), requestModel.Login, h.generatePasswordHash(requestModel.Password), role)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			zap.L().Info("error login already exists: %w", zap.Error(err))

			res.WriteHeader(http.StatusConflict)
			return
		}

		zap.L().Info("error create user: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.generateTokenAndSetCookie(res, userID, role)
}

func (h *Handler) Login(res http.ResponseWriter, req *http.Request) {
	requestModel, err := h.validateAuthorizationRequest(req)
	if err != nil {
		zap.L().Info("error validate login request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	user, err := h.storage.GetUser(req.Context(), requestModel.Login, h.generatePasswordHash(requestModel.Password))
	if err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			zap.L().Info("error login and password hash not found: %w", zap.Error(err))

			res.WriteHeader(http.StatusUnauthorized)
			return
		}

		zap.L().Info("error get user: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.generateTokenAndSetCookie(res, user.ID, user.Role)
}

// registrationRole accepts only the self-service roles; admin accounts
// are seeded administratively.
func registrationRole(role string) (entities.Role, error) {
	if role == "" {
		return entities.RoleCustomer, nil
	}

	switch entities.Role(role) {
	case entities.RoleCustomer, entities.RoleBusinessOwner, entities.RoleDriver:
		return entities.Role(role), nil
	}

	return "", fmt.Errorf("role %q is not open for registration", role)
}

func (h *Handler) generatePasswordHash(password string) string {
	passwordHash := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(passwordHash[:])
}

func (h *Handler) validateAuthorizationRequest(req *http.Request) (models.AuthorizationRequest, error) {
	var requestModel models.AuthorizationRequest

	jsonDecoder := json.NewDecoder(req.Body)

	if err := jsonDecoder.Decode(&requestModel); err != nil {
		return models.AuthorizationRequest{}, fmt.Errorf("cannot decode request to json: %w", err)
	}

	if requestModel.Login == "" || requestModel.Password == "" {
		return models.AuthorizationRequest{}, fmt.Errorf("empty login or password")
	}

	return requestModel, nil
}

func (h *Handler) generateTokenAndSetCookie(res http.ResponseWriter, userID string, role entities.Role) {
	accessToken, err := jwttoken.Generate(userID, role)
	if err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.SetCookie(res, &http.Cookie{
		Name:  middleware.TokenCookieName,
		Value: accessToken,
		Path:  "/",
	})

	res.WriteHeader(http.StatusOK)
}
