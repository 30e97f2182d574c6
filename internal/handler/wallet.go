package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Caskiuz/nemy-marketplace/internal/middleware"
	"github.com/Caskiuz/nemy-marketplace/internal/models"
	"github.com/Caskiuz/nemy-marketplace/internal/services/money"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"go.uber.org/zap"
)

func (h *Handler) GetWallet(res http.ResponseWriter, req *http.Request) {
	actorID, _ := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	wallet, err := h.storage.GetWallet(req.Context(), actorID)
	if err != nil {
		zap.L().Info("error get wallet: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := models.WalletResponse{
		Balance:        money.Format(wallet.Balance),
		PendingBalance: money.Format(wallet.PendingBalance),
		CashOwed:       money.Format(wallet.CashOwed),
		TotalEarned:    money.Format(wallet.TotalEarned),
		TotalWithdrawn: money.Format(wallet.TotalWithdrawn),
		Withdrawable:   money.Format(wallet.Withdrawable()),
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

// Withdraw pays out at most balance minus cash owed: an outstanding
// cash debt blocks that much of the balance from leaving the wallet.
func (h *Handler) Withdraw(res http.ResponseWriter, req *http.Request) {
	actorID, _ := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	var requestModel models.WithdrawRequest
	if err := json.NewDecoder(req.Body).Decode(&requestModel); err != nil {
		zap.L().Info("cannot decode withdraw request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	amount := money.Convert(requestModel.Amount)
	if amount <= 0 {
		zap.L().Info("withdraw request with non-positive amount")

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	if _, err := h.storage.Withdraw(req.Context(), actorID, amount, "Balance withdrawal"); err != nil {
		if errors.Is(err, storage.ErrNotEnoughBalance) {
			zap.L().Info("error not enough withdrawable balance: %w", zap.Error(err))

			res.WriteHeader(http.StatusPaymentRequired)
			return
		}

		zap.L().Info("error create withdrawal: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
}

func (h *Handler) GetTransactions(res http.ResponseWriter, req *http.Request) {
	actorID, _ := middleware.Actor(req)
	if actorID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	entries, err := h.storage.ListTransactions(req.Context(), actorID)
	if err != nil {
		zap.L().Info("error get transactions: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(entries) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	response := make(models.GetTransactionsResponse, 0, len(entries))
	for _, entry := range entries {
		responseEntry := models.TransactionResponse{
			ID:          entry.ID,
			Type:        string(entry.Type),
			Amount:      money.Format(entry.Amount),
			Description: entry.Description,
			Status:      string(entry.Status),
			CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
		}

		if entry.OrderID.Valid {
			responseEntry.OrderID = entry.OrderID.String
		}

		response = append(response, responseEntry)
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}
