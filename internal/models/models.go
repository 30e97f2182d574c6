package models

type AuthorizationRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type CreateBusinessRequest struct {
	Name string `json:"name"`
}

type CreateBusinessResponse struct {
	ID string `json:"id"`
}

// Money amounts cross the API as decimal major units and are stored as
// integer minor units.
type CreateOrderRequest struct {
	BusinessID    string  `json:"business_id"`
	Subtotal      float64 `json:"subtotal"`
	DeliveryFee   float64 `json:"delivery_fee"`
	Total         float64 `json:"total"`
	PaymentMethod string  `json:"payment_method"`
}

type OrderResponse struct {
	Number           string   `json:"number"`
	Status           string   `json:"status"`
	BusinessID       string   `json:"business_id"`
	PaymentMethod    string   `json:"payment_method"`
	Subtotal         float64  `json:"subtotal"`
	DeliveryFee      float64  `json:"delivery_fee"`
	Total            float64  `json:"total"`
	PlatformFee      *float64 `json:"platform_fee,omitempty"`
	BusinessEarnings *float64 `json:"business_earnings,omitempty"`
	DeliveryEarnings *float64 `json:"delivery_earnings,omitempty"`
	CreatedAt        string   `json:"created_at"`
	DeliveredAt      string   `json:"delivered_at,omitempty"`
}

type GetOrdersResponse []OrderResponse

type TransitionRequest struct {
	Status string `json:"status"`
}

type TransitionResponse struct {
	Number     string              `json:"number"`
	OldStatus  string              `json:"old_status"`
	NewStatus  string              `json:"new_status"`
	Settlement *SettlementResponse `json:"settlement,omitempty"`
}

type SettlementResponse struct {
	PlatformFee      float64 `json:"platform_fee"`
	BusinessEarnings float64 `json:"business_earnings"`
	DeliveryEarnings float64 `json:"delivery_earnings"`
	CashOwed         float64 `json:"cash_owed"`
	AlreadySettled   bool    `json:"already_settled"`
}

type TransitionErrorResponse struct {
	Code            string `json:"code"`
	CurrentStatus   string `json:"current_status"`
	RequestedStatus string `json:"requested_status"`
	Reason          string `json:"reason"`
}

type WalletResponse struct {
	Balance        float64 `json:"balance"`
	PendingBalance float64 `json:"pending_balance"`
	CashOwed       float64 `json:"cash_owed"`
	TotalEarned    float64 `json:"total_earned"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
	Withdrawable   float64 `json:"withdrawable"`
}

type WithdrawRequest struct {
	Amount float64 `json:"amount"`
}

type TransactionResponse struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id,omitempty"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type GetTransactionsResponse []TransactionResponse
