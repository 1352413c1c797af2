package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ProcessOrderRequest struct {
	OrderID   uint64 `json:"-"`
	UserID    uint64 `json:"user_id"`
	UserEmail string `json:"user_email"`
}

func NewProcessOrderRequestFromContext(ctx echo.Context) (*ProcessOrderRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body ProcessOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderID = id
	body.UserEmail = strings.TrimSpace(body.UserEmail)

	return &body, nil
}

func (r *ProcessOrderRequest) Validate() error {
	if r.OrderID == 0 {
		return errors.New("invalid order id")
	}
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	return nil
}

type Transaction struct {
	ID                                uint64   `json:"id"`
	Type                              string   `json:"type"`
	TransactionGroup                  string   `json:"transaction_group"`
	OrderID                           uint64   `json:"order_id,omitempty"`
	FromCollectiveID                  uint64   `json:"from_collective_id"`
	CollectiveID                      uint64   `json:"collective_id"`
	Amount                            int64    `json:"amount"`
	Currency                          string   `json:"currency"`
	HostCurrency                      string   `json:"host_currency"`
	AmountInHostCurrency              int64    `json:"amount_in_host_currency"`
	HostFeeInHostCurrency             int64    `json:"host_fee_in_host_currency"`
	PlatformFeeInHostCurrency         int64    `json:"platform_fee_in_host_currency"`
	PaymentProcessorFeeInHostCurrency int64    `json:"payment_processor_fee_in_host_currency"`
	HostCurrencyFxRate                *float64 `json:"host_currency_fx_rate,omitempty"`
	NetAmountInCollectiveCurrency     int64    `json:"net_amount_in_collective_currency"`
	Description                       string   `json:"description"`
	CreatedAt                         string   `json:"created_at"`
}

type TransactionPairResponse struct {
	Credit *Transaction `json:"credit"`
	Debit  *Transaction `json:"debit"`
}
