package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type StripeConfig struct {
	SecretKey   string
	APIBaseURL  string
	HTTPTimeout time.Duration
}

// StripeClient talks to the Stripe API directly over form-encoded HTTP.
// Host-scoped calls set the Stripe-Account header so the request executes
// against the host's connected account instead of the platform account.
type StripeClient struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripeClient(cfg StripeConfig) *StripeClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = "https://api.stripe.com"
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return &StripeClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *StripeClient) CreateCustomer(ctx context.Context, hostAccount, token, email, description string) (*Customer, error) {
	values := url.Values{}
	values.Set("source", token)
	if strings.TrimSpace(email) != "" {
		values.Set("email", email)
	}
	if strings.TrimSpace(description) != "" {
		values.Set("description", description)
	}

	body, err := c.postForm(ctx, hostAccount, "/v1/customers", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, errors.New("stripe customer id missing")
	}

	return &Customer{ID: payload.ID}, nil
}

func (c *StripeClient) CreateToken(ctx context.Context, hostAccount, customerID string) (*Token, error) {
	values := url.Values{}
	values.Set("customer", customerID)

	body, err := c.postForm(ctx, hostAccount, "/v1/tokens", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, errors.New("stripe token id missing")
	}

	return &Token{ID: payload.ID}, nil
}

func (c *StripeClient) CreateCharge(ctx context.Context, hostAccount string, in *ChargeInput) (*Charge, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(in.Amount, 10))
	values.Set("currency", strings.ToLower(in.Currency))
	values.Set("source", in.Source)
	values.Set("description", in.Description)
	if in.ApplicationFee > 0 {
		values.Set("application_fee", strconv.FormatInt(in.ApplicationFee, 10))
	}
	for k, v := range in.Metadata {
		values.Set("metadata["+k+"]", v)
	}

	body, err := c.postForm(ctx, hostAccount, "/v1/charges", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID                 string `json:"id"`
		BalanceTransaction string `json:"balance_transaction"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, errors.New("stripe charge id missing")
	}

	return &Charge{
		ID:                   payload.ID,
		BalanceTransactionID: payload.BalanceTransaction,
		Raw:                  string(body),
	}, nil
}

func (c *StripeClient) RetrieveBalanceTransaction(ctx context.Context, hostAccount, id string) (*BalanceTransaction, error) {
	body, err := c.getJSON(ctx, hostAccount, "/v1/balance_transactions/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID         string `json:"id"`
		Amount     int64  `json:"amount"`
		Currency   string `json:"currency"`
		Fee        int64  `json:"fee"`
		FeeDetails []struct {
			Type   string `json:"type"`
			Amount int64  `json:"amount"`
		} `json:"fee_details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	result := &BalanceTransaction{
		ID:       payload.ID,
		Amount:   payload.Amount,
		Currency: strings.ToUpper(payload.Currency),
		Fee:      payload.Fee,
		Raw:      string(body),
	}
	for _, detail := range payload.FeeDetails {
		result.FeeDetails = append(result.FeeDetails, FeeDetail{Type: detail.Type, Amount: detail.Amount})
	}

	return result, nil
}

// GetOrCreatePlan looks up the plan by its deterministic id and creates it
// on the host account when missing. Plans are shared across orders with
// identical interval, amount, and currency.
func (c *StripeClient) GetOrCreatePlan(ctx context.Context, hostAccount string, in *PlanInput) (*Plan, error) {
	planID := PlanID(in)

	body, err := c.getJSON(ctx, hostAccount, "/v1/plans/"+url.PathEscape(planID))
	if err == nil {
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		return &Plan{ID: payload.ID}, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		return nil, err
	}

	values := url.Values{}
	values.Set("id", planID)
	values.Set("interval", in.Interval)
	values.Set("amount", strconv.FormatInt(in.Amount, 10))
	values.Set("currency", strings.ToLower(in.Currency))
	values.Set("name", planID)

	body, err = c.postForm(ctx, hostAccount, "/v1/plans", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &Plan{ID: payload.ID}, nil
}

func (c *StripeClient) CreateSubscription(ctx context.Context, hostAccount, customerID string, in *SubscriptionInput) (*Subscription, error) {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("items[0][plan]", in.PlanID)
	if in.ApplicationFeePercent > 0 {
		values.Set("application_fee_percent", strconv.FormatFloat(in.ApplicationFeePercent, 'f', -1, 64))
	}
	if in.TrialEnd > 0 {
		values.Set("trial_end", strconv.FormatInt(in.TrialEnd, 10))
	}
	for k, v := range in.Metadata {
		values.Set("metadata["+k+"]", v)
	}

	body, err := c.postForm(ctx, hostAccount, "/v1/subscriptions", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, errors.New("stripe subscription id missing")
	}

	return &Subscription{ID: payload.ID}, nil
}

// PlanID derives the reusable plan identifier from the plan terms.
func PlanID(in *PlanInput) string {
	return in.Interval + "-" + strconv.FormatInt(in.Amount, 10) + "-" + strings.ToLower(in.Currency)
}

type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe request failed: path=%s status=%d body=%s", e.Path, e.StatusCode, e.Body)
}

func (c *StripeClient) postForm(ctx context.Context, hostAccount, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, hostAccount, path)
}

func (c *StripeClient) getJSON(ctx context.Context, hostAccount, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	return c.do(req, hostAccount, path)
}

func (c *StripeClient) do(req *http.Request, hostAccount, path string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	if strings.TrimSpace(hostAccount) != "" {
		req.Header.Set("Stripe-Account", hostAccount)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
