package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	errors "github.com/zennest/payment-service/internal"
)

// Client is a stateless wrapper around the payment provider's REST API. It
// never persists anything; callers decide what to do with the normalized
// results.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	timeout     time.Duration
	logger      *slog.Logger
}

type Config struct {
	BaseURL        string
	SecretKey      string
	CallbackURL    string
	RequestTimeout time.Duration
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		timeout:     timeout,
		logger:      logger,
	}
}

// InitializeResult is the provider's decoded initialize response. Raw holds
// the body exactly as received so handlers can pass it through unchanged.
type InitializeResult struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Data    InitializeData `json:"data"`

	Raw json.RawMessage `json:"-"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionData is the provider's nested transaction object, shared by the
// verify response and webhook envelopes.
type TransactionData struct {
	ID              json.Number `json:"id"`
	Status          string      `json:"status"`
	Reference       string      `json:"reference"`
	GatewayResponse string      `json:"gateway_response"`
	Channel         string      `json:"channel"`
	Currency        string      `json:"currency"`
	Fees            *int64      `json:"fees"`
	PaidAt          string      `json:"paid_at"`
}

// VerificationOutcome is the normalized result of an explicit verify call.
// A negative provider outcome (failed, abandoned) is not an error.
type VerificationOutcome struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Transaction is the parsed form of Data when the provider returned one.
	Transaction *TransactionData `json:"-"`
}

// ResolvedAccount is the normalized payout recipient created at the provider.
type ResolvedAccount struct {
	ID            string          `json:"id"`
	Name          *string         `json:"name"`
	Type          string          `json:"type"`
	AccountNumber string          `json:"accountNumber"`
	BankCode      string          `json:"bankCode"`
	BankName      string          `json:"bankName"`
	Currency      string          `json:"currency"`
	RecipientCode string          `json:"recipientCode"`
	Active        *bool           `json:"active"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
	Details       json.RawMessage `json:"details,omitempty"`
}

// Initialize starts a transaction at the provider. The provider generates the
// reference and the authorization URL the payer is redirected to.
func (c *Client) Initialize(ctx context.Context, email string, amount int64) (*InitializeResult, error) {
	payload := map[string]interface{}{
		"email":        email,
		"amount":       amount,
		"callback_url": c.callbackURL,
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/transaction/initialize", payload, true)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("failed to decode initialize response", "error", err)
		return nil, errors.NewGatewayError("undecodable initialize response", err)
	}
	result.Raw = body

	c.logger.Info("transaction initialized",
		"reference", result.Data.Reference,
		"email", email,
		"amount", amount)

	return &result, nil
}

// Verify fetches the provider's view of a transaction and maps it to a
// business outcome. Only transport and decode failures return an error.
func (c *Client) Verify(ctx context.Context, reference string) (*VerificationOutcome, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, true)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Status bool            `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.Error("failed to decode verify response", "error", err, "reference", reference)
		return nil, errors.NewGatewayError("undecodable verify response", err)
	}

	var tx *TransactionData
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		tx = &TransactionData{}
		if err := json.Unmarshal(envelope.Data, tx); err != nil {
			c.logger.Error("failed to decode transaction data", "error", err, "reference", reference)
			return nil, errors.NewGatewayError("undecodable verify response", err)
		}
	}

	providerStatus := ""
	if tx != nil {
		providerStatus = tx.Status
	}

	outcome := &VerificationOutcome{Transaction: tx}
	switch {
	case envelope.Status && providerStatus == "success":
		outcome.Status = true
		outcome.Message = "Payment verified successfully"
		outcome.Data = envelope.Data
	case providerStatus == "abandoned" || providerStatus == "failed":
		outcome.Message = "Payment was not completed. Please try again."
	default:
		outcome.Message = "Payment verification failed."
	}

	c.logger.Info("transaction verified",
		"reference", reference,
		"provider_status", providerStatus,
		"verified", outcome.Status)

	return outcome, nil
}

// ListBanks is best-effort by contract: any failure is converted to a
// structured negative body so callers never see an error. Single attempt.
func (c *Client) ListBanks(ctx context.Context) json.RawMessage {
	body, err := c.doJSON(ctx, http.MethodGet, "/bank", nil, false)
	if err != nil {
		c.logger.Warn("bank list fetch failed", "error", err)
		fallback, _ := json.Marshal(map[string]interface{}{
			"status":  false,
			"message": fmt.Sprintf("Failed to fetch banks: %v", err),
		})
		return fallback
	}
	return body
}

// ResolveAccount is two sequential provider calls forming one operation:
// resolve the account holder's name, then create a transfer recipient with
// it. When resolution yields no name the recipient is still created with a
// null name; the provider decides whether to accept that.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	resolvePath := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))

	resolveBody, err := c.doJSON(ctx, http.MethodGet, resolvePath, nil, true)
	if err != nil {
		return nil, err
	}

	var resolveResult struct {
		Data struct {
			AccountName *string `json:"account_name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resolveBody, &resolveResult); err != nil {
		c.logger.Error("failed to decode account resolve response", "error", err)
		return nil, errors.NewGatewayError("undecodable account resolve response", err)
	}

	accountName := resolveResult.Data.AccountName
	if accountName == nil || *accountName == "" {
		c.logger.Warn("account resolved without a name, creating recipient with null name",
			"account_number", accountNumber,
			"bank_code", bankCode)
		accountName = nil
	}

	recipientPayload := map[string]interface{}{
		"type":           "nuban",
		"name":           accountName,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}

	recipientBody, err := c.doJSON(ctx, http.MethodPost, "/transferrecipient", recipientPayload, true)
	if err != nil {
		return nil, err
	}

	var recipientResult struct {
		Data struct {
			ID            json.Number     `json:"id"`
			Name          *string         `json:"name"`
			Type          string          `json:"type"`
			AccountNumber string          `json:"account_number"`
			BankCode      string          `json:"bank_code"`
			BankName      string          `json:"bank_name"`
			Currency      string          `json:"currency"`
			RecipientCode string          `json:"recipient_code"`
			Active        *bool           `json:"active"`
			CreatedAt     string          `json:"createdAt"`
			UpdatedAt     string          `json:"updatedAt"`
			Details       json.RawMessage `json:"details"`
		} `json:"data"`
	}
	if err := json.Unmarshal(recipientBody, &recipientResult); err != nil {
		c.logger.Error("failed to decode transfer recipient response", "error", err)
		return nil, errors.NewGatewayError("undecodable transfer recipient response", err)
	}

	d := recipientResult.Data
	resolved := &ResolvedAccount{
		ID:            d.ID.String(),
		Name:          d.Name,
		Type:          d.Type,
		AccountNumber: d.AccountNumber,
		BankCode:      d.BankCode,
		BankName:      d.BankName,
		Currency:      d.Currency,
		RecipientCode: d.RecipientCode,
		Active:        d.Active,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Details:       d.Details,
	}

	c.logger.Info("payout recipient created",
		"recipient_code", resolved.RecipientCode,
		"bank_code", resolved.BankCode)

	return resolved, nil
}

// doJSON performs one bearer-authenticated call and returns the response
// body. Transport-level failures are retried once when retry is set; HTTP
// error statuses are not, since the provider already saw the request.
func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, retry bool) (json.RawMessage, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, errors.NewInternalError("failed to marshal gateway request", err)
		}
	}

	attempts := 1
	if retry {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := c.attempt(ctx, method, path, reqBody)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if appErr, ok := errors.IsAppError(err); ok && appErr.Code != errors.ErrCodeGatewayUnavailable {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < attempts-1 {
			c.logger.Warn("gateway call failed, retrying",
				"method", method,
				"path", path,
				"error", err)
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, reqBody []byte) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, errors.NewInternalError("failed to create gateway request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewGatewayError("gateway request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewGatewayError("failed to read gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("gateway returned error status",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, &errors.AppError{
			Type:       errors.ErrorTypeExternal,
			Code:       errors.ErrCodeGatewayResponse,
			Message:    fmt.Sprintf("gateway returned status %d", resp.StatusCode),
			StatusCode: http.StatusBadGateway,
		}
	}

	return respBody, nil
}
