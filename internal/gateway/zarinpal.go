package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vitrin-be/internal/logger"

	"go.uber.org/zap"
)

const (
	requestPath  = "/pg/v4/payment/request.json"
	verifyPath   = "/pg/v4/payment/verify.json"
	startPayPath = "/pg/StartPay"

	// A verify timeout is indeterminate, not a failure; repeat
	// verifications answer with code 101.
	verifyAttempts = 3
	retryBackoff   = 2 * time.Second
)

// Options is injected at construction; nothing reads the environment at
// call time.
type Options struct {
	MerchantID  string
	BaseURL     string
	CallbackURL string
}

type zarinpalGateway struct {
	merchantID  string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
}

func NewZarinpalGateway(opts Options) Gateway {
	if opts.MerchantID == "" {
		logger.L().Warn("gateway merchant id is empty")
	}

	return &zarinpalGateway{
		merchantID:  opts.MerchantID,
		baseURL:     opts.BaseURL,
		callbackURL: opts.CallbackURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// zpEnvelope is the gateway's response wrapper. On success "data" is an
// object and "errors" an empty array; on failure the two are swapped.
type zpEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type zpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ----------------- RequestPayment -----------------

func (g *zarinpalGateway) RequestPayment(ctx context.Context, amountMinor int64, description string) (*RequestResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int64("amount_minor", amountMinor),
		zap.String("merchant_id", g.merchantID),
	)

	body := map[string]interface{}{
		"merchant_id":  g.merchantID,
		"amount":       amountMinor,
		"callback_url": g.callbackURL,
		"description":  description,
	}

	log.Info("requesting payment authorization")

	envelope, err := g.post(ctx, g.baseURL+requestPath, body)
	if err != nil {
		log.Error("payment request failed", zap.Error(err))
		return nil, err
	}

	var data struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.Code == 0 {
		gwErr := envelope.firstError()
		log.Warn("gateway rejected payment request",
			zap.Int("code", gwErr.Code),
			zap.String("message", gwErr.Message),
		)
		return &RequestResult{Code: gwErr.Code, Message: gwErr.Message}, nil
	}

	log.Info("payment authorized",
		zap.Int("code", data.Code),
		zap.String("authority", data.Authority),
	)

	return &RequestResult{
		Code:      data.Code,
		Authority: data.Authority,
		Message:   data.Message,
	}, nil
}

// ----------------- VerifyPayment -----------------

func (g *zarinpalGateway) VerifyPayment(ctx context.Context, amountMinor int64, authority string) (*VerifyResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("authority", authority),
		zap.Int64("amount_minor", amountMinor),
	)

	body := map[string]interface{}{
		"merchant_id": g.merchantID,
		"amount":      amountMinor,
		"authority":   authority,
	}

	var envelope *zpEnvelope
	var err error
	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		envelope, err = g.post(ctx, g.baseURL+verifyPath, body)
		if err == nil {
			break
		}

		log.Warn("verify attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == verifyAttempts {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(retryBackoff):
		}
	}

	var data struct {
		Code    int    `json:"code"`
		RefID   int64  `json:"ref_id"`
		CardPAN string `json:"card_pan"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.Code == 0 {
		gwErr := envelope.firstError()
		log.Warn("verification rejected",
			zap.Int("code", gwErr.Code),
			zap.String("message", gwErr.Message),
		)
		return &VerifyResult{Code: gwErr.Code, Message: gwErr.Message}, nil
	}

	log.Info("verification answered",
		zap.Int("code", data.Code),
		zap.Int64("ref_id", data.RefID),
	)

	return &VerifyResult{
		Code:    data.Code,
		RefID:   data.RefID,
		CardPAN: data.CardPAN,
		Message: data.Message,
	}, nil
}

func (g *zarinpalGateway) StartPayURL(authority string) string {
	return fmt.Sprintf("%s%s/%s", g.baseURL, startPayPath, authority)
}

// ----------------- HTTP plumbing -----------------

func (g *zarinpalGateway) post(ctx context.Context, url string, body map[string]interface{}) (*zpEnvelope, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("gateway error: status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var envelope zpEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &envelope, nil
}

func (e *zpEnvelope) firstError() zpError {
	var single zpError
	if err := json.Unmarshal(e.Errors, &single); err == nil && single.Code != 0 {
		return single
	}

	var many []zpError
	if err := json.Unmarshal(e.Errors, &many); err == nil && len(many) > 0 {
		return many[0]
	}

	return zpError{Code: -1, Message: "unknown gateway error"}
}
