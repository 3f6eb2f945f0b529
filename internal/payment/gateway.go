package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const razorpayBaseURL = "https://api.razorpay.com"

type Gateway interface {
	CreateOrder(ctx context.Context, receipt string, amount decimal.Decimal, notes map[string]string) (*ProviderOrder, error)
	VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) error
	VerifyWebhookSignature(body []byte, signature string) error
}

type razorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string) Gateway {
	if keyID == "" || keySecret == "" {
		logger.L().Warn("Razorpay credentials are empty")
	}

	return &razorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       razorpayBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateOrder registers the amount with Razorpay. Amounts go over the wire
// in paise.
func (g *razorpayGateway) CreateOrder(
	ctx context.Context,
	receipt string,
	amount decimal.Decimal,
	notes map[string]string,
) (*ProviderOrder, error) {

	paise := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	log := logger.FromCtx(ctx).With(
		zap.String("gateway", "razorpay"),
		zap.String("receipt", receipt),
		zap.Int64("amount_paise", paise),
	)

	body, err := json.Marshal(map[string]any{
		"amount":   paise,
		"currency": "INR",
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewBuffer(body))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("Razorpay request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Razorpay returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var order ProviderOrder
	if err := json.Unmarshal(bodyBytes, &order); err != nil {
		log.Error("Failed decoding Razorpay response", zap.Error(err))
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}

	log.Info("Razorpay order created", zap.String("provider_order_id", order.ID))
	return &order, nil
}

func (g *razorpayGateway) VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) error {
	return verifyHMAC([]byte(providerOrderID+"|"+providerPaymentID), g.keySecret, signature)
}

func (g *razorpayGateway) VerifyWebhookSignature(body []byte, signature string) error {
	return verifyHMAC(body, g.webhookSecret, signature)
}

func verifyHMAC(message []byte, secret, signature string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 Razorpay would send. Used by tests and
// local tooling that fakes provider callbacks.
func Sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
