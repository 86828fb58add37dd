package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBreezTimeout = 10 * time.Second

const maxBodyBytes = 1 << 20

type BreezConfig struct {
	ServerURL string
	APIKey    string
	StoreID   string
	Flow      consts.PaymentFlow
	Timeout   time.Duration
}

// breezHandler looks up invoice status on a BTCPay compatible Breez server.
type breezHandler struct {
	client *http.Client
	cfg    BreezConfig
	log    *zap.Logger
}

func NewBreezHandler(cfg BreezConfig, client *http.Client, log *zap.Logger) *breezHandler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBreezTimeout
	}
	if cfg.Flow == "" {
		cfg.Flow = consts.PaymentFlowPaymentLink
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &breezHandler{
		client: client,
		cfg:    cfg,
		log:    log.Named("breez"),
	}
}

func (b *breezHandler) invoicePath(invoiceID string) string {
	store := url.PathEscape(b.cfg.StoreID)
	invoice := url.PathEscape(invoiceID)
	if b.cfg.Flow == consts.PaymentFlowDirectInvoice {
		return "/api/v1/stores/" + store + "/lightning/BTC/invoices/" + invoice
	}
	return "/api/v1/stores/" + store + "/invoices/" + invoice
}

func (b *breezHandler) Lookup(ctx context.Context, req resolver.LookupRequest) (resolver.StatusReport, error) {
	var report resolver.StatusReport
	path := b.invoicePath(req.InvoiceID)
	if err := b.get(ctx, path, &report); err != nil {
		return resolver.StatusReport{}, err
	}
	b.log.Debug("invoice status",
		zap.String("order_id", req.OrderID),
		zap.String("invoice_id", req.InvoiceID),
		zap.String("flow", string(b.cfg.Flow)),
		zap.String("status", report.Status),
	)
	return report, nil
}

// Ping checks the server is reachable and accepts our credentials.
func (b *breezHandler) Ping(ctx context.Context) error {
	return b.get(ctx, "/api/v1/health", nil)
}

func (b *breezHandler) get(ctx context.Context, path string, into interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.ServerURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+b.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: GET %s returned %d", errors.ErrUnexpectedStatusCode, path, resp.StatusCode)
	}
	if into == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(into); err != nil {
		return fmt.Errorf("decoding GET %s: %w", path, err)
	}
	return nil
}
