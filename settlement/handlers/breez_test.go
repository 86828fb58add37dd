package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/davidjwilkins/declarative-settlements/settlement/handlers"
	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Accept        string
	RequestID     string
}

func breezServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, func() []recordedRequest) {
	var lock sync.Mutex
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lock.Lock()
		requests = append(requests, recordedRequest{
			Method:        r.Method,
			Path:          r.URL.EscapedPath(),
			Authorization: r.Header.Get("Authorization"),
			Accept:        r.Header.Get("Accept"),
			RequestID:     r.Header.Get("X-Request-Id"),
		})
		lock.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		lock.Lock()
		defer lock.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestBreez(t *testing.T) {
	ctx := context.Background()
	req := resolver.LookupRequest{InvoiceID: "inv-1", MethodID: "7", OrderID: "order-1"}

	t.Run("Payment link flow", func(t *testing.T) {
		srv, requests := breezServer(t, jsonResponse(http.StatusOK, `{"id":"inv-1","status":"Settled","checkoutLink":"https://x"}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{
			ServerURL: srv.URL + "/",
			APIKey:    "secret",
			StoreID:   "store-1",
			Flow:      consts.PaymentFlowPaymentLink,
		}, nil, nil)
		report, err := h.Lookup(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Settled", report.Status)

		recorded := requests()
		require.Len(t, recorded, 1)
		assert.Equal(t, http.MethodGet, recorded[0].Method)
		assert.Equal(t, "/api/v1/stores/store-1/invoices/inv-1", recorded[0].Path)
		assert.Equal(t, "Token secret", recorded[0].Authorization)
		assert.Equal(t, "application/json", recorded[0].Accept)
		_, err = uuid.Parse(recorded[0].RequestID)
		assert.NoError(t, err, "Each request carries a request id")
	})
	t.Run("Direct invoice flow", func(t *testing.T) {
		srv, requests := breezServer(t, jsonResponse(http.StatusOK, `{"id":"inv-1","status":"Unpaid","BOLT11":"lnbc1"}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{
			ServerURL: srv.URL,
			StoreID:   "store-1",
			Flow:      consts.PaymentFlowDirectInvoice,
		}, srv.Client(), nil)
		report, err := h.Lookup(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Unpaid", report.Status)
		assert.Equal(t, "/api/v1/stores/store-1/lightning/BTC/invoices/inv-1", requests()[0].Path)
	})
	t.Run("Flow defaults to payment link", func(t *testing.T) {
		srv, requests := breezServer(t, jsonResponse(http.StatusOK, `{"status":"New"}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, StoreID: "s"}, nil, nil)
		_, err := h.Lookup(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "/api/v1/stores/s/invoices/inv-1", requests()[0].Path)
	})
	t.Run("Ids are escaped", func(t *testing.T) {
		srv, requests := breezServer(t, jsonResponse(http.StatusOK, `{"status":"New"}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, StoreID: "s"}, nil, nil)
		_, err := h.Lookup(ctx, resolver.LookupRequest{InvoiceID: "a/b", MethodID: "7"})
		require.NoError(t, err)
		assert.Equal(t, "/api/v1/stores/s/invoices/a%2Fb", requests()[0].Path)
	})
	t.Run("Missing status field", func(t *testing.T) {
		srv, _ := breezServer(t, jsonResponse(http.StatusOK, `{"id":"inv-1"}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, StoreID: "s"}, nil, nil)
		report, err := h.Lookup(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "", report.Status)
	})
	t.Run("Non 2xx is an error", func(t *testing.T) {
		srv, _ := breezServer(t, jsonResponse(http.StatusNotFound, `{"code":"invoice-not-found"}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, StoreID: "s"}, nil, nil)
		_, err := h.Lookup(ctx, req)
		assert.True(t, errors.Is(err, errors.ErrUnexpectedStatusCode))
		assert.Contains(t, err.Error(), "404")
	})
	t.Run("Malformed body is an error", func(t *testing.T) {
		srv, _ := breezServer(t, jsonResponse(http.StatusOK, `{"status":`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, StoreID: "s"}, nil, nil)
		_, err := h.Lookup(ctx, req)
		assert.Error(t, err)
	})
	t.Run("Timeout is an error", func(t *testing.T) {
		srv, _ := breezServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})
		h := handlers.NewBreezHandler(handlers.BreezConfig{
			ServerURL: srv.URL,
			StoreID:   "s",
			Timeout:   20 * time.Millisecond,
		}, srv.Client(), nil)
		_, err := h.Lookup(ctx, req)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
	t.Run("Unreachable server is an error", func(t *testing.T) {
		srv, _ := breezServer(t, jsonResponse(http.StatusOK, `{}`))
		srv.Close()
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, StoreID: "s"}, nil, nil)
		_, err := h.Lookup(ctx, req)
		assert.Error(t, err)
	})
}

func TestBreez_Ping(t *testing.T) {
	ctx := context.Background()
	t.Run("Healthy", func(t *testing.T) {
		srv, requests := breezServer(t, jsonResponse(http.StatusOK, `{"synchronized":true}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL, APIKey: "k"}, nil, nil)
		assert.NoError(t, h.Ping(ctx))
		assert.Equal(t, "/api/v1/health", requests()[0].Path)
		assert.Equal(t, "Token k", requests()[0].Authorization)
	})
	t.Run("Unhealthy", func(t *testing.T) {
		srv, _ := breezServer(t, jsonResponse(http.StatusServiceUnavailable, `{}`))
		h := handlers.NewBreezHandler(handlers.BreezConfig{ServerURL: srv.URL}, nil, nil)
		assert.True(t, errors.Is(h.Ping(ctx), errors.ErrUnexpectedStatusCode))
	})
}
