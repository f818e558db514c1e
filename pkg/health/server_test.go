package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/circuitbreaker"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	readyErr error
	statuses []ChainStatus
}

func (f *fakeSource) Ready() error { return f.readyErr }

func (f *fakeSource) ChainStatuses(_ context.Context) []ChainStatus { return f.statuses }

func newTestServer(source StatusSource, breakers *circuitbreaker.Registry, apiKey string) http.Handler {
	return NewServer("0", source, breakers, apiKey, &logger.EmptyLogger{}).Handler()
}

func serve(h http.Handler, method string, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	source := &fakeSource{}
	h := newTestServer(source, nil, "")

	rec := serve(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = serve(h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	source.readyErr = errors.New("chain 88882 client not connected")
	rec = serve(h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "88882")
}

func TestStatus(t *testing.T) {
	breakers := circuitbreaker.NewRegistry(true, 1, time.Minute, time.Hour, &logger.EmptyLogger{})
	breakers.Get("hooks.example").RecordFailure()

	source := &fakeSource{statuses: []ChainStatus{
		{ChainID: 11155111, Name: "sepolia", RPCURL: "https://rpc.sepolia", Connected: true, LatestBlock: 42,
			Balances: map[string]string{"USDC": "12.5"}},
		{ChainID: 88882, Name: "chiliz-spicy", RPCURL: "https://rpc.chiliz", Error: "dial failed"},
	}}
	rec := serve(newTestServer(source, breakers, ""), http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Sepolia  ChainStatus             `json:"chain_11155111"`
		Chiliz   ChainStatus             `json:"chain_88882"`
		Circuits []circuitbreaker.State `json:"webhook_circuits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(42), body.Sepolia.LatestBlock)
	assert.Equal(t, "12.5", body.Sepolia.Balances["USDC"])
	assert.Equal(t, "dial failed", body.Chiliz.Error)
	require.Len(t, body.Circuits, 1)
	assert.Equal(t, "hooks.example", body.Circuits[0].Name)
	assert.True(t, body.Circuits[0].Open)
}

func TestCircuitReset(t *testing.T) {
	breakers := circuitbreaker.NewRegistry(true, 1, time.Minute, time.Hour, &logger.EmptyLogger{})
	breakers.Get("hooks.example").RecordFailure()
	h := newTestServer(&fakeSource{}, breakers, "")

	tests := []struct {
		name   string
		method string
		target string
		code   int
	}{
		{"wrong method", http.MethodGet, "/circuit/reset?host=hooks.example", http.StatusMethodNotAllowed},
		{"missing host", http.MethodPost, "/circuit/reset", http.StatusBadRequest},
		{"unknown host", http.MethodPost, "/circuit/reset?host=other.example", http.StatusNotFound},
		{"known host", http.MethodPost, "/circuit/reset?host=hooks.example", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.target, nil)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.False(t, breakers.Get("hooks.example").IsOpen())
}

func TestMetricsAuth(t *testing.T) {
	t.Run("open without a key", func(t *testing.T) {
		rec := serve(newTestServer(&fakeSource{}, nil, ""), http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	h := newTestServer(&fakeSource{}, nil, "secret")
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}
			rec := serve(h, http.MethodGet, "/metrics", header)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
