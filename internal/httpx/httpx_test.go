// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package httpx

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errors.ErrorCode
	}{
		{"typed", errors.New(errors.CodeNotFound, "agent not found", nil), http.StatusNotFound, errors.CodeNotFound},
		{"invalid input", errors.New(errors.CodeInvalidInput, "message is required", nil), http.StatusBadRequest, errors.CodeInvalidInput},
		{"untyped", stderrors.New("boom"), http.StatusInternalServerError, errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestMetricsWrap(t *testing.T) {
	m := NewMetrics("agentdeck_test")
	h := m.Wrap("/teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	srv := httptest.NewServer(h)
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `agentdeck_test_http_requests_total{method="GET",route="/teapot",status="418"} 1`)
	assert.Contains(t, string(body), "agentdeck_test_http_request_duration_seconds_bucket")
}
