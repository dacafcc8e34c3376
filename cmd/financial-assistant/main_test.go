// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOllama struct {
	mu       sync.Mutex
	models   []string
	messages []string
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.models = append(f.models, req.Model)
	if n := len(req.Messages); n > 0 {
		f.messages = append(f.messages, req.Messages[n-1].Content)
	}
	f.mu.Unlock()

	enc := json.NewEncoder(w)
	if req.Stream {
		_ = enc.Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "NVDA: Strong Buy"}})
		_ = enc.Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": ""}, "done": true})
		return
	}
	_ = enc.Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "NVDA: Strong Buy"}, "done": true})
}

func args(t *testing.T, srv *httptest.Server, extra ...string) []string {
	return append([]string{
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-set", "llm.provider=ollama",
		"-set", "llm.base_url=" + srv.URL,
		"-set", "log.level=error",
	}, extra...)
}

func TestRun(t *testing.T) {
	for _, stream := range []bool{true, false} {
		fake := &fakeOllama{}
		srv := httptest.NewServer(fake)

		extra := []string{"-query", "How is NVDA doing?"}
		if !stream {
			extra = append(extra, "-no-stream")
		}
		var out bytes.Buffer
		require.NoError(t, run(args(t, srv, extra...), &out))
		srv.Close()

		assert.Contains(t, out.String(), "NVDA: Strong Buy")
		require.Len(t, fake.models, 1)
		assert.Equal(t, "llama-3.1-70b-versatile", fake.models[0])
		assert.Equal(t, "How is NVDA doing?", fake.messages[0])
	}
}

func TestRun_BadFlag(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"-nope"}, &out))
}
