// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result results_links result--ad"><a class="result__a" href="https://ads.example">Ad</a></div>
<div class="result results_links results_links_deep web-result">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnvidia.com%2Fnews&amp;rut=abc">NVIDIA <b>News</b></a></h2>
  <a class="result__snippet" href="x">Latest   headlines from NVIDIA.</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="https://example.com/two">Second</a></h2>
  <a class="result__snippet" href="y">Another snippet</a>
</div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "nvda news", r.PostForm.Get("q"))
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	s := New(WithEndpoint(srv.URL), WithRateLimit(100, 10))
	results, err := s.Search(context.Background(), "nvda news", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{
		Title: "NVIDIA News",
		Href:  "https://nvidia.com/news",
		Body:  "Latest headlines from NVIDIA.",
	}, results[0])

	limited, err := s.Search(context.Background(), "nvda news", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	tool := New(WithEndpoint(srv.URL), WithRateLimit(100, 10)).Tool()
	assert.Equal(t, ToolName, tool.Name())

	out, err := tool.Call(context.Background(), `{"query":"nvda","max_results":1}`)
	require.NoError(t, err)
	assert.Len(t, out.([]Result), 1)
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(WithEndpoint(srv.URL), WithRateLimit(100, 10))
	_, err := s.Search(context.Background(), "  ", 5)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = s.Search(context.Background(), "q", 5)
	assert.True(t, errors.HasCode(err, errors.CodeToolFailure))
}
