// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package duckduckgo implements the duckduckgo_search web-search tool over the
// DuckDuckGo HTML endpoint.
package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/tools"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	// ToolName is the function name exposed to models.
	ToolName = "duckduckgo_search"

	defaultEndpoint   = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	userAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Result is a single search hit.
type Result struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// Searcher queries DuckDuckGo.
type Searcher struct {
	endpoint   string
	client     *http.Client
	limiter    *rate.Limiter
	maxResults int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithEndpoint overrides the HTML search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Searcher) { s.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Searcher) { s.client = c }
}

// WithRateLimit limits outgoing queries to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Searcher) { s.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithMaxResults sets the default number of results.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// New creates a Searcher. The default limit is one query per second.
func New(opts ...Option) *Searcher {
	s := &Searcher{
		endpoint:   defaultEndpoint,
		client:     &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 2),
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns up to maxResults hits for query.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.CodeInvalidInput, "search query is empty", nil)
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "duckduckgo request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.CodeToolFailure, "duckduckgo returned "+resp.Status, nil).WithRecoverable(true)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	results := parseResults(doc)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// Tools implements tools.Toolkit.
func (s *Searcher) Tools() []core.Tool {
	return []core.Tool{s.Tool()}
}

// Tool returns the duckduckgo_search tool.
func (s *Searcher) Tool() *tools.FunctionTool {
	return tools.NewFunctionTool(ToolName,
		"Use this function to search DuckDuckGo for a query. Returns the results as a JSON list of title, href and body.",
		tools.Object(map[string]any{
			"query":       tools.String("The query to search for."),
			"max_results": tools.Integer("The maximum number of results to return."),
		}, "query"),
		func(ctx context.Context, args map[string]any) (any, error) {
			query := tools.StringArg(args, "query")
			if query == "" {
				query = tools.StringArg(args, "input")
			}
			return s.Search(ctx, query, tools.IntArg(args, "max_results", s.maxResults))
		})
}

func parseResults(doc *html.Node) []Result {
	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r, ok := parseResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResult(n *html.Node) (Result, bool) {
	var r Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				r.Title = text(n)
				r.Href = resolveHref(attr(n, "href"))
			case hasClass(n, "result__snippet"):
				r.Body = text(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r, r.Title != "" && r.Href != ""
}

// resolveHref unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resolveHref(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
