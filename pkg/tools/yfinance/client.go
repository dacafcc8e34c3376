// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package yfinance implements stock data tools over the public Yahoo Finance
// JSON endpoints.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/resilience"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Client fetches quotes, fundamentals, recommendations and news.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Yahoo Finance API host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRateLimit limits outgoing requests.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithCircuitBreaker replaces the default breaker guarding the API.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = cb }
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(4), 4),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "yahoo_finance"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fundamentals is a summary of a company's key figures.
type Fundamentals struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"company_name"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     float64 `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	PBRatio       float64 `json:"pb_ratio"`
	DividendYield float64 `json:"dividend_yield"`
	EPS           float64 `json:"eps"`
	Beta          float64 `json:"beta"`
	High52Week    float64 `json:"52_week_high"`
	Low52Week     float64 `json:"52_week_low"`
}

// Recommendation is one period of analyst ratings.
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// NewsItem is a company news story.
type NewsItem struct {
	Title     string    `json:"title"`
	Publisher string    `json:"publisher"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
}

// CurrentPrice returns the regular market price.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var body struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	q := url.Values{"interval": {"1d"}, "range": {"1d"}}
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &body); err != nil {
		return 0, err
	}
	if len(body.Chart.Result) == 0 || body.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return 0, errors.New(errors.CodeNotFound, "could not fetch current price for "+symbol, nil)
	}
	return body.Chart.Result[0].Meta.RegularMarketPrice, nil
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

type summary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string   `json:"longName"`
				ShortName string   `json:"shortName"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			SummaryDetail struct {
				TrailingPE       rawValue `json:"trailingPE"`
				DividendYield    rawValue `json:"dividendYield"`
				Beta             rawValue `json:"beta"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook rawValue `json:"priceToBook"`
				TrailingEps rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			RecommendationTrend struct {
				Trend []Recommendation `json:"trend"`
			} `json:"recommendationTrend"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (c *Client) summary(ctx context.Context, symbol string, modules ...string) (*summary, error) {
	var body summary
	q := url.Values{"modules": {strings.Join(modules, ",")}}
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q, &body); err != nil {
		return nil, err
	}
	if body.QuoteSummary.Error != nil {
		return nil, errors.New(errors.CodeNotFound, body.QuoteSummary.Error.Description, nil).
			WithContext("symbol", symbol)
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, errors.New(errors.CodeNotFound, "no data for "+symbol, nil)
	}
	return &body, nil
}

// Fundamentals returns company profile and valuation figures.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error) {
	s, err := c.summary(ctx, symbol, "price", "assetProfile", "summaryDetail", "defaultKeyStatistics")
	if err != nil {
		return nil, err
	}
	r := s.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}
	return &Fundamentals{
		Symbol:        strings.ToUpper(symbol),
		CompanyName:   name,
		Sector:        r.AssetProfile.Sector,
		Industry:      r.AssetProfile.Industry,
		MarketCap:     r.Price.MarketCap.Raw,
		PERatio:       r.SummaryDetail.TrailingPE.Raw,
		PBRatio:       r.DefaultKeyStatistics.PriceToBook.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
		EPS:           r.DefaultKeyStatistics.TrailingEps.Raw,
		Beta:          r.SummaryDetail.Beta.Raw,
		High52Week:    r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		Low52Week:     r.SummaryDetail.FiftyTwoWeekLow.Raw,
	}, nil
}

// AnalystRecommendations returns the recommendation trend, most recent period first.
func (c *Client) AnalystRecommendations(ctx context.Context, symbol string) ([]Recommendation, error) {
	s, err := c.summary(ctx, symbol, "recommendationTrend")
	if err != nil {
		return nil, err
	}
	return s.QuoteSummary.Result[0].RecommendationTrend.Trend, nil
}

// CompanyNews returns up to n news stories.
func (c *Client) CompanyNews(ctx context.Context, symbol string, n int) ([]NewsItem, error) {
	var body struct {
		News []struct {
			Title               string `json:"title"`
			Publisher           string `json:"publisher"`
			Link                string `json:"link"`
			ProviderPublishTime int64  `json:"providerPublishTime"`
		} `json:"news"`
	}
	q := url.Values{"q": {symbol}, "newsCount": {strconv.Itoa(n)}, "quotesCount": {"0"}}
	if err := c.get(ctx, "/v1/finance/search", q, &body); err != nil {
		return nil, err
	}
	items := make([]NewsItem, 0, len(body.News))
	for _, item := range body.News {
		items = append(items, NewsItem{
			Title:     item.Title,
			Publisher: item.Publisher,
			Link:      item.Link,
			Published: time.Unix(item.ProviderPublishTime, 0).UTC(),
		})
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, path, q, out)
	})
}

func (c *Client) fetch(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeToolFailure, "yahoo finance request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errors.New(errors.CodeNotFound, "symbol not found", nil).WithContext("path", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.CodeToolFailure, "yahoo finance returned "+resp.Status, nil).
			WithContext("path", path).
			WithRecoverable(true)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
