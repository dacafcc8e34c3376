// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package yfinance

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/tools"
)

// Tool names exposed to models.
const (
	ToolStockPrice             = "get_current_stock_price"
	ToolAnalystRecommendations = "get_analyst_recommendations"
	ToolStockFundamentals      = "get_stock_fundamentals"
	ToolCompanyNews            = "get_company_news"
)

// Options selects which tools the toolkit exposes.
type Options struct {
	StockPrice             bool
	AnalystRecommendations bool
	StockFundamentals      bool
	CompanyNews            bool
}

// All enables every tool.
func All() Options {
	return Options{StockPrice: true, AnalystRecommendations: true, StockFundamentals: true, CompanyNews: true}
}

// Toolkit exposes the enabled Yahoo Finance tools.
type Toolkit struct {
	client *Client
	opts   Options
}

// NewToolkit creates a toolkit over client.
func NewToolkit(client *Client, opts Options) *Toolkit {
	if client == nil {
		client = NewClient()
	}
	return &Toolkit{client: client, opts: opts}
}

var symbolSchema = tools.Object(map[string]any{
	"symbol": tools.String("The stock symbol, e.g. NVDA."),
}, "symbol")

// Tools implements tools.Toolkit.
func (t *Toolkit) Tools() []core.Tool {
	var out []core.Tool
	if t.opts.StockPrice {
		out = append(out, tools.NewFunctionTool(ToolStockPrice,
			"Use this function to get the current stock price for a given symbol.",
			symbolSchema,
			func(ctx context.Context, args map[string]any) (any, error) {
				symbol, err := symbolArg(args)
				if err != nil {
					return nil, err
				}
				price, err := t.client.CurrentPrice(ctx, symbol)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("%.4f", price), nil
			}))
	}
	if t.opts.AnalystRecommendations {
		out = append(out, tools.NewFunctionTool(ToolAnalystRecommendations,
			"Use this function to get analyst recommendations for a given stock symbol.",
			symbolSchema,
			func(ctx context.Context, args map[string]any) (any, error) {
				symbol, err := symbolArg(args)
				if err != nil {
					return nil, err
				}
				return t.client.AnalystRecommendations(ctx, symbol)
			}))
	}
	if t.opts.StockFundamentals {
		out = append(out, tools.NewFunctionTool(ToolStockFundamentals,
			"Use this function to get fundamental data for a given stock symbol.",
			symbolSchema,
			func(ctx context.Context, args map[string]any) (any, error) {
				symbol, err := symbolArg(args)
				if err != nil {
					return nil, err
				}
				return t.client.Fundamentals(ctx, symbol)
			}))
	}
	if t.opts.CompanyNews {
		out = append(out, tools.NewFunctionTool(ToolCompanyNews,
			"Use this function to get company news and information for a given stock symbol.",
			tools.Object(map[string]any{
				"symbol":      tools.String("The stock symbol, e.g. NVDA."),
				"num_stories": tools.Integer("The number of news stories to return. Defaults to 3."),
			}, "symbol"),
			func(ctx context.Context, args map[string]any) (any, error) {
				symbol, err := symbolArg(args)
				if err != nil {
					return nil, err
				}
				return t.client.CompanyNews(ctx, symbol, tools.IntArg(args, "num_stories", 3))
			}))
	}
	return out
}

func symbolArg(args map[string]any) (string, error) {
	symbol := tools.StringArg(args, "symbol")
	if symbol == "" {
		symbol = tools.StringArg(args, "input")
	}
	if symbol == "" {
		return "", errors.New(errors.CodeInvalidInput, "symbol is required", nil)
	}
	return strings.ToUpper(symbol), nil
}
