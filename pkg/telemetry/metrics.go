// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/agentdeck/pkg/errors"
)

// ErrorMetrics counts errors by code and component.
type ErrorMetrics struct {
	errorCounter    metric.Int64Counter
	recoveryCounter metric.Int64Counter
}

// NewErrorMetrics creates error instruments on the global meter provider.
func NewErrorMetrics() (*ErrorMetrics, error) {
	meter := otel.Meter("agentdeck/errors")

	errorCounter, err := meter.Int64Counter(
		"agentdeck.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}
	recoveryCounter, err := meter.Int64Counter(
		"agentdeck.errors.recovered",
		metric.WithDescription("Errors recovered by retry, by code"),
	)
	if err != nil {
		return nil, err
	}
	return &ErrorMetrics{errorCounter: errorCounter, recoveryCounter: recoveryCounter}, nil
}

// RecordError increments the error counter for err's code and the component.
func (em *ErrorMetrics) RecordError(ctx context.Context, err error, component string) {
	if em == nil || err == nil {
		return
	}
	e := errors.As(err)
	em.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", string(e.Code)),
		attribute.String("component", component),
		attribute.String("recoverable", strconv.FormatBool(e.Recoverable)),
	))
}

// RecordRecovery increments the recovery counter for the given error code.
func (em *ErrorMetrics) RecordRecovery(ctx context.Context, code errors.ErrorCode) {
	if em == nil {
		return
	}
	em.recoveryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("error.code", string(code))))
}

// AgentMetrics holds the run, LLM and tool instruments recorded by agents.
type AgentMetrics struct {
	Runs          metric.Int64Counter
	RunErrors     metric.Int64Counter
	RunLatencyMs  metric.Float64Histogram
	LLMLatencyMs  metric.Float64Histogram
	Tokens        metric.Int64Counter
	ToolCalls     metric.Int64Counter
	ToolLatencyMs metric.Float64Histogram
}

// NewAgentMetrics creates agent instruments on the global meter provider.
// Instruments from the global provider follow a later otel.SetMeterProvider.
func NewAgentMetrics() (*AgentMetrics, error) {
	meter := otel.Meter("agentdeck/agent")
	m := &AgentMetrics{}
	var err error
	if m.Runs, err = meter.Int64Counter("agentdeck.agent.runs", metric.WithDescription("Agent runs started")); err != nil {
		return nil, err
	}
	if m.RunErrors, err = meter.Int64Counter("agentdeck.agent.errors", metric.WithDescription("Agent runs that failed")); err != nil {
		return nil, err
	}
	if m.RunLatencyMs, err = meter.Float64Histogram("agentdeck.agent.run.latency_ms", metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.LLMLatencyMs, err = meter.Float64Histogram("agentdeck.llm.latency_ms", metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.Tokens, err = meter.Int64Counter("agentdeck.llm.tokens", metric.WithDescription("Tokens consumed")); err != nil {
		return nil, err
	}
	if m.ToolCalls, err = meter.Int64Counter("agentdeck.tool.calls", metric.WithDescription("Tool invocations")); err != nil {
		return nil, err
	}
	if m.ToolLatencyMs, err = meter.Float64Histogram("agentdeck.tool.latency_ms", metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return m, nil
}
