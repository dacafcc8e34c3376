// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"sync"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/telemetry"
)

// ErrorMetricsIntegration provides error metrics integration for agents.
// It wraps the telemetry.ErrorMetrics and provides agent-specific helpers.
type ErrorMetricsIntegration struct {
	metrics *telemetry.ErrorMetrics
	enabled bool
}

var (
	globalErrorMetrics     *ErrorMetricsIntegration
	globalErrorMetricsOnce sync.Once
)

// InitErrorMetrics initializes the global error metrics for agents.
// Returns disabled metrics if the instruments cannot be created.
func InitErrorMetrics() *ErrorMetricsIntegration {
	globalErrorMetricsOnce.Do(func() {
		metrics, err := telemetry.NewErrorMetrics()
		if err != nil {
			globalErrorMetrics = &ErrorMetricsIntegration{enabled: false}
			return
		}
		globalErrorMetrics = &ErrorMetricsIntegration{
			metrics: metrics,
			enabled: true,
		}
	})
	return globalErrorMetrics
}

// GetErrorMetrics returns the global error metrics integration, or nil.
func GetErrorMetrics() *ErrorMetricsIntegration {
	return globalErrorMetrics
}

// RecordError records an error metric with the appropriate error code and component.
func (e *ErrorMetricsIntegration) RecordError(ctx context.Context, err error, component string) {
	if e == nil || !e.enabled || e.metrics == nil {
		return
	}
	e.metrics.RecordError(ctx, err, component)
}

// RecordRecovery records a successful recovery for the given error code.
func (e *ErrorMetricsIntegration) RecordRecovery(ctx context.Context, code errors.ErrorCode) {
	if e == nil || !e.enabled || e.metrics == nil {
		return
	}
	e.metrics.RecordRecovery(ctx, code)
}

// WrapLLMError wraps an LLM error with appropriate context.
func WrapLLMError(err error, model string) *errors.Error {
	if err == nil {
		return nil
	}
	if errors.HasCode(err, errors.CodeUnauthorized) {
		return errors.As(err)
	}
	return errors.New(errors.CodeLLMError, "LLM call failed", err).
		WithContext("model", model).
		WithRecoverable(true)
}

// WrapToolError wraps a tool execution error with appropriate context.
func WrapToolError(err error, toolName, toolCallID string) *errors.Error {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeToolFailure, "tool execution failed", err).
		WithContext("tool_name", toolName).
		WithContext("tool_call_id", toolCallID).
		WithRecoverable(true)
}

// WrapMemoryError wraps a conversation memory error with appropriate context.
func WrapMemoryError(err error, operation string) *errors.Error {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeMemoryError, "memory operation failed", err).
		WithContext("operation", operation).
		WithRecoverable(true)
}

// WrapKnowledgeError wraps a knowledge base error with appropriate context.
func WrapKnowledgeError(err error, operation string) *errors.Error {
	if err == nil {
		return nil
	}
	if errors.HasCode(err, errors.CodeKnowledgeError) {
		return errors.As(err)
	}
	return errors.New(errors.CodeKnowledgeError, "knowledge operation failed", err).
		WithContext("operation", operation).
		WithRecoverable(false)
}

// WrapTimeoutError wraps a timeout error with appropriate context.
func WrapTimeoutError(err error, operation string, maxIterations int) *errors.Error {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeTimeout, "operation exceeded max iterations", err).
		WithContext("operation", operation).
		WithContext("max_iterations", maxIterations).
		WithRecoverable(false)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *errors.Error {
	return errors.New(errors.CodeInvalidInput, msg, nil).
		WithRecoverable(false)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, name string) *errors.Error {
	return errors.New(errors.CodeNotFound, resource+" not found", nil).
		WithContext("resource", resource).
		WithContext("name", name).
		WithRecoverable(false)
}
