// Copyright 2026 The Guildboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	// The global provider is a no-op until an exporter-backed provider is installed.
	meter := otel.Meter(serviceName)

	return &Meter{
		meter: meter,
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// CreateUpDownCounter creates a new up/down counter metric
func (m *Meter) CreateUpDownCounter(name, description string) (metric.Int64UpDownCounter, error) {
	counter, err := m.meter.Int64UpDownCounter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create up/down counter %s: %w", name, err)
	}
	return counter, nil
}

// AuthzMetrics holds the authorization instruments.
// A nil *AuthzMetrics records nothing.
type AuthzMetrics struct {
	decisions metric.Int64Counter
	grants    metric.Int64Counter
}

// NewAuthzMetrics registers the authorization counters on m.
func NewAuthzMetrics(m *Meter) (*AuthzMetrics, error) {
	decisions, err := m.CreateCounter("authz_decisions_total", "Authorization decisions by rule and outcome")
	if err != nil {
		return nil, err
	}
	grants, err := m.CreateCounter("permission_grants_total", "Permission grant and revoke operations by outcome")
	if err != nil {
		return nil, err
	}
	return &AuthzMetrics{decisions: decisions, grants: grants}, nil
}

// RecordDecision counts one allow/deny decision.
func (a *AuthzMetrics) RecordDecision(ctx context.Context, rule, outcome string) {
	if a == nil {
		return
	}
	a.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("outcome", outcome),
	))
}

// RecordGrant counts one grant or revoke attempt.
func (a *AuthzMetrics) RecordGrant(ctx context.Context, op, outcome string) {
	if a == nil {
		return
	}
	a.grants.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// HTTPMetrics holds request instruments for the API surface.
// A nil *HTTPMetrics records nothing.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the request instruments on m.
func NewHTTPMetrics(m *Meter) (*HTTPMetrics, error) {
	duration, err := m.CreateHistogram("http_request_duration_ms", "API request latency", "ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := m.CreateUpDownCounter("http_requests_in_flight", "Requests currently being served")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration, inFlight: inFlight}, nil
}

// Begin marks a request as in flight. Call the returned func when it completes.
func (h *HTTPMetrics) Begin(ctx context.Context) func(route string, status int, ms float64) {
	if h == nil {
		return func(string, int, float64) {}
	}
	h.inFlight.Add(ctx, 1)
	return func(route string, status int, ms float64) {
		h.inFlight.Add(ctx, -1)
		h.duration.Record(ctx, ms, metric.WithAttributes(
			attribute.String("route", route),
			attribute.Int("status", status),
		))
	}
}
