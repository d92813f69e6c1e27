package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "account-service"

// AuthMetrics counts account and session events
type AuthMetrics struct {
	registrations metric.Int64Counter
	logins        metric.Int64Counter
	rotations     metric.Int64Counter
	refreshReuse  metric.Int64Counter
}

// NewAuthMetrics registers the account counters on provider
func NewAuthMetrics(provider metric.MeterProvider) (*AuthMetrics, error) {
	meter := provider.Meter(meterName)

	registrations, err := meter.Int64Counter("account_registrations_total",
		metric.WithDescription("Accounts created"))
	if err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}

	logins, err := meter.Int64Counter("account_logins_total",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	rotations, err := meter.Int64Counter("account_refresh_rotations_total",
		metric.WithDescription("Refresh token rotations by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rotations counter: %w", err)
	}

	refreshReuse, err := meter.Int64Counter("account_refresh_reuse_total",
		metric.WithDescription("Superseded refresh tokens presented again"))
	if err != nil {
		return nil, fmt.Errorf("failed to create reuse counter: %w", err)
	}

	return &AuthMetrics{
		registrations: registrations,
		logins:        logins,
		rotations:     rotations,
		refreshReuse:  refreshReuse,
	}, nil
}

func (m *AuthMetrics) Registered(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1)
}

func (m *AuthMetrics) Login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AuthMetrics) Rotation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AuthMetrics) RefreshReuse(ctx context.Context) {
	if m == nil {
		return
	}
	m.refreshReuse.Add(ctx, 1)
}
