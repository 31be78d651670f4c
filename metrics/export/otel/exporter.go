package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	authbackend "github.com/pw2712gz/auth-backend"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// metricsSource is the engine surface the exporter reads. It is satisfied
// by *authbackend.Engine.
type metricsSource interface {
	MetricsSnapshot() authbackend.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   authbackend.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{authbackend.MetricRegisterSuccess, "authbackend_register_success_total", "Completed registrations."},
	{authbackend.MetricRegisterDuplicate, "authbackend_register_duplicate_total", "Registrations rejected for a taken email."},
	{authbackend.MetricLoginSuccess, "authbackend_login_success_total", "Successful logins."},
	{authbackend.MetricLoginFailure, "authbackend_login_failure_total", "Rejected logins."},
	{authbackend.MetricRefreshSuccess, "authbackend_refresh_success_total", "Access tokens reissued from a refresh token."},
	{authbackend.MetricRefreshInvalid, "authbackend_refresh_invalid_total", "Refresh attempts with a missing or expired token."},
	{authbackend.MetricLogout, "authbackend_logout_total", "Logout calls."},
	{authbackend.MetricResetRequest, "authbackend_reset_request_total", "Password reset requests."},
	{authbackend.MetricResetConfirmSuccess, "authbackend_reset_confirm_success_total", "Redeemed reset tokens."},
	{authbackend.MetricResetConfirmFailure, "authbackend_reset_confirm_failure_total", "Rejected reset token redemptions."},
	{authbackend.MetricRateLimitHit, "authbackend_rate_limit_hit_total", "Requests rejected by the limiter."},
	{authbackend.MetricRefreshSwept, "authbackend_refresh_swept_total", "Refresh tokens removed by the sweeper."},
	{authbackend.MetricResetSwept, "authbackend_reset_swept_total", "Reset tokens removed by the sweeper."},
}

type observedCounter struct {
	id         authbackend.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter bridges the engine's in-process counters to an OTel meter.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers the engine counters on meter.
func NewExporter(meter metric.Meter, engine *authbackend.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source, which
// keeps the exporter testable without a full engine.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"authbackend_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
