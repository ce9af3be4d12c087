package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/logging"
	"github.com/example/ai-disease/internal/presenter"
)

// ReadinessOutcome is the result of the startup health check.
type ReadinessOutcome string

const (
	OutcomePending         ReadinessOutcome = "pending"
	OutcomeReady           ReadinessOutcome = "ready"
	OutcomeUnconfigured    ReadinessOutcome = "unconfigured"
	OutcomeUnreachable     ReadinessOutcome = "unreachable"
	OutcomeDegraded        ReadinessOutcome = "degraded"
	OutcomeDegradedNoModel ReadinessOutcome = "degraded_no_model"
)

const (
	msgUnconfigured = "Configure API_BASE_URL to point to your classification backend."
	msgChecking     = "Checking backend health..."
	msgNoModel      = "Backend is reachable but no model is loaded. Deploy or train a model, then restart the console."
)

// ReadinessReport is the outcome plus what to show for it. Err is nil only
// for OutcomeReady.
type ReadinessReport struct {
	Outcome ReadinessOutcome
	Service string
	Status  presenter.Status
	Err     error
}

// Ready reports whether submissions may proceed.
func (r ReadinessReport) Ready() bool {
	return r.Outcome == OutcomeReady
}

// ReadinessMonitor probes the backend once and publishes the result to the
// session and the screen.
type ReadinessMonitor struct {
	session *Session
	client  classifier.Client
	sink    presenter.Sink
	logger  *zap.Logger

	once   sync.Once
	report ReadinessReport
}

// NewReadinessMonitor constructs a monitor for session.
func NewReadinessMonitor(session *Session, client classifier.Client, sink presenter.Sink, logger *zap.Logger) *ReadinessMonitor {
	return &ReadinessMonitor{
		session: session,
		client:  client,
		sink:    sink,
		logger:  logger.Named("readiness_monitor"),
	}
}

// Run performs the health check the first time it is called and returns the
// same report on every later call. It never retries.
func (m *ReadinessMonitor) Run(ctx context.Context) ReadinessReport {
	m.once.Do(func() {
		m.sink.SetSubmitEnabled(false)
		if m.session.BaseURL() != "" {
			m.sink.SetStatus(msgChecking, false)
		}

		report := m.Check(ctx, m.session.BaseURL())
		m.session.record(report)
		m.sink.SetStatus(report.Status.Text, report.Status.IsError)
		m.sink.SetSubmitEnabled(report.Ready())
		m.report = report
	})
	return m.report
}

// Check classifies the backend at baseURL without touching any state.
func (m *ReadinessMonitor) Check(ctx context.Context, baseURL string) ReadinessReport {
	opLogger := logging.WithOperation(m.logger, "usecase.check_readiness", "")

	if baseURL == "" {
		opLogger.Warn("no backend configured")
		return failed(OutcomeUnconfigured, KindUnconfigured, msgUnconfigured, nil)
	}

	health, err := m.client.Health(ctx, baseURL)
	if err != nil {
		var respErr *classifier.ResponseError
		if errors.As(err, &respErr) {
			opLogger.Warn("health check failed", zap.Int("status", respErr.StatusCode), zap.String("base_url", baseURL))
			return failed(OutcomeDegraded, KindDegraded, fmt.Sprintf("Health check failed (%s).", respErr.Error()), err)
		}
		opLogger.Error("backend unreachable", zap.Error(err), zap.String("base_url", baseURL))
		return failed(OutcomeUnreachable, KindUnreachable, "Backend unreachable: "+logging.Cause(err), err)
	}

	if !health.ModelLoaded {
		opLogger.Warn("backend has no model loaded", zap.String("service", health.Service))
		report := failed(OutcomeDegradedNoModel, KindDegradedNoModel, msgNoModel, nil)
		report.Service = health.Service
		return report
	}

	opLogger.Info("backend ready", zap.String("service", health.Service), zap.String("base_url", baseURL))
	text := "Backend ready."
	if health.Service != "" {
		text = fmt.Sprintf("Backend ready (%s).", health.Service)
	}
	return ReadinessReport{
		Outcome: OutcomeReady,
		Service: health.Service,
		Status:  presenter.Status{Text: text},
	}
}

func failed(outcome ReadinessOutcome, kind Kind, message string, cause error) ReadinessReport {
	return ReadinessReport{
		Outcome: outcome,
		Status:  presenter.Status{Text: message, IsError: true},
		Err:     &Error{Kind: kind, Message: message, Err: cause},
	}
}
