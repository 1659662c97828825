// Package service implements the contact relay pipeline: validate the
// submission, obtain addresses and a credential, and deliver exactly once.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
	"github.com/shaharia-lab/formrelay/internal/metrics"
	"github.com/shaharia-lab/formrelay/internal/notification"
)

const defaultDeliveryTimeout = 15 * time.Second

// Result describes a successfully handled submission.
type Result struct {
	// SubmissionID identifies the relayed message in logs. Empty when suppressed.
	SubmissionID string
	// Suppressed is true when the honeypot caught the request and nothing was sent.
	Suppressed bool
}

// RelayService relays contact submissions to the site owner.
type RelayService interface {
	// Submit runs the full pipeline for one request. Errors are one of
	// *ValidationError, *AuthError, *SecretFetchError or *DeliveryError.
	Submit(ctx context.Context, req contact.ContactRequest) (Result, error)
	// TestNotification sends a fixed message through the configured
	// credential and notifier.
	TestNotification(ctx context.Context) error
}

// AddressResolver supplies the sender and recipient of outbound messages.
type AddressResolver interface {
	Resolve(ctx context.Context) (contact.Addresses, error)
}

// Deps are the collaborators of the relay service. Metrics and Tracer are
// optional.
type Deps struct {
	Validator   *contact.Validator
	Addresses   AddressResolver
	Credentials credential.Provider
	Notifier    notification.Provider
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	Logger      *slog.Logger
	// DeliveryTimeout bounds the delivery attempt. Defaults to 15 seconds.
	DeliveryTimeout time.Duration
}

type relayServiceImpl struct {
	validator   *contact.Validator
	addresses   AddressResolver
	credentials credential.Provider
	notifier    notification.Provider
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger
	timeout     time.Duration
}

// NewRelayService creates a RelayService.
func NewRelayService(d Deps) RelayService {
	s := &relayServiceImpl{
		validator:   d.Validator,
		addresses:   d.Addresses,
		credentials: d.Credentials,
		notifier:    d.Notifier,
		metrics:     d.Metrics,
		tracer:      d.Tracer,
		logger:      d.Logger,
		timeout:     d.DeliveryTimeout,
	}
	if s.validator == nil {
		s.validator = contact.NewValidator()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.timeout <= 0 {
		s.timeout = defaultDeliveryTimeout
	}
	return s
}

func (s *relayServiceImpl) Submit(ctx context.Context, req contact.ContactRequest) (Result, error) {
	if req.IsBot() {
		s.logger.InfoContext(ctx, "honeypot triggered, submission suppressed")
		s.count(metrics.OutcomeSuppressed)
		return Result{Suppressed: true}, nil
	}

	ctx, span := s.tracer.Start(ctx, "relay.Submit")
	defer span.End()

	sub, err := s.validate(ctx, req)
	if err != nil {
		recordError(span, err)
		return Result{}, err
	}
	span.SetAttributes(attribute.String("submission.id", sub.ID))

	if err := s.relay(ctx, sub); err != nil {
		recordError(span, err)
		return Result{}, err
	}
	return Result{SubmissionID: sub.ID}, nil
}

func (s *relayServiceImpl) TestNotification(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "relay.TestNotification")
	defer span.End()

	sub := contact.Submission{
		ID:         uuid.NewString(),
		Name:       "formrelay",
		Message:    "This is a test notification from formrelay. If you received it, delivery is configured correctly.",
		ReceivedAt: time.Now(),
	}
	if err := s.relay(ctx, sub); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (s *relayServiceImpl) validate(ctx context.Context, req contact.ContactRequest) (contact.Submission, error) {
	_, span := s.tracer.Start(ctx, "relay.validate")
	defer span.End()

	sub, err := s.validator.Validate(req)
	if err != nil {
		s.count(metrics.OutcomeInvalid)
		return contact.Submission{}, err
	}
	return sub, nil
}

// relay authenticates and delivers sub. The stages run strictly in order
// and the notifier is called at most once.
func (s *relayServiceImpl) relay(ctx context.Context, sub contact.Submission) error {
	addrs, cred, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	msg, err := contact.Compose(sub, addrs)
	if err != nil {
		return fmt.Errorf("composing message: %w", err)
	}

	if err := s.deliver(ctx, cred, msg); err != nil {
		s.logger.ErrorContext(ctx, "delivery failed",
			"submission_id", sub.ID,
			"provider", s.notifier.Name(),
			"error", err,
		)
		return err
	}

	s.count(metrics.OutcomeSent)
	s.logger.InfoContext(ctx, "submission relayed",
		"submission_id", sub.ID,
		"provider", s.notifier.Name(),
	)
	return nil
}

func (s *relayServiceImpl) authenticate(ctx context.Context) (contact.Addresses, credential.Credential, error) {
	ctx, span := s.tracer.Start(ctx, "relay.authenticate")
	defer span.End()

	addrs, err := s.addresses.Resolve(ctx)
	if err != nil {
		s.count(metrics.OutcomeSecretFailed)
		return contact.Addresses{}, credential.Credential{}, secretFetchError(err)
	}

	cred, err := s.credentials.Credential(ctx)
	if err != nil {
		var se *credential.SecretError
		if errors.As(err, &se) {
			s.count(metrics.OutcomeSecretFailed)
			return contact.Addresses{}, credential.Credential{}, secretFetchError(err)
		}
		s.count(metrics.OutcomeAuthFailed)
		return contact.Addresses{}, credential.Credential{}, &AuthError{Err: err}
	}
	return addrs, cred, nil
}

// deliver makes the single send. Once started it is not canceled by the
// caller; only the delivery timeout ends it early.
func (s *relayServiceImpl) deliver(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error {
	ctx, span := s.tracer.Start(ctx, "relay.deliver",
		trace.WithAttributes(attribute.String("notifier", s.notifier.Name())))
	defer span.End()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.notifier.Send(ctx, cred, msg)
	if s.metrics != nil {
		s.metrics.Delivery(s.notifier.Name(), err, time.Since(start))
	}
	if err != nil {
		s.count(metrics.OutcomeDeliveryFailed)
		return &DeliveryError{Provider: s.notifier.Name(), Err: err}
	}
	return nil
}

func (s *relayServiceImpl) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Submission(outcome)
	}
}

func secretFetchError(err error) *SecretFetchError {
	var se *credential.SecretError
	if errors.As(err, &se) {
		return &SecretFetchError{Name: se.Name, Err: se.Err}
	}
	return &SecretFetchError{Err: err}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
