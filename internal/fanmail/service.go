package fanmail

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	pfirestore "finitefield.org/fansite/internal/platform/firestore"
	"finitefield.org/fansite/internal/platform/ratelimit"
	"finitefield.org/fansite/internal/requestctx"
)

const (
	instrumentationName = "finitefield.org/fansite/internal/fanmail"
	defaultWriteTimeout = 10 * time.Second
	previewLength       = 80
)

// Submission is one attempt to send the form.
type Submission struct {
	Form Form
	// UserID is the visitor's anonymous uid, empty when sign-in has not completed.
	UserID string
	// ClientKey identifies the client for rate limiting.
	ClientKey string
}

// Service validates submissions and writes them to the configured store.
type Service struct {
	store        Store
	limiter      ratelimit.Limiter
	notifier     Notifier
	now          func() time.Time
	newID        func() string
	writeTimeout time.Duration
	tracer       trace.Tracer
	submissions  metric.Int64Counter
}

// Option customises a Service.
type Option func(*Service)

// WithStore sets the backend. Without one every valid submission fails with ErrNoDatabase.
func WithStore(store Store) Option {
	return func(s *Service) { s.store = store }
}

// WithLimiter throttles submissions per client key.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithNotifier publishes a notification after every stored message.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock injects a clock for submission dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithWriteTimeout bounds how long a submission waits for the store.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewService builds a Service. Telemetry goes to the global otel providers.
func NewService(opts ...Option) *Service {
	s := &Service{
		limiter:      ratelimit.Unlimited{},
		now:          time.Now,
		newID:        newULID,
		writeTimeout: defaultWriteTimeout,
		tracer:       otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"fanmail.submissions",
		metric.WithDescription("Fan message submissions by outcome"),
	)
	if err == nil {
		s.submissions = counter
	}
	return s
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// HasStore reports whether a backend is configured.
func (s *Service) HasStore() bool { return s.store != nil }

// Submit validates sub and writes it. Errors are a *ValidationError, ErrNoDatabase,
// ErrNoSession, ErrRateLimited, or a wrapped store failure. Nothing is retried.
func (s *Service) Submit(ctx context.Context, sub Submission) (FanMessage, error) {
	ctx, span := s.tracer.Start(ctx, "fanmail.Submit")
	defer span.End()

	msg, err := s.submit(ctx, sub)
	outcome := "stored"
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("fanmail.id", msg.ID))
	case isValidation(err):
		outcome = "invalid"
	case errors.Is(err, ErrNoDatabase):
		outcome = "no_database"
	case errors.Is(err, ErrNoSession):
		outcome = "no_session"
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	default:
		outcome = "store_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
	}
	if s.submissions != nil {
		s.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	return msg, err
}

func (s *Service) submit(ctx context.Context, sub Submission) (FanMessage, error) {
	form := sub.Form.Clean()
	if errs := Validate(form); len(errs) > 0 {
		return FanMessage{}, &ValidationError{Fields: errs}
	}
	if s.store == nil {
		return FanMessage{}, ErrNoDatabase
	}
	if sub.UserID == "" {
		return FanMessage{}, ErrNoSession
	}

	allowed, err := s.limiter.Allow(ctx, sub.ClientKey)
	if err != nil {
		requestctx.Logger(ctx).Warn("rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		return FanMessage{}, ErrRateLimited
	}

	msg := FanMessage{
		ID:             s.newID(),
		Name:           form.Name,
		Email:          form.Email,
		Message:        form.Message,
		SubmissionDate: formatDate(s.now()),
		UserID:         sub.UserID,
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	pending := Go(func() error { return s.store.Add(writeCtx, msg) })
	if err := pending.Wait(writeCtx); err != nil {
		var storeErr *pfirestore.Error
		if errors.As(err, &storeErr) && storeErr.IsConflict() {
			requestctx.Logger(ctx).Error("fan message id already exists",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		} else {
			requestctx.Logger(ctx).Error("store fan message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
		return FanMessage{}, fmt.Errorf("fanmail: store message: %w", err)
	}

	s.notify(ctx, msg)
	return msg, nil
}

func (s *Service) notify(ctx context.Context, msg FanMessage) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.NotifyFanMessage(ctx, Notification{
		MessageID:      msg.ID,
		UserID:         msg.UserID,
		Name:           msg.Name,
		SubmissionDate: msg.SubmissionDate,
		Preview:        preview(msg.Message, previewLength),
	})
	if err != nil {
		requestctx.Logger(ctx).Warn("notify fan message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
