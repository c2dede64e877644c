// Package fanmail validates and stores messages fans send through the connect form.
package fanmail

import (
	"context"
	"errors"
	"time"
)

// DateLayout matches JavaScript's Date.toISOString in UTC.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// FanMessage is the stored record.
type FanMessage struct {
	ID             string `firestore:"-" json:"id"`
	Name           string `firestore:"name" json:"name"`
	Email          string `firestore:"email" json:"email"`
	Message        string `firestore:"message" json:"message"`
	SubmissionDate string `firestore:"submissionDate" json:"submissionDate"`
	UserID         string `firestore:"userId" json:"userId"`
}

// Store appends fan messages to durable storage.
type Store interface {
	Add(ctx context.Context, msg FanMessage) error
}

// Notification announces a stored message. It deliberately leaves out the email address.
type Notification struct {
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	SubmissionDate string `json:"submissionDate"`
	Preview        string `json:"preview"`
}

// Notifier is told about every message after it is stored.
type Notifier interface {
	NotifyFanMessage(ctx context.Context, n Notification) error
}

var (
	// ErrNoDatabase means no store is configured.
	ErrNoDatabase = errors.New("fanmail: no database configured")
	// ErrNoSession means the visitor has no anonymous uid yet.
	ErrNoSession = errors.New("fanmail: no signed-in user")
	// ErrRateLimited means the client sent too many messages recently.
	ErrRateLimited = errors.New("fanmail: rate limited")
)

// State is where a submission stands from the visitor's point of view.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

// Outcome maps the result of Submit to the state the form moves to. Field errors keep
// the form idle so the visitor can correct it.
func Outcome(err error) State {
	switch {
	case err == nil:
		return StateSubmitted
	case isValidation(err):
		return StateIdle
	default:
		return StateFailed
	}
}

func isValidation(err error) bool {
	_, ok := AsValidation(err)
	return ok
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
