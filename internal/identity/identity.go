// Package identity issues anonymous user ids for visitors.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"finitefield.org/fansite/internal/config"
)

const defaultSignInTimeout = 5 * time.Second

// Provider signs a visitor in anonymously and returns the new uid.
type Provider interface {
	SignInAnonymously(ctx context.Context) (string, error)
}

// Local issues uids without a remote identity service.
type Local struct {
	newID func() string
}

// NewLocal returns a provider that mints "anon-<uuid>" ids.
func NewLocal() *Local {
	return &Local{newID: func() string { return uuid.NewString() }}
}

func (l *Local) SignInAnonymously(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "anon-" + l.newID(), nil
}

// userCreator is the slice of the Admin SDK auth client Firebase uses.
type userCreator interface {
	CreateUser(ctx context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error)
}

// Firebase creates anonymous users through the Firebase Admin SDK.
type Firebase struct {
	client  userCreator
	timeout time.Duration
}

// FirebaseOption customises Firebase providers.
type FirebaseOption func(*Firebase)

// WithTimeout overrides the timeout used for Admin SDK calls.
func WithTimeout(d time.Duration) FirebaseOption {
	return func(f *Firebase) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFirebase initialises the Admin SDK for cfg.ProjectID.
func NewFirebase(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*Firebase, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return newFirebase(client, opts...), nil
}

func newFirebase(client userCreator, opts ...FirebaseOption) *Firebase {
	f := &Firebase{client: client, timeout: defaultSignInTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// SignInAnonymously creates a user with no credentials attached.
func (f *Firebase) SignInAnonymously(ctx context.Context) (string, error) {
	if f == nil || f.client == nil {
		return "", errors.New("firebase identity not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rec, err := f.client.CreateUser(ctx, &firebaseauth.UserToCreate{})
	if err != nil {
		return "", fmt.Errorf("create anonymous user: %w", err)
	}
	if rec == nil || rec.UserInfo == nil || rec.UID == "" {
		return "", errors.New("create anonymous user: empty uid")
	}
	return rec.UID, nil
}

// New picks the provider named by cfg.Identity.
func New(ctx context.Context, cfg config.FirebaseConfig) (Provider, error) {
	switch cfg.Identity {
	case config.IdentityFirebase:
		return NewFirebase(ctx, cfg)
	case config.IdentityLocal, "":
		return NewLocal(), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Identity)
	}
}
