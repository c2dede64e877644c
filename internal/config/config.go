package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// EnvConfigFile names an optional YAML file read before the environment.
	EnvConfigFile = "FANSITE_CONFIG"

	secretScheme = "secret://"

	StoreNone      = ""
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"

	IdentityLocal    = "local"
	IdentityFirebase = "firebase"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Env       string          `yaml:"env" env:"FANSITE_ENV" env-default:"local"`
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Notify    NotifyConfig    `yaml:"notify"`
	Images    ImagesConfig    `yaml:"images"`
	Map       MapConfig       `yaml:"map"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig configures HTTP server parameters and on-disk resources.
type ServerConfig struct {
	Port         string        `yaml:"port" env:"FANSITE_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"FANSITE_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"FANSITE_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"FANSITE_IDLE_TIMEOUT" env-default:"60s"`
	TemplatesDir string        `yaml:"templates_dir" env:"FANSITE_TEMPLATES_DIR" env-default:"templates"`
	PublicDir    string        `yaml:"public_dir" env:"FANSITE_PUBLIC_DIR" env-default:"public"`
	LocalesDir   string        `yaml:"locales_dir" env:"FANSITE_LOCALES_DIR" env-default:"locales"`
	SiteURL      string        `yaml:"site_url" env:"FANSITE_SITE_URL"`
	DevMode      bool          `yaml:"dev" env:"FANSITE_DEV"`
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string `yaml:"signing_key" env:"FANSITE_SESSION_SIGNING_KEY"`
	Secure     bool   `yaml:"secure" env:"FANSITE_SESSION_SECURE"`
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// FirebaseConfig stores Firebase project settings used for anonymous sign-in.
type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id" env:"FANSITE_FIREBASE_PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"FANSITE_FIREBASE_CREDENTIALS_FILE"`
	Identity        string `yaml:"identity" env:"FANSITE_IDENTITY" env-default:"local"`
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string `yaml:"project_id" env:"FANSITE_FIRESTORE_PROJECT_ID"`
	EmulatorHost string `yaml:"emulator_host" env:"FIRESTORE_EMULATOR_HOST"`
}

// StoreConfig selects the backend fan messages are written to.
type StoreConfig struct {
	Driver       string        `yaml:"driver" env:"FANSITE_STORE_DRIVER"`
	DSN          string        `yaml:"dsn" env:"FANSITE_STORE_DSN"`
	Collection   string        `yaml:"collection" env:"FANSITE_STORE_COLLECTION" env-default:"fan_messages"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"FANSITE_STORE_WRITE_TIMEOUT" env-default:"10s"`
}

// RateLimitConfig throttles fan message submissions per client.
type RateLimitConfig struct {
	Limit    int           `yaml:"limit" env:"FANSITE_RATE_LIMIT" env-default:"5"`
	Window   time.Duration `yaml:"window" env:"FANSITE_RATE_WINDOW" env-default:"10m"`
	RedisURL string        `yaml:"redis_url" env:"FANSITE_REDIS_URL"`
}

// NotifyConfig configures the optional Pub/Sub notification on new messages.
type NotifyConfig struct {
	ProjectID string `yaml:"project_id" env:"FANSITE_PUBSUB_PROJECT_ID"`
	Topic     string `yaml:"topic" env:"FANSITE_PUBSUB_TOPIC"`
}

// ImagesConfig points the image registry at a GCS object instead of the embedded manifest.
type ImagesConfig struct {
	Source string `yaml:"source" env:"FANSITE_IMAGES_SOURCE"`
}

// MapConfig holds the slippy-map tile settings served to the browser.
type MapConfig struct {
	TileURL     string `yaml:"tile_url" env:"FANSITE_MAP_TILE_URL" env-default:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`
	Attribution string `yaml:"attribution" env:"FANSITE_MAP_ATTRIBUTION" env-default:"&copy; <a href=\"https://www.openstreetmap.org/copyright\">OpenStreetMap</a> contributors"`
}

// CORSConfig lists origins allowed to call the JSON API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"FANSITE_CORS_ORIGINS" env-separator:"," env-default:"*"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return ":" + s.Port }

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Field string
	Ref   string
	Err   error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("resolve %s (%q): %v", e.Field, e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	file   string
	secret SecretResolver
}

// WithFile reads the given YAML file before applying environment overrides.
func WithFile(path string) Option {
	return func(o *loaderOptions) {
		o.file = strings.TrimSpace(path)
	}
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load reads configuration from an optional YAML file and the environment, resolves
// secret:// references and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		file: strings.TrimSpace(os.Getenv(EnvConfigFile)),
		secret: SecretResolverFunc(func(context.Context, string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	var cfg Config
	if options.file != "" {
		if err := cleanenv.ReadConfig(options.file, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", options.file, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	cfg.normalise()

	if err := cfg.resolveSecrets(ctx, options.secret); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Usage describes every environment variable understood by Load.
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return desc
}

func (c *Config) normalise() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Firebase.Identity = strings.ToLower(strings.TrimSpace(c.Firebase.Identity))
	if c.Firestore.ProjectID == "" {
		c.Firestore.ProjectID = c.Firebase.ProjectID
	}
	if c.Notify.ProjectID == "" {
		c.Notify.ProjectID = c.Firebase.ProjectID
	}
	origins := c.CORS.AllowedOrigins[:0]
	for _, o := range c.CORS.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.AllowedOrigins = origins
}

// IsSecretRef reports whether value points at an external secret.
func IsSecretRef(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), secretScheme)
}

func (c *Config) resolveSecrets(ctx context.Context, resolver SecretResolver) error {
	fields := map[string]*string{
		"Session.SigningKey": &c.Session.SigningKey,
		"Store.DSN":          &c.Store.DSN,
		"RateLimit.RedisURL": &c.RateLimit.RedisURL,
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := fields[name]
		ref := strings.TrimSpace(*target)
		if !IsSecretRef(ref) {
			continue
		}
		value, err := resolver.ResolveSecret(ctx, ref)
		if err != nil {
			return &SecretError{Field: name, Ref: ref, Err: err}
		}
		*target = value
	}
	return nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c Config) Validate() error {
	var fields []string
	add := func(name string) { fields = append(fields, name) }

	if strings.TrimSpace(c.Server.Port) == "" {
		add("Server.Port")
	}
	switch c.Store.Driver {
	case StoreNone:
	case StoreFirestore:
		if c.Firestore.ProjectID == "" {
			add("Firestore.ProjectID")
		}
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			add("Store.DSN")
		}
	default:
		add("Store.Driver")
	}
	if strings.TrimSpace(c.Store.Collection) == "" {
		add("Store.Collection")
	}
	switch c.Firebase.Identity {
	case IdentityLocal:
	case IdentityFirebase:
		if c.Firebase.ProjectID == "" {
			add("Firebase.ProjectID")
		}
	default:
		add("Firebase.Identity")
	}
	if c.Notify.Topic != "" && c.Notify.ProjectID == "" {
		add("Notify.ProjectID")
	}
	if c.RateLimit.Limit < 0 {
		add("RateLimit.Limit")
	}
	if c.RateLimit.Limit > 0 && c.RateLimit.Window <= 0 {
		add("RateLimit.Window")
	}
	if c.Env == "prod" && strings.TrimSpace(c.Session.SigningKey) == "" {
		add("Session.SigningKey")
	}
	if src := c.Images.Source; src != "" && !strings.HasPrefix(src, "gs://") {
		add("Images.Source")
	}

	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}
