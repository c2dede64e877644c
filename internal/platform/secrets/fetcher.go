package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	scheme              = "secret://"
	defaultVersion      = "latest"
	defaultFallbackPath = ".secrets.local"
)

// ErrInvalidReference is returned for references that are not secret:// URIs.
var ErrInvalidReference = errors.New("secrets: invalid reference")

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret:// references against Google Secret Manager. Values are cached
// for the life of the process; in the local environment a KEY=VALUE file can stand in for
// the remote service.
type Fetcher struct {
	logger     *zap.Logger
	projectID  string
	local      bool
	clientOpts []option.ClientOption

	clientMu sync.Mutex
	client   secretManagerClient

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithProject sets the project used for short references.
func WithProject(projectID string) Option {
	return func(f *Fetcher) { f.projectID = strings.TrimSpace(projectID) }
}

// WithLocalFallback enables the KEY=VALUE fallback file.
func WithLocalFallback(path string) Option {
	return func(f *Fetcher) {
		f.local = true
		if p := strings.TrimSpace(path); p != "" {
			f.fallbackPath = p
		}
	}
}

// WithClientOptions forwards Cloud client options to the lazily created client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(f *Fetcher) { f.clientOpts = append(f.clientOpts, opts...) }
}

// WithSecretManagerClient injects a preconfigured Secret Manager client.
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(f *Fetcher) { f.client = client }
}

// NewFetcher builds a Fetcher. The Secret Manager client is created on first use.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
		cache:        map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// ResolveSecret implements config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f.Resolve(ctx, ref)
}

// Resolve returns the plaintext value for ref.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	resource, name, err := f.resourceName(ref)
	if err != nil {
		return "", err
	}

	f.mu.RLock()
	value, ok := f.cache[resource]
	f.mu.RUnlock()
	if ok {
		return value, nil
	}

	value, remoteErr := f.fetchRemote(ctx, resource)
	if remoteErr != nil {
		if !f.local {
			return "", fmt.Errorf("secrets: fetch %s: %w", resource, remoteErr)
		}
		fb, ok := f.lookupFallback(name)
		if !ok {
			return "", fmt.Errorf("secrets: %s unavailable and not in %s: %w", name, f.fallbackPath, remoteErr)
		}
		f.logger.Debug("secrets: using local fallback", zap.String("secret", name), zap.Error(remoteErr))
		value = fb
	}

	f.mu.Lock()
	f.cache[resource] = value
	f.mu.Unlock()
	return value, nil
}

// Close releases the Secret Manager client if one was created.
func (f *Fetcher) Close() error {
	f.clientMu.Lock()
	defer f.clientMu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

func (f *Fetcher) fetchRemote(ctx context.Context, resource string) (string, error) {
	client, err := f.secretClient(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%s not found: %w", resource, err)
		}
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("%s has no payload", resource)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *Fetcher) secretClient(ctx context.Context) (secretManagerClient, error) {
	f.clientMu.Lock()
	defer f.clientMu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	client, err := secretManagerClientFactory(ctx, f.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	f.client = client
	return client, nil
}

// resourceName expands a reference into a full Secret Manager version name.
// Accepted forms: secret://name, secret://name@version and
// secret://projects/p/secrets/name[/versions/v].
func (f *Fetcher) resourceName(ref string) (resource, name string, err error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, scheme) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	body := strings.TrimPrefix(ref, scheme)
	if body == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	if strings.HasPrefix(body, "projects/") {
		parts := strings.Split(body, "/")
		switch {
		case len(parts) == 4 && parts[2] == "secrets":
			return body + "/versions/" + defaultVersion, parts[3], nil
		case len(parts) == 6 && parts[2] == "secrets" && parts[4] == "versions":
			return body, parts[3], nil
		default:
			return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
		}
	}

	name, version, _ := strings.Cut(body, "@")
	if version == "" {
		version = defaultVersion
	}
	if strings.Contains(name, "/") || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	if f.projectID == "" {
		return "", "", fmt.Errorf("secrets: project id required to resolve %q", ref)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.projectID, name, version), name, nil
}

func (f *Fetcher) lookupFallback(name string) (string, bool) {
	f.fallbackOnce.Do(func() {
		f.fallback = map[string]string{}
		file, err := os.Open(f.fallbackPath)
		if err != nil {
			return
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			f.fallback[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
		}
	})
	v, ok := f.fallback[name]
	return v, ok
}
