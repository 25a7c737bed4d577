package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

// Dial connects to TEMPORAL_ADDRESS. A nil client with a nil error means
// Temporal is not configured and durable runs are off.
func Dial(ctx context.Context, log *logger.Logger) (client.Client, error) {
	ctx = ctxutil.Default(ctx)
	cfg := LoadConfig()
	if cfg.Address == "" {
		if log != nil {
			log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		}
		return nil, nil
	}
	opts, err := cfg.clientOptions(log)
	if err != nil {
		return nil, err
	}

	attemptTimeout := envSeconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5)
	win := window{
		MaxWait:    envSeconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60),
		Backoff:    envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250),
		BackoffMax: envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000),
	}
	var c client.Client
	err = win.retry(ctx, log, "temporal dial", func(ctx context.Context) (bool, error) {
		dctx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()
		var derr error
		c, derr = client.DialContext(dctx, opts)
		return true, derr
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}

	if envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
		if err := EnsureNamespace(ctx, cfg, log); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// EnsureNamespace registers cfg.Namespace on a self-hosted server when it
// does not exist yet. Managed namespaces must be provisioned ahead of time.
func EnsureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	ns := strings.TrimSpace(cfg.Namespace)
	if cfg.Address == "" || ns == "" {
		return nil
	}
	opts, err := cfg.clientOptions(log)
	if err != nil {
		return err
	}
	// The namespace client must not send a namespace header for one that is missing.
	opts.Namespace = ""
	nc, err := client.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace %s: %w", ns, err)
	}
	defer nc.Close()

	timeout := envSeconds("TEMPORAL_NAMESPACE_ENSURE_TIMEOUT_SECONDS", 10)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), timeout)
	defer cancel()

	retention := envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7)
	if retention < 1 || retention > 365 {
		retention = 7
	}
	win := window{
		MaxWait:    timeout,
		Backoff:    envutil.Millis("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MS", 250),
		BackoffMax: envutil.Millis("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MAX_MS", 5000),
	}
	err = win.retry(ctx, log, "temporal namespace ensure", func(ctx context.Context) (bool, error) {
		_, err := nc.Describe(ctx, ns)
		var missing *serviceerror.NamespaceNotFound
		if !errors.As(err, &missing) {
			return retryableRPC(err), err
		}
		err = nc.Register(ctx, &workflowservice.RegisterNamespaceRequest{
			Namespace:                        ns,
			Description:                      "surveybridge ingest runs",
			WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(retention) * 24 * time.Hour),
		})
		var exists *serviceerror.NamespaceAlreadyExists
		if err == nil || errors.As(err, &exists) {
			if log != nil {
				log.Info("Temporal namespace registered", "namespace", ns, "retention_days", retention)
			}
			return false, nil
		}
		return retryableRPC(err), err
	})
	if err != nil {
		return fmt.Errorf("temporal namespace %s: %w", ns, err)
	}
	return nil
}

func (cfg Config) clientOptions(log *logger.Logger) (client.Options, error) {
	opts := client.Options{HostPort: cfg.Address, Namespace: cfg.Namespace}
	if log != nil {
		opts.Logger = log
	}
	if cfg.ClientCertPath == "" && cfg.ClientKeyPath == "" && cfg.ClientCAPath == "" {
		return opts, nil
	}
	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return client.Options{}, err
	}
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, nil
}

func (cfg Config) tlsConfig() (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, errors.New("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH go together")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return out, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("temporal tls: no certificates in %s", cfg.ClientCAPath)
	}
	out.RootCAs = pool
	return out, nil
}

// window bounds a startup retry loop. MaxWait <= 0 means one attempt.
type window struct {
	MaxWait    time.Duration
	Backoff    time.Duration
	BackoffMax time.Duration
}

// retry calls fn until it succeeds, reports a permanent error, or the window
// closes. fn returns whether its error is worth another attempt.
func (w window) retry(ctx context.Context, log *logger.Logger, op string, fn func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(w.MaxWait)
	for attempt := 1; ; attempt++ {
		again, err := fn(ctx)
		if err == nil {
			return nil
		}
		if !again || w.MaxWait <= 0 || time.Now().After(deadline) {
			return err
		}
		if log != nil {
			log.Warn("retrying", "op", op, "attempt", attempt, "error", err)
		}
		if serr := ctxutil.Sleep(ctx, ClampBackoff(w.Backoff, w.BackoffMax, attempt)); serr != nil {
			return err
		}
	}
}

func envSeconds(key string, def int) time.Duration {
	n := envutil.Int(key, def)
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second
}

// ClampBackoff doubles base per attempt, capped at limit.
func ClampBackoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt && (limit <= 0 || d < limit); i++ {
		d *= 2
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

func retryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}
