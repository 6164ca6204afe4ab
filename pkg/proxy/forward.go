package proxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"imaginationai/khawab/pkg/config"
	"imaginationai/khawab/pkg/proxy/middleware"
	"imaginationai/khawab/pkg/proxy/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// copyBufferSize is the read size used when relaying upstream bodies.
const copyBufferSize = 32 * 1024

// Observer receives one observation per request handled by the Forwarder.
// status is 204 for answered preflights and 502 when the upstream could not
// be reached.
type Observer interface {
	ObserveProxyRequest(method string, status int, duration time.Duration, bytes int64)
}

// Options configures a Forwarder.
type Options struct {
	// UpstreamBaseURL is the fixed upstream inference host.
	UpstreamBaseURL string

	// Mount is the path prefix the Forwarder is served under, e.g. "/ollama".
	Mount string

	// DefaultPath is forwarded when the request has no path after the mount.
	// Empty forwards to the upstream root.
	DefaultPath string

	// StripOriginHeader removes the Origin header before forwarding.
	StripOriginHeader bool

	// AccessClientID and AccessClientSecret are injected as access gateway
	// headers when both are set.
	AccessClientID     string
	AccessClientSecret string

	// CORS controls the cross-origin headers. Nil uses middleware.DefaultCORSConfig.
	CORS *middleware.CORSConfig

	// Transport performs upstream requests. Nil uses http.DefaultTransport.
	Transport http.RoundTripper

	// Observer is notified of every handled request (optional).
	Observer Observer
}

// OptionsFromConfig builds Options from the application configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		UpstreamBaseURL:   cfg.Upstream.BaseURL,
		Mount:             cfg.Proxy.Mount,
		DefaultPath:       cfg.Proxy.DefaultPath,
		StripOriginHeader: cfg.Proxy.StripOriginHeader,
		CORS: &middleware.CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   cfg.Proxy.CORS.AllowedMethods,
			AllowedHeaders:   cfg.Proxy.CORS.AllowedHeaders,
			AllowCredentials: cfg.Proxy.CORS.AllowCredentials,
		},
	}
	if cfg.Proxy.InjectAccessHeaders {
		opts.AccessClientID = cfg.Upstream.Access.ClientID
		opts.AccessClientSecret = cfg.Upstream.Access.ClientSecret
	}
	return opts
}

// settings is the reloadable part of the Forwarder configuration.
type settings struct {
	upstream     *url.URL
	mount        string
	defaultPath  string
	stripOrigin  bool
	accessID     string
	accessSecret string
	cors         *middleware.CORSConfig
}

// Forwarder is the edge proxy: an http.Handler that relays every request
// under its mount to one upstream host and adds CORS headers to the reply.
//
// It holds no per-request state and is safe for concurrent use. Settings can
// be replaced at runtime with Update.
type Forwarder struct {
	settings atomic.Pointer[settings]
	client   *http.Client
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewForwarder creates a Forwarder.
func NewForwarder(opts Options) (*Forwarder, error) {
	st, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	f := &Forwarder{
		client: &http.Client{
			Transport: transport,
			// Redirects are relayed to the caller, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		observer: opts.Observer,
		logger:   slog.Default().With("component", "proxy.forwarder"),
		tracer:   otel.Tracer("imaginationai/khawab/proxy"),
	}
	f.settings.Store(st)
	return f, nil
}

// Update atomically replaces the upstream, path, header and CORS settings.
// Transport and Observer are fixed at construction.
func (f *Forwarder) Update(opts Options) error {
	st, err := newSettings(opts)
	if err != nil {
		return err
	}
	f.settings.Store(st)
	f.logger.Info("forwarder settings updated",
		"upstream", st.upstream.Redacted(),
		"mount", st.mount,
		"default_path", st.defaultPath,
		"strip_origin", st.stripOrigin,
		"inject_access", st.accessID != "",
	)
	return nil
}

// Mount returns the current mount prefix.
func (f *Forwarder) Mount() string {
	return f.settings.Load().mount
}

func newSettings(opts Options) (*settings, error) {
	upstream, err := url.Parse(opts.UpstreamBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if (upstream.Scheme != "http" && upstream.Scheme != "https") || upstream.Host == "" {
		return nil, fmt.Errorf("upstream URL must be an absolute http(s) URL, got %q", opts.UpstreamBaseURL)
	}

	mount := strings.TrimRight(opts.Mount, "/")
	if mount != "" && !strings.HasPrefix(mount, "/") {
		return nil, fmt.Errorf("mount must start with '/', got %q", opts.Mount)
	}

	cors := opts.CORS
	if cors == nil {
		cors = middleware.DefaultCORSConfig()
	}

	return &settings{
		upstream:     upstream,
		mount:        mount,
		defaultPath:  strings.TrimLeft(opts.DefaultPath, "/"),
		stripOrigin:  opts.StripOriginHeader,
		accessID:     opts.AccessClientID,
		accessSecret: opts.AccessClientSecret,
		cors:         cors,
	}, nil
}

// ServeHTTP forwards r upstream and relays the response.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	st := f.settings.Load()

	if r.Method == http.MethodOptions {
		st.cors.ApplyPreflight(w.Header(), r)
		w.WriteHeader(http.StatusNoContent)
		f.observe(r.Method, http.StatusNoContent, start, 0)
		return
	}

	remainder := strings.TrimPrefix(r.URL.EscapedPath(), st.mount)
	spec := newForwardSpec(r, remainder, st)
	requestID := middleware.GetRequestID(r.Context())

	ctx, span := f.tracer.Start(r.Context(), "proxy.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("khawab.upstream.path", "/"+spec.Path),
		))
	defer span.End()

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	outReq, err := http.NewRequestWithContext(ctx, r.Method, spec.URL(), body)
	if err != nil {
		f.fail(w, r, st, span, start, fmt.Errorf("build upstream request: %w", err))
		return
	}
	outReq.Header = spec.OutboundHeader()
	if body != nil {
		outReq.ContentLength = r.ContentLength
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(outReq.Header))

	f.logger.Debug("forwarding request",
		"method", r.Method,
		"path", "/"+spec.Path,
		"request_id", requestID,
		"injected_access", spec.InjectedHeaders != nil,
	)

	resp, err := f.client.Do(outReq)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away; there is nobody to answer.
			f.logger.Debug("client disconnected before upstream responded",
				"path", "/"+spec.Path, "request_id", requestID)
			f.observe(r.Method, 499, start, 0)
			return
		}
		f.fail(w, r, st, span, start, err)
		return
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header)
	st.cors.Apply(w.Header(), r)
	w.WriteHeader(resp.StatusCode)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, resp.Status)
	}

	written, err := relay(w, resp.Body)
	if err != nil && r.Context().Err() == nil {
		f.logger.Warn("relaying upstream body failed",
			"path", "/"+spec.Path,
			"request_id", requestID,
			"bytes", written,
			"error", err,
		)
		span.RecordError(err)
	}
	f.observe(r.Method, resp.StatusCode, start, written)
}

// fail answers with 502 when the upstream could not be reached.
func (f *Forwarder) fail(w http.ResponseWriter, r *http.Request, st *settings, span trace.Span, start time.Time, err error) {
	requestID := middleware.GetRequestID(r.Context())
	f.logger.Warn("upstream request failed",
		"method", r.Method,
		"upstream", st.upstream.Redacted(),
		"request_id", requestID,
		"error", err,
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, "upstream unreachable")

	st.cors.Apply(w.Header(), r)
	types.NewBadGatewayError("Upstream inference server is unreachable.").
		WithRequestID(requestID).
		Write(w)
	f.observe(r.Method, http.StatusBadGateway, start, 0)
}

func (f *Forwarder) observe(method string, status int, start time.Time, bytes int64) {
	if f.observer != nil {
		f.observer.ObserveProxyRequest(method, status, time.Since(start), bytes)
	}
}

// relay copies body to w, flushing after every write so streamed upstream
// responses reach the client as they arrive.
func relay(w http.ResponseWriter, body io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, copyBufferSize)

	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, err
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, err
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
