package interpret

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"imaginationai/khawab/pkg/limits/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Access gateway service token headers.
	HeaderAccessClientID     = "CF-Access-Client-Id"
	HeaderAccessClientSecret = "CF-Access-Client-Secret"

	generatePath = "/api/generate"
	tagsPath     = "/api/tags"

	// maxErrorBody bounds how much of a non-2xx body is read for classification.
	maxErrorBody = 64 << 10

	// maxSyncBody bounds a non-streamed response body.
	maxSyncBody = 4 << 20

	tracerName = "imaginationai/khawab/interpret"
)

// errCallTimeout is the cause attached to the per-call deadline.
var errCallTimeout = errors.New("interpretation deadline exceeded")

// Config configures a Client.
type Config struct {
	// BaseURL is the inference endpoint root, normally the edge proxy mount
	// (e.g. "http://127.0.0.1:8080/ollama").
	BaseURL string

	// Model is the upstream model name.
	Model string

	// MaxDreamLength is the maximum dream length in characters. 0 disables the check.
	MaxDreamLength int

	// RequestTimeout bounds each call from issuance. 0 disables the deadline.
	RequestTimeout time.Duration

	// MinRequestInterval spaces the starts of successive calls.
	MinRequestInterval time.Duration

	// AccessClientID and AccessClientSecret are sent as access gateway
	// headers when both are set.
	AccessClientID     string
	AccessClientSecret string
}

// Observer receives one observation per completed call.
type Observer interface {
	ObserveInterpretation(language, mode, outcome string, duration time.Duration, chunks int)
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver registers an Observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithCooldown shares a pacing limiter between clients.
func WithCooldown(cd *ratelimit.Cooldown) Option {
	return func(c *Client) {
		c.cooldown = cd
	}
}

// Client issues interpretation requests. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cooldown   *ratelimit.Cooldown
	observer   Observer
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a Client.
//
// The HTTP client has no overall timeout; calls are bounded by
// Config.RequestTimeout through their context instead so the stream can be
// read for as long as the deadline allows.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("interpret: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("interpret: model is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "interpret.client"),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cooldown == nil {
		c.cooldown = ratelimit.NewCooldown(cfg.MinRequestInterval)
	}
	return c, nil
}

// Interpret streams an interpretation of req.Dream, calling onChunk with
// each fragment in arrival order. onChunk may be nil.
//
// On success the returned Result.Text equals the concatenation of every
// fragment passed to onChunk. On failure the partial text is discarded.
func (c *Client) Interpret(ctx context.Context, req Request, onChunk func(Chunk)) (Result, error) {
	start := time.Now()
	lang := ParseLanguage(string(req.Language))

	res, err := c.interpret(ctx, req.Dream, lang, onChunk)
	c.finish("stream", lang, start, res.Chunks, err)
	return res, err
}

func (c *Client) interpret(ctx context.Context, dream string, lang Language, onChunk func(Chunk)) (Result, error) {
	dream, err := c.validate(dream)
	if err != nil {
		return Result{}, err
	}

	if err := c.cooldown.WaitTurn(ctx); err != nil {
		return Result{}, contextError(ctx)
	}

	callCtx, cancel := c.withDeadline(ctx)
	defer cancel()

	callCtx, span := c.tracer.Start(callCtx, "interpret.stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("khawab.language", string(lang)),
			attribute.String("khawab.model", c.cfg.Model),
			attribute.Int("khawab.dream_length", utf8.RuneCountInString(dream)),
		))
	defer span.End()

	resp, err := c.generate(callCtx, dream, lang, true)
	if err != nil {
		return Result{}, endSpan(span, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(callCtx, resp); err != nil {
		return Result{}, endSpan(span, err)
	}

	res, err := c.readStream(callCtx, resp.Body, onChunk)
	if err != nil {
		return Result{}, endSpan(span, err)
	}
	span.SetAttributes(attribute.Int("khawab.chunks", res.Chunks))
	return res, nil
}

// readStream decodes newline-delimited generate responses from body.
func (c *Client) readStream(ctx context.Context, body io.Reader, onChunk func(Chunk)) (Result, error) {
	reader := bufio.NewReader(body)

	var text strings.Builder
	chunks := 0

	for {
		line, readErr := reader.ReadBytes('\n')

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var msg generateResponse
			if err := json.Unmarshal(trimmed, &msg); err != nil || msg.Response == nil {
				if LooksLikeAccessBlock(string(trimmed)) {
					return Result{}, newError(KindAccessBlocked, errors.New("access gateway page in stream"))
				}
				c.logger.Debug("skipping malformed stream line", "length", len(trimmed))
			} else {
				fragment := *msg.Response
				if text.Len() == 0 && LooksLikeAccessBlock(fragment) {
					return Result{}, newError(KindAccessBlocked, errors.New("access gateway page in first chunk"))
				}
				if ctx.Err() != nil {
					return Result{}, contextError(ctx)
				}

				text.WriteString(fragment)
				chunks++
				if onChunk != nil {
					onChunk(Chunk{Text: fragment, Final: msg.Done})
				}
				if msg.Done {
					return Result{Text: text.String(), Chunks: chunks}, nil
				}
			}
		}

		if readErr != nil {
			if ctx.Err() != nil {
				return Result{}, contextError(ctx)
			}
			if errors.Is(readErr, io.EOF) {
				return Result{Text: text.String(), Chunks: chunks}, nil
			}
			return Result{}, newError(KindUnknown, fmt.Errorf("read stream: %w", readErr))
		}
	}
}

// InterpretSync requests a non-streamed interpretation. Validation, pacing,
// deadline and access block detection match Interpret.
func (c *Client) InterpretSync(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	lang := ParseLanguage(string(req.Language))

	res, err := c.interpretSync(ctx, req.Dream, lang)
	c.finish("sync", lang, start, res.Chunks, err)
	return res, err
}

func (c *Client) interpretSync(ctx context.Context, dream string, lang Language) (Result, error) {
	dream, err := c.validate(dream)
	if err != nil {
		return Result{}, err
	}

	if err := c.cooldown.WaitTurn(ctx); err != nil {
		return Result{}, contextError(ctx)
	}

	callCtx, cancel := c.withDeadline(ctx)
	defer cancel()

	callCtx, span := c.tracer.Start(callCtx, "interpret.sync",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("khawab.language", string(lang)),
			attribute.String("khawab.model", c.cfg.Model),
		))
	defer span.End()

	resp, err := c.generate(callCtx, dream, lang, false)
	if err != nil {
		return Result{}, endSpan(span, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(callCtx, resp); err != nil {
		return Result{}, endSpan(span, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSyncBody))
	if err != nil {
		if callCtx.Err() != nil {
			return Result{}, endSpan(span, contextError(callCtx))
		}
		return Result{}, endSpan(span, newError(KindUnknown, fmt.Errorf("read response: %w", err)))
	}

	var msg generateResponse
	if err := json.Unmarshal(body, &msg); err != nil || msg.Response == nil {
		if LooksLikeAccessBlock(string(body)) {
			return Result{}, endSpan(span, newError(KindAccessBlocked, errors.New("access gateway page in response")))
		}
		if err == nil {
			err = errors.New("response field missing")
		}
		return Result{}, endSpan(span, newError(KindUnknown, fmt.Errorf("decode response: %w", err)))
	}
	if LooksLikeAccessBlock(*msg.Response) {
		return Result{}, endSpan(span, newError(KindAccessBlocked, errors.New("access gateway page in response")))
	}

	return Result{Text: *msg.Response, Chunks: 1}, nil
}

// Models lists the models offered by the upstream server via GET /api/tags.
// It is not paced by the cooldown.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	callCtx, cancel := c.withDeadline(ctx)
	defer cancel()

	callCtx, span := c.tracer.Start(callCtx, "interpret.models", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.cfg.BaseURL+tagsPath, nil)
	if err != nil {
		return nil, endSpan(span, newError(KindUnknown, fmt.Errorf("create request: %w", err)))
	}
	c.setHeaders(callCtx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, endSpan(span, transportError(callCtx, err))
	}
	defer resp.Body.Close()

	if err := checkResponse(callCtx, resp); err != nil {
		return nil, endSpan(span, err)
	}

	var tags tagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSyncBody)).Decode(&tags); err != nil {
		return nil, endSpan(span, newError(KindUnknown, fmt.Errorf("decode models: %w", err)))
	}
	return tags.Models, nil
}

// Cooldown returns the pacing limiter used by the client.
func (c *Client) Cooldown() *ratelimit.Cooldown {
	return c.cooldown
}

// validate trims the dream and checks its length in characters.
func (c *Client) validate(dream string) (string, error) {
	dream = strings.TrimSpace(dream)
	if dream == "" {
		return "", newError(KindEmptyInput, nil)
	}
	if limit := c.cfg.MaxDreamLength; limit > 0 {
		if n := utf8.RuneCountInString(dream); n > limit {
			return "", newError(KindInputTooLong, fmt.Errorf("%d characters, maximum %d", n, limit))
		}
	}
	return dream, nil
}

// withDeadline derives the per-call context. The timeout is a separate
// cancellation source from the caller's ctx so the two can be told apart.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, c.cfg.RequestTimeout, errCallTimeout)
}

func (c *Client) generate(ctx context.Context, dream string, lang Language, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: BuildPrompt(lang, dream),
		Stream: stream,
	})
	if err != nil {
		return nil, newError(KindUnknown, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(KindUnknown, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(ctx, req)

	c.logger.Debug("sending generate request",
		"language", lang,
		"stream", stream,
		"dream_length", utf8.RuneCountInString(dream),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return resp, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	if c.cfg.AccessClientID != "" && c.cfg.AccessClientSecret != "" {
		req.Header.Set(HeaderAccessClientID, c.cfg.AccessClientID)
		req.Header.Set(HeaderAccessClientSecret, c.cfg.AccessClientSecret)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// finish logs and records a completed call.
func (c *Client) finish(mode string, lang Language, start time.Time, chunks int, err error) {
	duration := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(KindOf(err).String())
	}

	switch {
	case err == nil:
		c.logger.Info("interpretation completed",
			"mode", mode, "language", lang, "chunks", chunks, "duration", duration)
	case IsUserCancel(err):
		c.logger.Debug("interpretation cancelled", "mode", mode, "duration", duration)
	default:
		c.logger.Warn("interpretation failed",
			"mode", mode, "language", lang, "code", codeOf(err), "error", err, "duration", duration)
	}

	if c.observer != nil {
		c.observer.ObserveInterpretation(string(lang), mode, outcome, duration, chunks)
	}
}

// checkResponse classifies a response before its body is decoded.
func checkResponse(ctx context.Context, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil && ctx.Err() != nil {
			return contextError(ctx)
		}
		if LooksLikeAccessBlock(string(body)) {
			return &Error{Kind: KindAccessBlocked, Status: resp.StatusCode,
				Err: fmt.Errorf("access gateway page with status %d", resp.StatusCode)}
		}
		return &Error{Kind: KindUpstreamHTTPError, Status: resp.StatusCode,
			Err: fmt.Errorf("upstream returned %s", resp.Status)}
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return newError(KindAccessBlocked, errors.New("upstream returned an HTML document"))
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return newError(KindStreamUnavailable, errors.New("response has no body"))
	}
	return nil
}

// contextError maps a done context to Timeout or Cancelled.
func contextError(ctx context.Context) *Error {
	cause := context.Cause(ctx)
	if errors.Is(cause, errCallTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		return newError(KindTimeout, cause)
	}
	if cause == nil {
		cause = context.Canceled
	}
	return newError(KindCancelled, cause)
}

func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return contextError(ctx)
	}
	return newError(KindUnknown, err)
}

func codeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return KindUnknown.String()
}

// endSpan records err on span unless it is a caller cancellation.
func endSpan(span trace.Span, err error) error {
	if !IsUserCancel(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, codeOf(err))
	}
	return err
}
