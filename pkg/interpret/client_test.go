package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:        baseURL,
		Model:          "llama3.2",
		MaxDreamLength: 2000,
		RequestTimeout: 5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// streamHandler writes each line followed by a newline, flushing after each.
func streamHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func collect(chunks *[]Chunk) func(Chunk) {
	return func(c Chunk) { *chunks = append(*chunks, c) }
}

func TestInterpret_StreamsChunksInOrder(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected /api/generate, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		streamHandler(
			`{"model":"llama3.2","response":"Hello ","done":false}`,
			`{"model":"llama3.2","response":"world","done":true}`,
		)(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var chunks []Chunk
	res, err := client.Interpret(context.Background(), Request{Dream: "  a white bird  ", Language: English}, collect(&chunks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Text != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", res.Text)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "Hello " || chunks[0].Final {
		t.Errorf("unexpected first chunk %+v", chunks[0])
	}
	if chunks[1].Text != "world" || !chunks[1].Final {
		t.Errorf("unexpected second chunk %+v", chunks[1])
	}

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
	}
	if joined.String() != res.Text {
		t.Errorf("result %q differs from concatenated chunks %q", res.Text, joined.String())
	}

	if got.Model != "llama3.2" || !got.Stream {
		t.Errorf("unexpected request body %+v", got)
	}
	if got.Prompt != BuildPrompt(English, "a white bird") {
		t.Errorf("unexpected prompt %q", got.Prompt)
	}
}

func TestInterpret_AccessBlockInFirstChunk(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"response":"please log in via cf-access","done":false}`,
		`{"response":"more","done":true}`,
	))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var chunks []Chunk
	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, collect(&chunks))
	if !errors.Is(err, ErrAccessBlocked) {
		t.Fatalf("expected access blocked, got %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks delivered, got %d", len(chunks))
	}
}

func TestInterpret_UpstreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if KindOf(err) != KindUpstreamHTTPError {
		t.Fatalf("expected upstream HTTP error, got %v", err)
	}
	if StatusOf(err) != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", StatusOf(err))
	}
	if !errors.Is(err, &Error{Kind: KindUpstreamHTTPError, Status: 503}) {
		t.Error("expected errors.Is to match status 503")
	}
	if errors.Is(err, &Error{Kind: KindUpstreamHTTPError, Status: 500}) {
		t.Error("expected errors.Is not to match status 500")
	}

	var e *Error
	if errors.As(err, &e) && e.Code() != "HTTP_ERROR_503" {
		t.Errorf("expected code HTTP_ERROR_503, got %q", e.Code())
	}
}

func TestInterpret_ErrorStatusWithGatewayPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "<!DOCTYPE html><title>Access denied</title>")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if KindOf(err) != KindAccessBlocked {
		t.Fatalf("expected access blocked, got %v", err)
	}
	if StatusOf(err) != http.StatusForbidden {
		t.Errorf("expected status 403 to be kept, got %d", StatusOf(err))
	}
}

func TestInterpret_HTMLContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `{"response":"looks fine","done":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var chunks []Chunk
	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, collect(&chunks))
	if !errors.Is(err, ErrAccessBlocked) {
		t.Fatalf("expected access blocked, got %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected HTML body not to be parsed, got %d chunks", len(chunks))
	}
}

func TestInterpret_SkipsMalformedLines(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"response":"Peace ","done":false}`,
		`{"respo`,
		`not json at all`,
		`{"done":false}`,
		`{"response":"be upon you","done":true}`,
	))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var chunks []Chunk
	res, err := client.Interpret(context.Background(), Request{Dream: "dream"}, collect(&chunks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Peace be upon you" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestInterpret_RawGatewayLine(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`<html><body>Cloudflare Access</body></html>`,
	))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if !errors.Is(err, ErrAccessBlocked) {
		t.Fatalf("expected access blocked, got %v", err)
	}
}

func TestInterpret_StreamEndsWithoutDone(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"response":"partial ","done":false}`,
		`{"response":"answer","done":false}`,
	))
	defer server.Close()

	client := newTestClient(t, server.URL)

	res, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "partial answer" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestInterpret_LastLineWithoutNewline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{\"response\":\"one \",\"done\":false}\r\n{\"response\":\"two\",\"done\":true}")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	res, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "one two" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestInterpret_NoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if !errors.Is(err, ErrStreamUnavailable) {
		t.Fatalf("expected stream unavailable, got %v", err)
	}
}

func TestInterpret_InputValidation(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) { c.MaxDreamLength = 10 })

	tests := []struct {
		name  string
		dream string
		want  error
	}{
		{name: "empty", dream: "", want: ErrEmptyInput},
		{name: "whitespace", dream: " \n\t ", want: ErrEmptyInput},
		{name: "too long", dream: strings.Repeat("a", 11), want: ErrInputTooLong},
		{name: "too long in runes", dream: strings.Repeat("خ", 11), want: ErrInputTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Interpret(context.Background(), Request{Dream: tt.dream}, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if calls != 0 {
		t.Errorf("expected no upstream calls for invalid input, got %d", calls)
	}
}

func TestInterpret_MaxLengthCountsCharacters(t *testing.T) {
	server := httptest.NewServer(streamHandler(`{"response":"ok","done":true}`))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) { c.MaxDreamLength = 10 })

	// Ten Urdu characters are twenty bytes.
	if _, err := client.Interpret(context.Background(), Request{Dream: strings.Repeat("خ", 10)}, nil); err != nil {
		t.Errorf("expected ten characters to be accepted, got %v", err)
	}
}

func TestInterpret_AccessHeaders(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		secret   string
		wantSent bool
	}{
		{name: "both set", id: "client-id", secret: "client-secret", wantSent: true},
		{name: "only id", id: "client-id", wantSent: false},
		{name: "none", wantSent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header http.Header
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				header = r.Header.Clone()
				streamHandler(`{"response":"ok","done":true}`)(w, r)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, func(c *Config) {
				c.AccessClientID = tt.id
				c.AccessClientSecret = tt.secret
			})
			if _, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			gotID := header.Get(HeaderAccessClientID)
			gotSecret := header.Get(HeaderAccessClientSecret)
			if tt.wantSent {
				if gotID != tt.id || gotSecret != tt.secret {
					t.Errorf("expected credentials to be sent, got %q/%q", gotID, gotSecret)
				}
			} else if gotID != "" || gotSecret != "" {
				t.Errorf("expected no credentials, got %q/%q", gotID, gotSecret)
			}
		})
	}
}

func TestInterpret_CancelMidStream(t *testing.T) {
	const interval = 200 * time.Millisecond

	var (
		mu       sync.Mutex
		arrivals []time.Time
	)
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		n := len(arrivals)
		mu.Unlock()

		if n > 1 {
			streamHandler(`{"response":"second","done":true}`)(w, r)
			return
		}

		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"Hello ","done":false}`)
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-release:
			return
		}
		fmt.Fprintln(w, `{"response":"never","done":true}`)
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server.URL, func(c *Config) { c.MinRequestInterval = interval })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chunks []Chunk
	firstStart := time.Now()
	_, err := client.Interpret(ctx, Request{Dream: "dream"}, func(c Chunk) {
		chunks = append(chunks, c)
		cancel()
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if !IsUserCancel(err) {
		t.Error("expected IsUserCancel to report true")
	}
	if len(chunks) != 1 {
		t.Errorf("expected exactly one chunk before cancellation, got %d", len(chunks))
	}

	res, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if res.Text != "second" {
		t.Errorf("unexpected second result %q", res.Text)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(arrivals) != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", len(arrivals))
	}
	if gap := arrivals[1].Sub(firstStart); gap < interval {
		t.Errorf("second call started %v after the first, expected at least %v", gap, interval)
	}
}

func TestInterpret_CancelWhileWaitingForTurn(t *testing.T) {
	server := httptest.NewServer(streamHandler(`{"response":"ok","done":true}`))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) { c.MinRequestInterval = time.Hour })

	if _, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := client.Interpret(ctx, Request{Dream: "dream"}, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestInterpret_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"slow ","done":false}`)
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) { c.RequestTimeout = 50 * time.Millisecond })

	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if IsUserCancel(err) {
		t.Error("timeout must not be reported as a user cancellation")
	}
	if msg := UserMessage(err, English); msg != "Request timed out. Please try again." {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestInterpret_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url)

	_, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	if KindOf(err) != KindUnknown {
		t.Fatalf("expected unknown error, got %v", err)
	}
	if UserMessage(err, Urdu) != messages[Urdu][msgNetwork] {
		t.Errorf("expected network message, got %q", UserMessage(err, Urdu))
	}
}

func TestInterpret_BackToBackCallsArePaced(t *testing.T) {
	const interval = 100 * time.Millisecond

	var (
		mu       sync.Mutex
		arrivals []time.Time
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		streamHandler(`{"response":"ok","done":true}`)(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *Config) { c.MinRequestInterval = interval })

	for i := 0; i < 2; i++ {
		if _, err := client.Interpret(context.Background(), Request{Dream: "dream"}, nil); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if gap := arrivals[1].Sub(arrivals[0]); gap < interval-10*time.Millisecond {
		t.Errorf("calls only %v apart, expected at least %v", gap, interval)
	}
}

func TestInterpret_UrduPrompt(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		streamHandler(`{"response":"تعبیر","done":true}`)(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	res, err := client.Interpret(context.Background(), Request{Dream: "سفید پرندہ", Language: Urdu}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "تعبیر" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if !strings.HasPrefix(got.Prompt, systemPromptUrdu) {
		t.Error("expected Urdu system prompt")
	}
	if !strings.Contains(got.Prompt, "میرا خواب: سفید پرندہ") {
		t.Errorf("expected dream in Urdu user prompt, got %q", got.Prompt)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveInterpretation(language, mode, outcome string, _ time.Duration, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, mode+":"+outcome)
}

func TestInterpret_ReportsToObserver(t *testing.T) {
	server := httptest.NewServer(streamHandler(`{"response":"ok","done":true}`))
	defer server.Close()

	obs := &recordingObserver{}
	client, err := NewClient(Config{BaseURL: server.URL, Model: "m"}, WithObserver(obs))
	if err != nil {
		t.Fatal(err)
	}

	client.Interpret(context.Background(), Request{Dream: "dream"}, nil)
	client.Interpret(context.Background(), Request{Dream: ""}, nil)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	want := []string{"stream:success", "stream:empty_input"}
	if strings.Join(obs.outcomes, ",") != strings.Join(want, ",") {
		t.Errorf("expected outcomes %v, got %v", want, obs.outcomes)
	}
}

func TestInterpretSync(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		wantText string
		wantKind Kind
	}{
		{
			name:     "success",
			body:     `{"model":"llama3.2","response":"Full answer","done":true}`,
			status:   http.StatusOK,
			wantText: "Full answer",
		},
		{
			name:     "blocked response field",
			body:     `{"response":"Cloudflare Access login","done":true}`,
			status:   http.StatusOK,
			wantKind: KindAccessBlocked,
		},
		{
			name:     "blocked raw body",
			body:     `<html>Access denied</html>`,
			status:   http.StatusOK,
			wantKind: KindAccessBlocked,
		},
		{
			name:     "undecodable body",
			body:     `garbage`,
			status:   http.StatusOK,
			wantKind: KindUnknown,
		},
		{
			name:     "server error",
			body:     `internal`,
			status:   http.StatusInternalServerError,
			wantKind: KindUpstreamHTTPError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got generateRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			res, err := client.InterpretSync(context.Background(), Request{Dream: "dream"})

			if got.Stream {
				t.Error("expected stream=false in sync request")
			}
			if tt.wantText != "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if res.Text != tt.wantText {
					t.Errorf("expected %q, got %q", tt.wantText, res.Text)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("expected kind %v, got %v (%v)", tt.wantKind, KindOf(err), err)
			}
		})
	}
}

func TestModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"models":[{"name":"llama3.2:latest","size":2019393189},{"name":"qwen2.5:7b"}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/")

	models, err := client.Models(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "llama3.2:latest" || models[0].Size != 2019393189 {
		t.Errorf("unexpected first model %+v", models[0])
	}
}

func TestNewClient_RequiresBaseURLAndModel(t *testing.T) {
	if _, err := NewClient(Config{Model: "m"}); err == nil {
		t.Error("expected error without base URL")
	}
	if _, err := NewClient(Config{BaseURL: "http://x"}); err == nil {
		t.Error("expected error without model")
	}
}
