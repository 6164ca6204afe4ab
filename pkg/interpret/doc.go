// Package interpret implements the streaming dream interpretation client.
//
// A Client turns a dream description into a prompt, posts it to an
// Ollama-compatible /api/generate endpoint (usually through the edge proxy)
// and decodes the newline-delimited JSON stream into incremental chunks.
//
// # Usage
//
//	client, err := interpret.NewClient(interpret.Config{
//	    BaseURL: "http://127.0.0.1:8080/ollama",
//	    Model:   "llama3.2",
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Interpret(ctx, interpret.Request{
//	    Dream:    "I saw a white bird over the sea",
//	    Language: interpret.English,
//	}, func(c interpret.Chunk) {
//	    fmt.Print(c.Text)
//	})
//
// # Failure Modes
//
// Every failure is an *Error carrying a Kind. Cancelling ctx yields
// KindCancelled, which callers are expected to treat as a normal
// abandonment; the per-call deadline yields KindTimeout. Interception pages
// from an access gateway are recognised by LooksLikeAccessBlock and reported
// as KindAccessBlocked. UserMessage maps an error to a localized message.
//
// # Pacing
//
// Starts of successive calls on one Client are spaced by
// Config.MinRequestInterval using a ratelimit.Cooldown.
package interpret
