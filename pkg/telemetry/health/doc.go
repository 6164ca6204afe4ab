// Package health aggregates component readiness checks.
//
// Components register a CheckFunc under a name; CheckReadiness runs all of
// them concurrently with a per-check timeout and reports "ready" only when
// every check passed.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("upstream", handlers.UpstreamCheck(client))
//	checker.RegisterCheck("history", store.Ping)
//	report := checker.CheckReadiness(ctx)
package health
