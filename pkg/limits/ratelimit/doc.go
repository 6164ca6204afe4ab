// Package ratelimit provides request pacing for outbound calls.
//
// # Cooldown
//
// Cooldown spaces the starts of successive operations at least a fixed
// interval apart. Callers that arrive early wait for their turn instead of
// being rejected:
//
//	cooldown := ratelimit.NewCooldown(2 * time.Second)
//	if err := cooldown.WaitTurn(ctx); err != nil {
//	    return err // ctx ended while waiting
//	}
//	// start the request
//
// # Thread Safety
//
// Cooldown is safe for concurrent use; concurrent callers each reserve a
// distinct start slot.
package ratelimit
