package interpret

import "strings"

// accessBlockMarkers are substrings found in access gateway interception
// pages and never in model output we expect.
var accessBlockMarkers = []string{
	"cloudflare",
	"Cloudflare",
	"Access denied",
	"cf-access",
	"<!DOCTYPE html>",
	"<html",
}

// LooksLikeAccessBlock reports whether text looks like an access gateway
// interception page rather than model output. Matching is case sensitive.
func LooksLikeAccessBlock(text string) bool {
	for _, marker := range accessBlockMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
