package proxy

import (
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Access gateway service token headers. They are only ever set by the proxy.
const (
	HeaderAccessClientID     = "CF-Access-Client-Id"
	HeaderAccessClientSecret = "CF-Access-Client-Secret"
)

// hopHeaders are removed from forwarded requests and relayed responses.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ForwardSpec describes one outbound upstream request. It is built per
// inbound request and never retained.
type ForwardSpec struct {
	// TargetBaseURL is the upstream root, e.g. https://ollama.example.com.
	TargetBaseURL *url.URL

	// Path is the escaped path remainder after the mount, without a leading slash.
	Path string

	// RawQuery is the inbound query string, preserved verbatim.
	RawQuery string

	// Header is the copy of the inbound headers to forward.
	Header http.Header

	// InjectedHeaders are credential headers added by the proxy.
	InjectedHeaders http.Header
}

// URL returns the absolute upstream URL.
func (s ForwardSpec) URL() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(s.TargetBaseURL.String(), "/"))
	b.WriteByte('/')
	b.WriteString(s.Path)
	if s.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(s.RawQuery)
	}
	return b.String()
}

// OutboundHeader returns the headers to send upstream: the forwarded copy
// with the injected credentials applied on top.
func (s ForwardSpec) OutboundHeader() http.Header {
	h := s.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	for k, vv := range s.InjectedHeaders {
		h[k] = append([]string(nil), vv...)
	}
	return h
}

// newForwardSpec builds the ForwardSpec for r. remainder is the escaped path after
// the mount point.
func newForwardSpec(r *http.Request, remainder string, st *settings) ForwardSpec {
	remainder = strings.TrimLeft(remainder, "/")
	if remainder == "" {
		remainder = st.defaultPath
	}

	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	removeHopHeaders(header)
	header.Del("Host")
	header.Del(HeaderAccessClientID)
	header.Del(HeaderAccessClientSecret)
	if st.stripOrigin {
		header.Del("Origin")
	}

	spec := ForwardSpec{
		TargetBaseURL: st.upstream,
		Path:          remainder,
		RawQuery:      r.URL.RawQuery,
		Header:        header,
	}
	if st.accessID != "" && st.accessSecret != "" {
		spec.InjectedHeaders = http.Header{}
		spec.InjectedHeaders.Set(HeaderAccessClientID, st.accessID)
		spec.InjectedHeaders.Set(HeaderAccessClientSecret, st.accessSecret)
	}
	return spec
}

// removeHopHeaders deletes hop-by-hop headers from h, including any named
// in its Connection header.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// copyHeader copies src into dst, skipping hop-by-hop headers.
func copyHeader(dst, src http.Header) {
	skip := make(map[string]struct{}, len(hopHeaders))
	for _, name := range hopHeaders {
		skip[http.CanonicalHeaderKey(name)] = struct{}{}
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				skip[http.CanonicalHeaderKey(name)] = struct{}{}
			}
		}
	}

	for k, vv := range src {
		if _, ok := skip[k]; ok {
			continue
		}
		dst[k] = append([]string(nil), vv...)
	}
}
