package model

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// CachePolicy is the caching strategy assigned to a request.
type CachePolicy int

const (
	NetworkFirst CachePolicy = iota
	CacheFirst
	NetworkOnly
)

func (p CachePolicy) String() string {
	switch p {
	case NetworkFirst:
		return "network_first"
	case CacheFirst:
		return "cache_first"
	case NetworkOnly:
		return "network_only"
	default:
		return "unknown"
	}
}

// RequestClass is the policy tag a request was classified under.
type RequestClass string

const (
	ClassAPI        RequestClass = "api"
	ClassAsset      RequestClass = "asset"
	ClassNavigation RequestClass = "navigation"
	ClassMutation   RequestClass = "mutation"
)

// Destination mirrors the fetch destination of a request (Sec-Fetch-Dest).
type Destination string

const (
	DestinationEmpty    Destination = ""
	DestinationDocument Destination = "document"
	DestinationImage    Destination = "image"
	DestinationStyle    Destination = "style"
	DestinationScript   Destination = "script"
	DestinationFont     Destination = "font"
	DestinationManifest Destination = "manifest"
)

// RequestKey identifies a cache slot. Two requests with the same normalized
// method and URL share a slot regardless of their headers.
type RequestKey struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// NewRequestKey normalizes method and URL into a RequestKey.
func NewRequestKey(method string, u *url.URL) RequestKey {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" || method == http.MethodHead {
		method = http.MethodGet
	}
	return RequestKey{Method: method, URL: NormalizeURL(u)}
}

// ParseRequestKey is NewRequestKey for a raw URL string.
func ParseRequestKey(method, rawURL string) (RequestKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RequestKey{}, err
	}
	return NewRequestKey(method, u), nil
}

// String returns the key as "METHOD url".
func (k RequestKey) String() string {
	return k.Method + " " + k.URL
}

// NormalizeURL lower-cases scheme and host, drops default ports and the
// fragment, and sorts the query.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Fragment = ""
	n.RawFragment = ""
	n.User = nil

	host := strings.ToLower(n.Host)
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (n.Scheme == "http" && port == "80") || (n.Scheme == "https" && port == "443") {
			host = h
		}
	}
	n.Host = host

	if n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	if n.RawQuery != "" {
		n.RawQuery = n.Query().Encode()
	}
	n.ForceQuery = false
	return n.String()
}

// ResponseSource records where a routed response came from.
type ResponseSource string

const (
	SourceNetwork ResponseSource = "network"
	SourceCache   ResponseSource = "cache"
	SourceShell   ResponseSource = "shell"
)

// Response is a fully buffered response produced by the cache router.
type Response struct {
	StatusCode int            `json:"status_code"`
	Header     http.Header    `json:"header,omitempty"`
	Body       []byte         `json:"body,omitempty"`
	Source     ResponseSource `json:"source"`
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}
