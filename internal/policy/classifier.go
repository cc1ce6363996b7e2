// Package policy maps outgoing requests to cache policies.
//
// Classification is a pure function of the request descriptor: no I/O, no
// clock, no shared state. The same descriptor always yields the same policy.
package policy

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"fakestore-offline/internal/model"
)

// Table is the injected policy configuration.
type Table struct {
	// APIHosts are the hosts of the product/category data API.
	APIHosts []string
	// AssetDestinations are served cache-first.
	AssetDestinations []model.Destination
}

// DefaultTable matches the storefront's upstreams.
func DefaultTable() Table {
	return Table{
		APIHosts: []string{"fakestoreapi.com"},
		AssetDestinations: []model.Destination{
			model.DestinationImage,
			model.DestinationStyle,
			model.DestinationScript,
		},
	}
}

// Descriptor is what the classifier looks at.
type Descriptor struct {
	Method      string
	URL         *url.URL
	Destination model.Destination
}

// Classifier assigns a CachePolicy to each request.
type Classifier struct {
	apiHosts map[string]struct{}
	assets   map[model.Destination]struct{}
}

// NewClassifier builds a classifier from table.
func NewClassifier(table Table) *Classifier {
	c := &Classifier{
		apiHosts: make(map[string]struct{}, len(table.APIHosts)),
		assets:   make(map[model.Destination]struct{}, len(table.AssetDestinations)),
	}
	for _, h := range table.APIHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			c.apiHosts[h] = struct{}{}
		}
	}
	for _, d := range table.AssetDestinations {
		c.assets[d] = struct{}{}
	}
	return c
}

// Class returns the policy tag for d. First match wins:
// mutation, api, asset, navigation.
func (c *Classifier) Class(d Descriptor) model.RequestClass {
	if isMutating(d.Method) {
		return model.ClassMutation
	}
	if d.URL != nil {
		if _, ok := c.apiHosts[strings.ToLower(d.URL.Hostname())]; ok {
			return model.ClassAPI
		}
	}
	if _, ok := c.assets[d.Destination]; ok {
		return model.ClassAsset
	}
	return model.ClassNavigation
}

// Classify returns the CachePolicy for d.
func (c *Classifier) Classify(d Descriptor) model.CachePolicy {
	return PolicyFor(c.Class(d))
}

// PolicyFor maps a class to its policy.
func PolicyFor(class model.RequestClass) model.CachePolicy {
	switch class {
	case model.ClassMutation:
		return model.NetworkOnly
	case model.ClassAsset:
		return model.CacheFirst
	default:
		return model.NetworkFirst
	}
}

func isMutating(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead:
		return false
	default:
		return true
	}
}

// Describe builds a Descriptor from an outgoing request. The destination
// comes from Sec-Fetch-Dest when the client sent it, otherwise from the
// path extension.
func Describe(r *http.Request) Descriptor {
	return Descriptor{
		Method:      r.Method,
		URL:         r.URL,
		Destination: destinationOf(r),
	}
}

func destinationOf(r *http.Request) model.Destination {
	if dest := strings.ToLower(r.Header.Get("Sec-Fetch-Dest")); dest != "" {
		switch model.Destination(dest) {
		case model.DestinationDocument, model.DestinationImage, model.DestinationStyle,
			model.DestinationScript, model.DestinationFont, model.DestinationManifest:
			return model.Destination(dest)
		case "empty":
			return model.DestinationEmpty
		}
		// iframe, worker, audio and the rest are not cached as assets
		return model.Destination(dest)
	}
	if r.URL == nil {
		return model.DestinationEmpty
	}
	return DestinationForPath(r.URL.Path)
}

// DestinationForPath infers a destination from a path extension.
func DestinationForPath(p string) model.Destination {
	switch strings.ToLower(path.Ext(p)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".avif":
		return model.DestinationImage
	case ".css":
		return model.DestinationStyle
	case ".js", ".mjs":
		return model.DestinationScript
	case ".woff", ".woff2", ".ttf", ".otf":
		return model.DestinationFont
	case ".webmanifest":
		return model.DestinationManifest
	case ".html", ".htm", "":
		return model.DestinationDocument
	default:
		return model.DestinationEmpty
	}
}
