package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fakestore-offline/internal/middleware"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/service"
	"fakestore-offline/pkg/response"
)

// hopHeaders are not copied from a routed response.
var hopHeaders = []string{"Connection", "Keep-Alive", "Transfer-Encoding", "Content-Length", "Content-Encoding"}

// ProxyHandler turns every request not handled by the API into a fetch event.
type ProxyHandler struct {
	worker    *service.Worker
	apiOrigin *url.URL
	apiPrefix string
}

// NewProxyHandler creates the catch-all handler. Requests under apiPrefix are
// sent to apiOrigin with the prefix removed; other relative requests resolve
// against the app origin inside the router.
func NewProxyHandler(worker *service.Worker, apiOrigin *url.URL, apiPrefix string) *ProxyHandler {
	return &ProxyHandler{worker: worker, apiOrigin: apiOrigin, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// ServeHTTP routes the request through the worker and writes its response.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.worker.Handle(r.Context(), model.FetchEvent{Request: h.target(r)})
	if err != nil {
		w.Header().Set("Cache-Control", "no-store")
		response.Error(w, err)
		return
	}

	header := w.Header()
	for k, vs := range resp.Header {
		header[k] = append([]string(nil), vs...)
	}
	for _, k := range hopHeaders {
		header.Del(k)
	}
	header.Set(middleware.OfflineSourceHeader, string(resp.Source))
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))

	w.WriteHeader(resp.StatusCode)
	if r.Method != http.MethodHead {
		_, _ = w.Write(resp.Body)
	}
}

// target maps the incoming request to the resource it stands for.
func (h *ProxyHandler) target(r *http.Request) *http.Request {
	if r.URL.IsAbs() || h.apiOrigin == nil || h.apiPrefix == "" {
		return r
	}
	path := r.URL.Path
	if path != h.apiPrefix && !strings.HasPrefix(path, h.apiPrefix+"/") {
		return r
	}

	out := r.Clone(r.Context())
	u := *h.apiOrigin
	u.Path = strings.TrimRight(h.apiOrigin.Path, "/") + strings.TrimPrefix(path, h.apiPrefix)
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawPath = ""
	u.RawQuery = r.URL.RawQuery
	out.URL = &u
	return out
}
