package handler

import (
	"net/http"

	"fakestore-offline/internal/service"
	"fakestore-offline/pkg/apierror"
	"fakestore-offline/pkg/response"
)

// ConnectivityHandler exposes the connectivity monitor.
type ConnectivityHandler struct {
	monitor *service.ConnectivityMonitor
	prober  *service.ConnectivityProber
}

// NewConnectivityHandler creates a new connectivity handler. prober may be nil.
func NewConnectivityHandler(monitor *service.ConnectivityMonitor, prober *service.ConnectivityProber) *ConnectivityHandler {
	return &ConnectivityHandler{monitor: monitor, prober: prober}
}

// Get handles GET /api/v1/connectivity
func (h *ConnectivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.monitor.Status())
}

// SetRequest is the body of POST /api/v1/connectivity.
type SetRequest struct {
	Online *bool `json:"online"`
}

// Set handles POST /api/v1/connectivity. Clients report the platform's
// online and offline events here.
func (h *ConnectivityHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req SetRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}
	if req.Online == nil {
		response.Error(w, apierror.ValidationError("online is required",
			apierror.FieldError{Field: "online", Message: "required"}))
		return
	}

	h.monitor.SetOnline(*req.Online)
	response.OK(w, h.monitor.Status())
}

// Probe handles POST /api/v1/connectivity/probe
func (h *ConnectivityHandler) Probe(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		response.Error(w, apierror.NotFound("connectivity probe is disabled"))
		return
	}
	h.prober.RunNow(r.Context())
	response.OK(w, h.monitor.Status())
}
