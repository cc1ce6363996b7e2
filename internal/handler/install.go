package handler

import (
	"net/http"

	"fakestore-offline/internal/model"
	"fakestore-offline/internal/service"
	"fakestore-offline/pkg/apierror"
	"fakestore-offline/pkg/response"
)

// InstallHandler exposes the install prompt.
type InstallHandler struct {
	prompter *service.InstallPrompter
}

// NewInstallHandler creates a new install handler.
func NewInstallHandler(prompter *service.InstallPrompter) *InstallHandler {
	return &InstallHandler{prompter: prompter}
}

// Get handles GET /api/v1/install
func (h *InstallHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.prompter.Status())
}

// CaptureResponse reports whether the deferred prompt was kept.
type CaptureResponse struct {
	model.InstallStatus
	Captured bool `json:"captured"`
}

// Capture handles POST /api/v1/install/capture. The client calls it when the
// platform offers an install prompt and it has deferred it.
func (h *InstallHandler) Capture(w http.ResponseWriter, r *http.Request) {
	captured := h.prompter.Capture(service.ClientPrompt{})
	response.OK(w, CaptureResponse{InstallStatus: h.prompter.Status(), Captured: captured})
}

// InstallAppRequest is the body of POST /api/v1/install.
type InstallAppRequest struct {
	Outcome model.InstallOutcome `json:"outcome"`
}

// InstallAppResponse is the answer to the prompt.
type InstallAppResponse struct {
	model.InstallStatus
	Outcome model.InstallOutcome `json:"outcome"`
}

// Install handles POST /api/v1/install. The body carries the user's answer
// to the prompt the client showed.
func (h *InstallHandler) Install(w http.ResponseWriter, r *http.Request) {
	var req InstallAppRequest
	if err := decodeJSON(r, &req, true); err != nil {
		response.Error(w, err)
		return
	}
	if req.Outcome != "" && !req.Outcome.Valid() {
		response.Error(w, apierror.ValidationError("unknown outcome",
			apierror.FieldError{Field: "outcome", Message: "must be accepted or dismissed"}))
		return
	}

	ctx := r.Context()
	if req.Outcome != "" {
		ctx = service.WithInstallOutcome(ctx, req.Outcome)
	}
	outcome, err := h.prompter.InstallApp(ctx)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, InstallAppResponse{InstallStatus: h.prompter.Status(), Outcome: outcome})
}

// Installed handles POST /api/v1/install/installed
func (h *InstallHandler) Installed(w http.ResponseWriter, r *http.Request) {
	h.prompter.AppInstalled()
	response.OK(w, h.prompter.Status())
}
