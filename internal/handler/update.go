package handler

import (
	"errors"
	"net/http"

	"fakestore-offline/internal/model"
	"fakestore-offline/internal/service"
	"fakestore-offline/pkg/apierror"
	"fakestore-offline/pkg/response"
)

// UpdateHandler exposes the update coordinator.
type UpdateHandler struct {
	worker   *service.Worker
	updates  *service.UpdateCoordinator
	manifest []string
}

// NewUpdateHandler creates a new update handler. manifest is used for
// installs that do not name their own.
func NewUpdateHandler(worker *service.Worker, updates *service.UpdateCoordinator, manifest []string) *UpdateHandler {
	return &UpdateHandler{worker: worker, updates: updates, manifest: manifest}
}

// UpdateResponse is the coordinator state as seen by the UI.
type UpdateResponse struct {
	model.UpdateState
	UpdateAvailable bool `json:"update_available"`
	Persisted       bool `json:"persisted"`
}

func (h *UpdateHandler) respond(w http.ResponseWriter, err error) {
	persisted := true
	if err != nil {
		if !errors.Is(err, model.ErrPersistence) {
			response.Error(w, updateError(err))
			return
		}
		persisted = false
	}
	response.OK(w, UpdateResponse{
		UpdateState:     h.updates.State(),
		UpdateAvailable: h.updates.UpdateAvailable(),
		Persisted:       persisted,
	})
}

func updateError(err error) error {
	switch {
	case errors.Is(err, service.ErrNoPendingUpdate):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrActivationNotConfirmed):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrEmptyGeneration):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, model.ErrTransport):
		return apierror.ServiceUnavailable(err.Error())
	default:
		return err
	}
}

// Get handles GET /api/v1/update
func (h *UpdateHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, nil)
}

// InstallRequest is the body of POST /api/v1/update/install.
type InstallRequest struct {
	Generation string   `json:"generation"`
	Manifest   []string `json:"manifest,omitempty"`
}

// Install handles POST /api/v1/update/install. It precaches the generation
// and records it as installed.
func (h *UpdateHandler) Install(w http.ResponseWriter, r *http.Request) {
	var req InstallRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}
	if req.Generation == "" {
		response.Error(w, apierror.ValidationError("generation is required",
			apierror.FieldError{Field: "generation", Message: "required"}))
		return
	}
	if len(req.Manifest) == 0 {
		req.Manifest = h.manifest
	}

	_, err := h.worker.Handle(r.Context(), model.InstallEvent{Generation: req.Generation, Manifest: req.Manifest})
	h.respond(w, err)
}

// Confirm handles POST /api/v1/update/confirm
func (h *UpdateHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	_, err := h.worker.Handle(r.Context(), model.ActivationConfirmed{})
	h.respond(w, err)
}

// Dismiss handles POST /api/v1/update/dismiss
func (h *UpdateHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.updates.Dismiss(r.Context()))
}
