package handler

import (
	"io"
	"net/http"

	"fakestore-offline/internal/model"
	"fakestore-offline/internal/service"
	"fakestore-offline/pkg/apierror"
	"fakestore-offline/pkg/response"
)

const maxPushPayload = 4 << 10

// WorkerHandler delivers best-effort platform events to the worker.
type WorkerHandler struct {
	worker *service.Worker
}

// NewWorkerHandler creates a new worker event handler.
func NewWorkerHandler(worker *service.Worker) *WorkerHandler {
	return &WorkerHandler{worker: worker}
}

// AcceptedResponse acknowledges an event queued for background handling.
type AcceptedResponse struct {
	Event    string `json:"event"`
	Accepted bool   `json:"accepted"`
}

func (h *WorkerHandler) dispatch(w http.ResponseWriter, r *http.Request, ev model.Event) {
	if _, err := h.worker.Handle(r.Context(), ev); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, AcceptedResponse{Event: model.EventName(ev), Accepted: true})
}

// SyncRequest is the body of POST /api/v1/worker/sync.
type SyncRequest struct {
	Tag string `json:"tag"`
}

// Sync handles POST /api/v1/worker/sync. An empty body uses the default tag.
func (h *WorkerHandler) Sync(w http.ResponseWriter, r *http.Request) {
	req := SyncRequest{Tag: model.BackgroundSyncTag}
	if err := decodeJSON(r, &req, true); err != nil {
		response.Error(w, err)
		return
	}
	h.dispatch(w, r, model.BackgroundSyncRequested{Tag: req.Tag})
}

// Push handles POST /api/v1/worker/push. The raw body is the push payload.
func (h *WorkerHandler) Push(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPushPayload+1))
	if err != nil {
		response.Error(w, apierror.BadRequest("failed to read request body"))
		return
	}
	if len(payload) > maxPushPayload {
		response.Error(w, apierror.BadRequest("push payload too large"))
		return
	}
	h.dispatch(w, r, model.PushReceived{Payload: payload})
}

// NotificationClickRequest is the body of POST /api/v1/worker/notificationclick.
type NotificationClickRequest struct {
	Action string `json:"action"`
}

// NotificationClick handles POST /api/v1/worker/notificationclick
func (h *WorkerHandler) NotificationClick(w http.ResponseWriter, r *http.Request) {
	var req NotificationClickRequest
	if err := decodeJSON(r, &req, true); err != nil {
		response.Error(w, err)
		return
	}
	h.dispatch(w, r, model.NotificationClicked{Action: req.Action})
}
