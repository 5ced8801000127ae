package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/resumeqa/internal/api"
	"github.com/cloo-solutions/resumeqa/internal/service"
)

type WorklistProvider interface {
	Worklist(ctx context.Context) (*service.Worklist, error)
}

type IngestHandler struct {
	svc WorklistProvider
}

func NewIngestHandler(svc WorklistProvider) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestStatusResponse struct {
	Total     int      `json:"total"`
	Completed []string `json:"completed"`
	Pending   []string `json:"pending"`
}

// Status handles GET /ingest/status.
func (h *IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	wl, err := h.svc.Worklist(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := IngestStatusResponse{
		Total:     len(wl.Documents),
		Completed: wl.Completed,
		Pending:   make([]string, 0, len(wl.Pending)),
	}
	for _, doc := range wl.Pending {
		resp.Pending = append(resp.Pending, doc.ID)
	}

	api.Success(w, http.StatusOK, resp)
}
