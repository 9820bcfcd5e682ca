package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/canvasync/internal/server/hub"
	"github.com/iudanet/canvasync/internal/server/storage"
	"github.com/iudanet/canvasync/internal/validation"
	"github.com/iudanet/canvasync/pkg/api"
)

// ProjectsHandler serves the project snapshot store. All routes sit
// behind the auth middleware; any valid session may read or write
// snapshots.
type ProjectsHandler struct {
	storage storage.ProjectStorage
	boards  *hub.Hub
	logger  *slog.Logger
}

// NewProjectsHandler creates the projects endpoint handler.
func NewProjectsHandler(s storage.ProjectStorage, boards *hub.Hub, logger *slog.Logger) *ProjectsHandler {
	return &ProjectsHandler{storage: s, boards: boards, logger: logger}
}

// List handles GET /api/projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.storage.ListProjects(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list projects", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	metas := make([]api.ProjectMetadata, 0, len(projects))
	for _, p := range projects {
		metas = append(metas, api.ProjectMetadata{
			ID:        p.ID,
			Name:      p.Name,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	sendJSON(w, h.logger, metas, http.StatusOK)
}

// Get handles GET /api/projects/{id}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateBoardID(id); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	project, err := h.storage.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			sendError(w, h.logger, "project not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get project", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, h.logger, api.ProjectResponse{
		Metadata: api.ProjectMetadata{
			ID:        project.ID,
			Name:      project.Name,
			CreatedAt: project.CreatedAt,
			UpdatedAt: project.UpdatedAt,
			Objects:   len(project.Objects),
		},
		Objects: project.Objects,
	}, http.StatusOK)
}

// Save handles PUT /api/projects/{id}: stores a point-in-time snapshot
// of a board under the given project id.
func (h *ProjectsHandler) Save(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateBoardID(id); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	var req api.SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		sendError(w, h.logger, "project name cannot be empty", http.StatusBadRequest)
		return
	}
	for i := range req.Objects {
		if err := req.Objects[i].Validate(); err != nil {
			sendError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}
	}

	project := &storage.Project{
		ID:        id,
		Name:      req.Name,
		Objects:   req.Objects,
		Thumbnail: req.Thumbnail,
	}
	if err := h.storage.SaveProject(r.Context(), project); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save project", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(r.Context(), "project saved",
		slog.String("project_id", id),
		slog.Int("objects", len(req.Objects)))

	sendJSON(w, h.logger, api.ProjectMetadata{
		ID:      id,
		Name:    req.Name,
		Objects: len(req.Objects),
	}, http.StatusOK)
}

// Load handles POST /api/projects/{id}/load: replaces the caller's
// live board state with the stored snapshot. Every subscriber on the
// board receives the swap as removed and added events.
func (h *ProjectsHandler) Load(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateBoardID(id); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	boardID, _ := r.Context().Value(BoardKey).(string)
	if boardID == "" {
		sendError(w, h.logger, "session has no board", http.StatusBadRequest)
		return
	}

	project, err := h.storage.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			sendError(w, h.logger, "project not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load project", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.boards.Board(boardID).ReplaceObjects(project.Objects)

	h.logger.InfoContext(r.Context(), "project loaded into board",
		slog.String("project_id", id),
		slog.String("board", boardID),
		slog.Int("objects", len(project.Objects)))

	sendJSON(w, h.logger, api.ProjectMetadata{
		ID:        project.ID,
		Name:      project.Name,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
		Objects:   len(project.Objects),
	}, http.StatusOK)
}

// Delete handles DELETE /api/projects/{id}.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateBoardID(id); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.storage.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			sendError(w, h.logger, "project not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to delete project", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
