package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskwell/internal/apperrors"
	"taskwell/internal/repository"
	"taskwell/internal/service"
)

type createTaskRequest struct {
	Task      string  `json:"task"`
	Category  string  `json:"category"`
	Priority  string  `json:"priority"`
	Deadline  *string `json:"deadline"`
	Status    string  `json:"status"`
	Recurring bool    `json:"recurring"`
}

type updateTaskRequest struct {
	Task      *string `json:"task"`
	Category  *string `json:"category"`
	Priority  *string `json:"priority"`
	Deadline  *string `json:"deadline"`
	Status    *string `json:"status"`
	Recurring *bool   `json:"recurring"`
}

// taskID parses the {id} path segment. A malformed id names no task.
func taskID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NotFound(apperrors.CodeTaskNotFound, "Task not found")
	}
	return uint(id), nil
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Create(r.Context(), UserIDFrom(r.Context()), service.TaskInput{
		Title:     req.Task,
		Category:  req.Category,
		Priority:  req.Priority,
		Deadline:  req.Deadline,
		Status:    req.Status,
		Recurring: req.Recurring,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Update(r.Context(), UserIDFrom(r.Context()), id, service.TaskUpdate{
		Title:     req.Task,
		Category:  req.Category,
		Priority:  req.Priority,
		Deadline:  req.Deadline,
		Status:    req.Status,
		Recurring: req.Recurring,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) completeTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Complete(r.Context(), UserIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), UserIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	messageJSON(w, http.StatusOK, "Task deleted!")
}

func (h *handler) completionRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.tasks.CompletionRate(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"completion_rate": rate})
}

func (h *handler) byCategory(w http.ResponseWriter, r *http.Request) {
	h.groupBy(w, r, repository.GroupByCategory)
}

func (h *handler) byPriority(w http.ResponseWriter, r *http.Request) {
	h.groupBy(w, r, repository.GroupByPriority)
}

func (h *handler) groupBy(w http.ResponseWriter, r *http.Request, column repository.GroupColumn) {
	counts, err := h.tasks.GroupBy(r.Context(), UserIDFrom(r.Context()), column)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
