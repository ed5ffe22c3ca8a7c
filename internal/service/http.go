package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mistward/fmgtrans/internal/chunk"
	"github.com/mistward/fmgtrans/internal/persistence"
	"github.com/mistward/fmgtrans/internal/pipeline"
	"github.com/mistward/fmgtrans/pkg/icron"
)

// API is the HTTP status surface over the runner. It is a thin read/control
// layer; all pipeline state lives in the sessions and the run store.
type API struct {
	runner  *Runner
	store   *persistence.SQLiteStore // optional
	watcher *Watcher                 // optional
}

func NewAPI(runner *Runner, store *persistence.SQLiteStore, watcher *Watcher) *API {
	return &API{runner: runner, store: store, watcher: watcher}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", a.listRuns)
		r.Post("/runs", a.startRun)
		r.Get("/runs/{id}", a.getRun)
		r.Post("/runs/{id}/pause", a.controlRun((*pipeline.Session).Pause))
		r.Post("/runs/{id}/resume", a.controlRun((*pipeline.Session).Resume))
		r.Post("/runs/{id}/stop", a.controlRun((*pipeline.Session).Stop))
		r.Get("/runs/{id}/failures", a.listFailures)
		r.Get("/runs/{id}/fidelity", a.listFidelity)
		r.Get("/watch", a.watchStatus)
	})
	return r
}

type runView struct {
	ID     string          `json:"id"`
	Folder string          `json:"folder"`
	Live   bool            `json:"live"`
	Status pipeline.Status `json:"status"`
}

type startRequest struct {
	Folder string `json:"folder"`
}

func (a *API) startRun(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Folder == "" {
		httpError(w, http.StatusBadRequest, "a folder is required")
		return
	}
	handle, err := a.runner.Start(r.Context(), req.Folder)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chunk.ErrMissingHeader) {
			status = http.StatusNotFound
		}
		httpError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(handle))
}

func (a *API) listRuns(w http.ResponseWriter, r *http.Request) {
	live := a.runner.List()
	views := make([]runView, 0, len(live))
	for _, h := range live {
		views = append(views, viewOf(h))
	}

	resp := struct {
		Live    []runView          `json:"live"`
		History []*persistence.Run `json:"history,omitempty"`
	}{Live: views}

	if a.store != nil {
		history, err := a.store.ListRuns(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.History = history
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h, ok := a.runner.Get(id); ok {
		writeJSON(w, http.StatusOK, viewOf(h))
		return
	}
	if a.store != nil {
		run, err := a.store.GetRun(r.Context(), id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if run != nil {
			writeJSON(w, http.StatusOK, run)
			return
		}
	}
	httpError(w, http.StatusNotFound, "unknown run "+id)
}

func (a *API) controlRun(action func(*pipeline.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		h, ok := a.runner.Get(id)
		if !ok {
			httpError(w, http.StatusNotFound, "unknown run "+id)
			return
		}
		action(h.Session)
		writeJSON(w, http.StatusOK, viewOf(h))
	}
}

func (a *API) listFailures(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		httpError(w, http.StatusNotFound, "no run store configured")
		return
	}
	failures, err := a.store.ListBatchFailures(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, failures)
}

func (a *API) listFidelity(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		httpError(w, http.StatusNotFound, "no run store configured")
		return
	}
	lowOnly := r.URL.Query().Get("low") == "1"
	checks, err := a.store.ListFidelityChecks(r.Context(), chi.URLParam(r, "id"), lowOnly)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (a *API) watchStatus(w http.ResponseWriter, r *http.Request) {
	if a.watcher == nil {
		httpError(w, http.StatusNotFound, "watch mode is not enabled")
		return
	}
	info, err := icron.GetTriggerInfo(a.watcher.CronExpr(), time.Now())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func viewOf(h *Handle) runView {
	return runView{
		ID:     h.ID,
		Folder: h.Folder,
		Live:   true,
		Status: h.Session.Status(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
