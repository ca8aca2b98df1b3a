package handlers

import (
	"encoding/json"
	"net/http"

	"adgen/internal/domain"
	"adgen/internal/infra"
	"adgen/internal/lifecycle"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Jobs      domain.JobRepository
	Lifecycle *lifecycle.Controller
	Logger    infra.Logger
}

// NewApp wires handler dependencies.
func NewApp(jobs domain.JobRepository, ctrl *lifecycle.Controller, logger infra.Logger) *App {
	return &App{Jobs: jobs, Lifecycle: ctrl, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
