package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"photoflow/internal/domain"
	"photoflow/internal/infra"
	"photoflow/internal/providers"
	"photoflow/internal/storage"
)

// App carries the handler dependencies for the intake API.
type App struct {
	Jobs       domain.JobRepository
	Batches    domain.BatchJobRepository
	Store      storage.ObjectStore
	Factory    *providers.Factory
	Logger     infra.Logger
	Bucket     string
	PresignTTL time.Duration
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
