// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"marketcap/internal/kv"
	"marketcap/internal/orchestrator"
	"marketcap/internal/source"
	"marketcap/internal/store"
	"marketcap/pkg/api"
)

// Runner triggers ingestion runs. Implemented by the orchestrator.
type Runner interface {
	Run(ctx context.Context, params orchestrator.Params) (*orchestrator.Summary, error)
}

// StoreFactory combines the store interfaces the controller needs.
type StoreFactory interface {
	Ping(ctx context.Context) error
	store.CompanyStore
	store.ProvenanceStore
	store.RunStore
}

// Pinger is a reachability probe for an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store    StoreFactory
	runner   Runner
	kv       Pinger
	registry *source.Registry
	state    *kv.RunState

	defaultMaxItems   int
	defaultMaxRuntime time.Duration
}

// New creates a new Handlers instance.
func New(s StoreFactory, runner Runner, kvPing Pinger, registry *source.Registry, state *kv.RunState, defaultMaxItems int, defaultMaxRuntime time.Duration) *Handlers {
	return &Handlers{
		store:             s,
		runner:            runner,
		kv:                kvPing,
		registry:          registry,
		state:             state,
		defaultMaxItems:   defaultMaxItems,
		defaultMaxRuntime: defaultMaxRuntime,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
