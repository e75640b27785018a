// Package api exposes cache administration over HTTP: status
// inspection, manual sync triggers, and direct snapshot reads.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/orbitshield/cachesync/internal/domain"
	"github.com/orbitshield/cachesync/internal/syncer"
)

// Service implements the cache administration handlers.
type Service struct {
	orch     *syncer.Orchestrator
	resolver *syncer.Resolver
	store    domain.SnapshotStore
	meta     domain.MetadataStore
	logger   *slog.Logger
}

// NewService creates the admin API service.
func NewService(orch *syncer.Orchestrator, resolver *syncer.Resolver, store domain.SnapshotStore, meta domain.MetadataStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orch: orch, resolver: resolver, store: store, meta: meta, logger: logger}
}

// envelope is the uniform JSON response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Service) respond(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Service) respondError(w http.ResponseWriter, code int, msg string) {
	s.respond(w, code, envelope{Success: false, Error: msg})
}

// syncOutcome is the per-table entry in sync responses.
type syncOutcome struct {
	RecordCount int    `json:"record_count"`
	Error       string `json:"error,omitempty"`
}

// HandleStatus reports global and per-table cache state.
func (s *Service) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.meta.Status()
	if err != nil {
		s.logger.Error("failed to read cache status", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read cache status")
		return
	}
	s.respond(w, http.StatusOK, envelope{Success: true, Data: status})
}

// HandleSyncAll triggers a full sync. Per-table failures are reported
// in the body; the endpoint itself always answers with the aggregate.
func (s *Service) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	summary := s.orch.SyncAll(r.Context())

	outcomes := make(map[domain.Table]syncOutcome, len(summary.Results))
	for table, res := range summary.Results {
		out := syncOutcome{RecordCount: res.Count}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		outcomes[table] = out
	}

	s.respond(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"tables":        outcomes,
			"total_records": summary.Total,
		},
	})
}

// HandleSyncTable triggers a sync for one table.
func (s *Service) HandleSyncTable(w http.ResponseWriter, r *http.Request, name string) {
	table, err := domain.ParseTable(name)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.orch.SyncTable(r.Context(), table)
	if res.Err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(res.Err, domain.ErrRemoteUnavailable):
			code = http.StatusServiceUnavailable
		case errors.Is(res.Err, domain.ErrRemoteRejected):
			code = http.StatusBadGateway
		}
		s.respondError(w, code, res.Err.Error())
		return
	}

	s.respond(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"table":        table,
			"record_count": res.Count,
		},
	})
}

// HandleLoadTable returns the cached snapshot directly. A missing
// snapshot is a 404; an empty-but-present table is a 200 with zero
// records.
func (s *Service) HandleLoadTable(w http.ResponseWriter, r *http.Request, name string) {
	table, err := domain.ParseTable(name)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.store.Load(table)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "no cached snapshot for "+name)
		return
	}

	s.respond(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"table":        table,
			"record_count": len(snap.Records),
			"fetched_at":   snap.FetchedAt,
			"records":      snap.Records,
		},
	})
}

// HandleReadTable serves a table read through the fallback path:
// live remote data when reachable, the cached snapshot otherwise.
func (s *Service) HandleReadTable(w http.ResponseWriter, r *http.Request, name string) {
	table, err := domain.ParseTable(name)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.resolver.Resolve(r.Context(), table)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoData):
			s.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrRemoteRejected):
			s.respondError(w, http.StatusBadGateway, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respond(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"table":        res.Table,
			"source":       res.Source,
			"record_count": len(res.Records),
			"fetched_at":   res.FetchedAt,
			"records":      res.Records,
		},
	})
}

// HandleHealth is a liveness probe that also reports the last observed
// remote connectivity.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"status":          "ok",
			"supabase_status": s.meta.Connectivity(),
		},
	})
}
