package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/spraylog/internal/export"
	"github.com/JonMunkholm/spraylog/internal/logging"
	"github.com/JonMunkholm/spraylog/internal/record"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRecords returns every record, newest first.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []record.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleCreateRecord stores the candidate in the body and returns the stored
// record with its identifier.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)

	var c record.Candidate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, err)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	c = c.Normalize()
	if err := c.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.records.Create(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "id", created.ID).Info("record created",
		"field", created.Field,
		"product", created.Product,
	)
	writeJSON(w, http.StatusCreated, created)
}

// handleDeleteRecord removes one record.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.records.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "id", id).Info("record deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllRecords removes every record.
func (s *Server) handleDeleteAllRecords(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteAll(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("all records deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleExportRecords downloads every record as CSV. An empty list is refused.
func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Encode before writing headers so a refusal can still set the status.
	var buf bytes.Buffer
	if err := export.Write(&buf, records); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}
