package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/nmap"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"go.uber.org/zap"
)

const defaultListLimit = 25

// scanSummary is one row of the history listing.
type scanSummary struct {
	ID        string    `json:"id"`
	Kind      scan.Kind `json:"kind"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	Summary   string    `json:"summary"`
}

// scanDetail is a stored scan with its full payload.
type scanDetail struct {
	scanSummary
	Host    string               `json:"host,omitempty"`
	Ports   string               `json:"ports,omitempty"`
	Passive *checker.CrawlResult `json:"passive,omitempty"`
	Active  *nmap.Result         `json:"active,omitempty"`
}

func summarize(s *scan.Scan) scanSummary {
	return scanSummary{
		ID:        s.ID(),
		Kind:      s.Kind(),
		Target:    s.Target(),
		CreatedAt: s.CreatedAt(),
		Summary:   s.Summary(),
	}
}

func listLimit(r *http.Request) int {
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultListLimit
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Store == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("scan history not available"))
		return
	}

	scans, err := s.cfg.Store.FindAll(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	kind := scan.Kind(r.URL.Query().Get("kind"))
	limit := listLimit(r)
	items := make([]scanSummary, 0, min(limit, len(scans)))
	for _, sc := range scans {
		if kind != "" && sc.Kind() != kind {
			continue
		}
		items = append(items, summarize(sc))
		if len(items) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleScanByID(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("scan history not available"))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/scans/")
	if id == "" {
		s.writeError(w, r, http.StatusNotFound, errors.New("scan ID required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		sc, err := s.cfg.Store.FindByID(r.Context(), id)
		if err != nil {
			s.writeError(w, r, storeErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, scanDetail{
			scanSummary: summarize(sc),
			Host:        sc.Host(),
			Ports:       sc.Ports(),
			Passive:     sc.Passive(),
			Active:      sc.Active(),
		})
	case http.MethodDelete:
		if err := s.cfg.Store.Delete(r.Context(), id); err != nil {
			s.writeError(w, r, storeErrorStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.methodNotAllowed(w, r)
	}
}

func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrInvalidScanID):
		return http.StatusBadRequest
	case errors.Is(err, sharedErrors.ErrScanNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.cfg.Jobs.ListJobs(listLimit(r)))
	case http.MethodPost:
		job, status, err := s.startJob(w, r)
		if err != nil {
			s.writeError(w, r, status, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	default:
		s.methodNotAllowed(w, r)
	}
}

// startJob validates the request synchronously, so bad input and missing consent
// are rejected before a job exists.
func (s *Server) startJob(w http.ResponseWriter, r *http.Request) (*Job, int, error) {
	payload, err := s.readScanPayload(w, r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	switch scan.Kind(payload.str("type")) {
	case scan.KindPassive:
		if s.cfg.Passive == nil {
			return nil, http.StatusServiceUnavailable, errors.New("passive scanner not configured")
		}
		req, err := s.parsePassive(payload)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return s.cfg.Jobs.Start(string(scan.KindPassive), req.URL, func(ctx context.Context) (string, error) {
			result, id := s.runPassive(ctx, req)
			if len(result.Pages) == 0 {
				return id, errors.New("no page could be fetched")
			}
			return id, nil
		}), http.StatusAccepted, nil

	case scan.KindActive:
		if s.cfg.Active == nil {
			return nil, http.StatusServiceUnavailable, errors.New("active scanner not configured")
		}
		req, err := parseActive(payload)
		if err != nil {
			if errors.Is(err, sharedErrors.ErrConsentRequired) {
				return nil, http.StatusForbidden, err
			}
			return nil, http.StatusBadRequest, err
		}
		return s.cfg.Jobs.Start(string(scan.KindActive), req.URL, func(ctx context.Context) (string, error) {
			result, id := s.runActive(ctx, req)
			if result.Failed() {
				return id, result.Err
			}
			return id, nil
		}), http.StatusAccepted, nil
	}

	return nil, http.StatusBadRequest, fmt.Errorf("%w: type must be passive or active", sharedErrors.ErrInvalidInput)
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	job := s.cfg.Jobs.GetJob(id)
	if id == "" || job == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	// the stream lives as long as the client stays connected
	s.extendWriteDeadline(w, r, 0)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()
	ctx := r.Context()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				s.cfg.Logger.Error("failed to marshal job", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: job\ndata: ")) ||
				!s.writeStreamChunk(w, payload) ||
				!s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
