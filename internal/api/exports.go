package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
	"github.com/khanhnv2901/webscan/internal/report"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

type exportFormat struct {
	ext         string
	contentType string
	render      func(report.Data) ([]byte, error)
}

var (
	formatCSV      = exportFormat{ext: "csv", contentType: "text/csv", render: report.CSV}
	formatPDF      = exportFormat{ext: "pdf", contentType: "application/pdf", render: report.PDF}
	formatMarkdown = exportFormat{ext: "md", contentType: "text/markdown; charset=utf-8", render: report.Markdown}
)

// exportRequest carries results inline, or names a stored scan with scan_id.
type exportRequest struct {
	Target  string            `json:"target"`
	Passive []checker.Finding `json:"passive"`
	Active  *nmap.Result      `json:"active"`
	ScanID  string            `json:"scan_id"`
}

func (s *Server) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w, r)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err))
			return
		}

		data, status, err := s.exportData(r, req)
		if err != nil {
			s.writeError(w, r, status, err)
			return
		}

		body, err := format.render(data)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}

		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(data.Target, format.ext)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) exportData(r *http.Request, req exportRequest) (report.Data, int, error) {
	if req.ScanID == "" {
		target := req.Target
		if target == "" {
			target = report.DefaultTarget
		}
		return report.Data{Target: target, Passive: req.Passive, Active: req.Active}, http.StatusOK, nil
	}

	if s.cfg.Store == nil {
		return report.Data{}, http.StatusNotFound, errors.New("scan history not available")
	}
	stored, err := s.cfg.Store.FindByID(r.Context(), req.ScanID)
	switch {
	case errors.Is(err, sharedErrors.ErrInvalidScanID):
		return report.Data{}, http.StatusBadRequest, err
	case errors.Is(err, sharedErrors.ErrScanNotFound):
		return report.Data{}, http.StatusNotFound, err
	case err != nil:
		return report.Data{}, http.StatusInternalServerError, err
	}

	return report.Data{
		Target:      stored.Target(),
		Passive:     stored.Findings(),
		Active:      stored.Active(),
		GeneratedAt: stored.CreatedAt(),
	}, http.StatusOK, nil
}

type chatRequest struct {
	Q       string `json:"q"`
	Finding string `json:"finding,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err))
		return
	}

	if id := strings.TrimSpace(req.Finding); id != "" {
		if answer, ok := s.cfg.Advice.ForFinding(id); ok {
			writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": s.cfg.Advice.Lookup(req.Q)})
}
