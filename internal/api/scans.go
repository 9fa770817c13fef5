package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"go.uber.org/zap"
)

// responseSlack covers rendering and persisting a finished scan.
const responseSlack = 30 * time.Second

// scanPayload holds the loosely typed fields of a scan request, read from either
// a form post or a JSON body.
type scanPayload map[string]any

func (s *Server) readScanPayload(w http.ResponseWriter, r *http.Request) (scanPayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err)
		}
		payload := scanPayload{}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				payload[key] = values[0]
			}
		}
		return payload, nil
	}

	payload := scanPayload{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err)
	}
	return payload, nil
}

func (p scanPayload) str(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// intOr parses key as an integer; missing or malformed values yield def.
func (p scanPayload) intOr(key string, def int) int {
	raw := p.str(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// consentGiven accepts the checkbox value "on", a JSON true, or any case of "true".
func consentGiven(v any) bool {
	switch c := v.(type) {
	case bool:
		return c
	case string:
		return c == "on" || strings.EqualFold(c, "true")
	case nil:
		return false
	default:
		return strings.EqualFold(fmt.Sprint(c), "true")
	}
}

// passiveRequest is a validated passive scan request.
type passiveRequest struct {
	URL  string
	Opts checker.CrawlOptions
}

func (s *Server) parsePassive(p scanPayload) (passiveRequest, error) {
	target := checker.NormalizeURL(p.str("url"))
	if target == "" {
		return passiveRequest{}, errors.New("missing url")
	}

	opts := s.cfg.CrawlOptions
	opts.MaxPages = p.intOr("max_pages", opts.MaxPages)
	opts.MaxDepth = p.intOr("max_depth", opts.MaxDepth)
	if s.cfg.MaxPages > 0 && opts.MaxPages > s.cfg.MaxPages {
		opts.MaxPages = s.cfg.MaxPages
	}
	return passiveRequest{URL: target, Opts: opts}, nil
}

// activeRequest is a validated active scan request.
type activeRequest struct {
	URL   string
	Host  string
	Ports string
}

// parseActive checks consent before anything else, so a missing url without
// consent is still refused with ErrConsentRequired.
func parseActive(p scanPayload) (activeRequest, error) {
	if !consentGiven(p["consent"]) {
		return activeRequest{}, sharedErrors.ErrConsentRequired
	}
	target := checker.NormalizeURL(p.str("url"))
	if target == "" {
		return activeRequest{}, errors.New("missing url")
	}
	host, err := checker.HostOf(target)
	if err != nil {
		return activeRequest{}, err
	}
	return activeRequest{URL: target, Host: host, Ports: p.str("ports")}, nil
}

func (s *Server) handlePassiveScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Passive == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("passive scanner not configured"))
		return
	}
	payload, err := s.readScanPayload(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	req, err := s.parsePassive(payload)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	s.extendWriteDeadline(w, r, req.Opts.WorstCase())
	result, id := s.runPassive(r.Context(), req)
	s.writeScanResponse(w, r, result, id)
}

func (s *Server) handleActiveScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Active == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("active scanner not configured"))
		return
	}
	payload, err := s.readScanPayload(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	req, err := parseActive(payload)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sharedErrors.ErrConsentRequired) {
			status = http.StatusForbidden
		}
		s.writeError(w, r, status, err)
		return
	}

	if s.cfg.ActiveTimeout > 0 {
		s.extendWriteDeadline(w, r, s.cfg.ActiveTimeout)
	}
	result, id := s.runActive(r.Context(), req)
	s.writeScanResponse(w, r, result, id)
}

// extendWriteDeadline moves the connection's write deadline past a scan that
// can outlive the server-wide WriteTimeout. A zero budget clears the deadline.
func (s *Server) extendWriteDeadline(w http.ResponseWriter, r *http.Request, budget time.Duration) {
	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget + responseSlack)
	}
	err := http.NewResponseController(w).SetWriteDeadline(deadline)
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.cfg.Logger.Debug("write_deadline_not_set", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// runPassive crawls, records metrics and persists the result when history is enabled.
func (s *Server) runPassive(ctx context.Context, req passiveRequest) (checker.CrawlResult, string) {
	result, outcome := s.scans.RunPassive(ctx, req.URL, req.Opts)
	return result, outcome.ID()
}

func (s *Server) runActive(ctx context.Context, req activeRequest) (nmap.Result, string) {
	result, outcome := s.scans.RunActive(ctx, req.URL, req.Host, req.Ports)
	return result, outcome.ID()
}

// writeScanResponse renders result as a JSON object and adds timestamp and id.
func (s *Server) writeScanResponse(w http.ResponseWriter, r *http.Request, result any, id string) {
	body, err := withFields(result, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if id != "" {
		body["id"] = id
	}
	writeJSON(w, http.StatusOK, body)
}

// withFields flattens v into a JSON object and merges extra into it.
func withFields(v any, extra map[string]any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields, nil
}
