package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/analyzer"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
)

// ScanRequest is the body of POST /api/v1/scans.
type ScanRequest struct {
	Target string        `json:"target"`
	Mode   analyzer.Mode `json:"mode"`
}

// EmailRequest is the body of POST /api/v1/phishing.
type EmailRequest struct {
	Content string `json:"content"`
}

// ScanHandler handles website scan and email analysis endpoints.
type ScanHandler struct {
	analyzers analyzer.Set
	email     analyzer.EmailAnalyzer
	logger    *logger.Logger
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(analyzers analyzer.Set, email analyzer.EmailAnalyzer, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		analyzers: analyzers,
		email:     email,
		logger:    log,
	}
}

// Scan handles POST /api/v1/scans
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.analyzers.For(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	report, err := a.Analyze(r.Context(), req.Target)
	mode := string(a.Mode())
	switch {
	case errors.Is(err, analyzer.ErrInvalidTarget):
		metrics.ScansTotal.WithLabelValues(mode, "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		metrics.ScansTotal.WithLabelValues(mode, "error").Inc()
		if r.Context().Err() != nil {
			return
		}
		h.logger.Error("scan failed", zap.String("mode", mode), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	metrics.ScansTotal.WithLabelValues(mode, "ok").Inc()
	h.logger.Info("scan completed",
		zap.String("target", report.Target),
		zap.String("mode", mode),
		zap.Int("score", report.Score),
		zap.Duration("duration", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, report)
}

// Phishing handles POST /api/v1/phishing
func (h *ScanHandler) Phishing(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.email.AnalyzeEmail(r.Context(), req.Content)
	switch {
	case errors.Is(err, analyzer.ErrEmptyEmail):
		metrics.ScansTotal.WithLabelValues("phishing", "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		metrics.ScansTotal.WithLabelValues("phishing", "error").Inc()
		if r.Context().Err() != nil {
			return
		}
		h.logger.Error("email analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	metrics.ScansTotal.WithLabelValues("phishing", "ok").Inc()
	writeJSON(w, http.StatusOK, report)
}
