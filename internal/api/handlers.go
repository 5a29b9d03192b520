package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papermill/internal/convert"
	"papermill/internal/job"
	"papermill/internal/logging"
)

// maxRequestBytes bounds the request body. Inline documents ride base64, so
// the cap sits above the raw input limit with encoding overhead to spare.
const maxRequestBytes = 96 << 20

type convertRequest struct {
	InputRef    string `json:"inputRef"`
	InputBase64 string `json:"inputBase64,omitempty"`
	DeadlineMs  int64  `json:"deadlineMs,omitempty"`
	CallbackURL string `json:"callback,omitempty"`
}

type convertResponse struct {
	Success        bool   `json:"success"`
	JobID          string `json:"jobId"`
	ArtifactBase64 string `json:"artifactBase64,omitempty"`
	SizeBytes      int64  `json:"sizeBytes,omitempty"`
	DurationMs     int64  `json:"durationMs"`
}

type acceptedResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// errorResponse is the synchronous failure shape: error is always a plain
// string; kind carries the machine-readable failure taxonomy.
type errorResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error"`
}

type statusResponse struct {
	QueueDepth int    `json:"queueDepth"`
	Busy       bool   `json:"busy"`
	InFlight   string `json:"inFlight,omitempty"`
	Processed  int64  `json:"processed"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(job.KindValidation), "read request body")
		return
	}

	var req convertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(job.KindValidation), "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.InputRef) == "" && req.InputBase64 == "" {
		writeError(w, http.StatusBadRequest, string(job.KindValidation), "inputRef or inputBase64 required")
		return
	}

	var input []byte
	if req.InputBase64 != "" {
		input, err = base64.StdEncoding.DecodeString(req.InputBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(job.KindValidation), "inputBase64 is not valid base64")
			return
		}
		// Inline documents honor the same cap as fetched ones.
		if maxInput := int64(s.cfg.Fetch.MaxInputMiB) << 20; maxInput > 0 && int64(len(input)) > maxInput {
			writeError(w, http.StatusBadRequest, string(job.KindValidation),
				fmt.Sprintf("input exceeds the %d MiB limit", s.cfg.Fetch.MaxInputMiB))
			return
		}
	}

	submission := convert.Request{
		InputRef:    req.InputRef,
		Input:       input,
		Deadline:    time.Duration(req.DeadlineMs) * time.Millisecond,
		CallbackURL: req.CallbackURL,
	}

	if strings.TrimSpace(req.CallbackURL) != "" {
		j := s.svc.ConvertAsync(submission)
		s.logger.Info("async job accepted",
			logging.String(logging.FieldJobID, j.ID),
			logging.String(logging.FieldEventType, "job_accepted"),
		)
		writeJSON(w, http.StatusAccepted, acceptedResponse{JobID: j.ID, Status: "accepted"})
		return
	}

	j, outcome := s.svc.Convert(r.Context(), submission)
	if !outcome.Success {
		writeJSON(w, failureStatus(outcome.Kind), errorResponse{
			Kind:  string(outcome.Kind),
			Error: outcome.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Success:        true,
		JobID:          j.ID,
		ArtifactBase64: base64.StdEncoding.EncodeToString(outcome.Artifact),
		SizeBytes:      outcome.SizeBytes,
		DurationMs:     outcome.Duration.Milliseconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.svc.QueueStatus()
	writeJSON(w, http.StatusOK, statusResponse{
		QueueDepth: status.Depth,
		Busy:       status.Busy,
		InFlight:   status.InFlight,
		Processed:  status.Processed,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// failureStatus maps the failure taxonomy onto HTTP status codes. Caller
// mistakes are 4xx, upstream document problems 502, converter overruns 504,
// everything else a plain 500.
func failureStatus(kind job.FailureKind) int {
	switch kind {
	case job.KindValidation:
		return http.StatusBadRequest
	case job.KindDownload:
		return http.StatusBadGateway
	case job.KindTimeout:
		return http.StatusGatewayTimeout
	case job.KindProcessExit, job.KindOutputMissing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding failures here are connection-level; nothing sensible to do.
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Error: message})
}
