package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/showstart-scout/internal/config"
	"github.com/jonathan/showstart-scout/internal/search"
	"github.com/jonathan/showstart-scout/internal/types"
)

// maxBodyBytes bounds the request body of POST /search/rapper.
const maxBodyBytes = 64 << 10

// handleSearch runs (sync) or accepts (async) a performer search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		s.writeError(w, search.ErrServiceUnavailable)
		return
	}
	if err := s.service.Ready(); err != nil {
		s.writeError(w, err)
		return
	}

	req, err := s.decodeSearchRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var timeout time.Duration
	if req.TimeoutSeconds != nil {
		timeout = time.Duration(*req.TimeoutSeconds) * time.Second
	}

	if s.mode == config.ModeAsync {
		taskID, err := s.service.Submit(req.RapperName, timeout)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, http.StatusAccepted, types.SubmissionAck{
			Success:     true,
			TaskID:      taskID,
			RapperName:  req.RapperName,
			Status:      "accepted",
			SubmittedAt: s.now(),
		})
		return
	}

	outcome := s.service.Search(r.Context(), req.RapperName, timeout)
	if !outcome.Success && outcome.ErrorMessage != nil {
		log.Printf("Search for %q failed: %s", req.RapperName, *outcome.ErrorMessage)
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}

func (s *Server) decodeSearchRequest(r *http.Request) (*types.SearchRequest, error) {
	var req types.SearchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ErrValidation{Field: verrs[0].Field(), Message: describeRule(verrs[0])}
		}
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}

	if req.TimeoutSeconds != nil {
		if err := s.search.CheckTimeout(*req.TimeoutSeconds); err != nil {
			return nil, &ErrValidation{Field: "timeout_seconds", Message: err.Error()}
		}
	}
	return &req, nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
		"service":   ServiceName,
	})
}

// handleInfo describes the service
func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"name":    "showstart-scout",
		"version": Version,
		"status":  "running",
		"mode":    s.mode,
		"endpoints": map[string]string{
			"search": "POST /search/rapper",
			"health": "GET /health",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
}
