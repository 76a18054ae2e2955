package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

type actionRequest struct {
	UserID   string            `json:"user_id"`
	ActionID string            `json:"action_id"`
	Params   map[string]string `json:"params"`
}

// processSignal runs the pipeline synchronously and returns the composite
// result. Skips and guarded no-ops are 200s; only infrastructure failures
// are 5xx.
func (s *Server) processSignal(c echo.Context) error {
	signal, err := s.store.GetSignal(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "signal not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	result := s.orchestrator.Process(c.Request().Context(), signal)
	status := http.StatusOK
	if !result.Success && !result.Skipped {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, result)
}

// enqueueSignal hands the signal to the background queue.
func (s *Server) enqueueSignal(c echo.Context) error {
	if s.queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "job queue not configured"})
	}

	signal, err := s.store.GetSignal(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "signal not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := s.queue.EnqueueSignal(c.Request().Context(), signal); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"status":    "queued",
		"signal_id": signal.ID,
	})
}

// executeAction runs an explicit user-chosen action on a signal.
func (s *Server) executeAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" || req.ActionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id and action_id are required"})
	}

	ctx := c.Request().Context()
	signal, err := s.store.GetSignal(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "signal not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	user := &models.User{ID: req.UserID}
	result := s.executor.Execute(ctx, signal, user, req.ActionID, req.Params)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, result)
}
