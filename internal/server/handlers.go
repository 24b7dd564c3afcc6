package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/visitlog/internal/history"
	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/signals"
)

func jsonError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) postSignal(c *gin.Context) {
	var sig signals.Signal
	if err := c.ShouldBindJSON(&sig); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rejectedTotal.WithLabelValues("too_large").Inc()
			jsonError(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		rejectedTotal.WithLabelValues("bad_json").Inc()
		jsonError(c, http.StatusBadRequest, "invalid signal: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.Signals.Handle(ctx, sig); err != nil {
		if errors.Is(err, signals.ErrClosed) {
			jsonError(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		rejectedTotal.WithLabelValues("invalid").Inc()
		logging.FromContext(ctx).Debug().Err(err).Msg("signal rejected")
		jsonError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (s *Server) getHistory(c *gin.Context) {
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return
	}
	size, ok := intQuery(c, "size", s.deps.PageSize)
	if !ok {
		return
	}

	result, err := s.deps.History.Query(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		if errors.Is(err, history.ErrInvalidPageSize) {
			jsonError(c, http.StatusBadRequest, err.Error())
			return
		}
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getChannel(c *gin.Context) {
	channel := c.Param("channel")
	visits, err := s.deps.History.Detail(c.Request.Context(), channel)
	if err != nil {
		if errors.Is(err, history.ErrChannelNotFound) {
			jsonError(c, http.StatusNotFound, err.Error())
			return
		}
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"channel": history.NormalizeChannel(channel),
		"visits":  visits,
	})
}

func (s *Server) getStatus(c *gin.Context) {
	stats, err := s.deps.History.Stats(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version": s.deps.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"history": stats,
	})
}

func (s *Server) serverError(c *gin.Context, err error) {
	logging.FromContext(c.Request.Context()).Error().Err(err).Msg("request failed")
	jsonError(c, http.StatusInternalServerError, "internal error")
}

// intQuery reads an integer query parameter, writing a 400 when it is
// present but malformed.
func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		jsonError(c, http.StatusBadRequest, key+" must be an integer")
		return 0, false
	}
	return v, true
}
