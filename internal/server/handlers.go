package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"botfleet/internal/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:    "ok",
		Namespace: s.opts.Namespace,
		Version:   s.opts.Version,
	})
}

func (s *Server) handleList(c *gin.Context) {
	tenant := tenantOf(c)
	if isAdmin(c) {
		tenant = c.Query("tenant")
	}

	bots, err := s.bots.List(c.Request.Context(), tenant)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bots)
}

func (s *Server) handleDeploy(c *gin.Context) {
	var cfg api.BotConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		s.writeError(c, api.NewValidationError("body", err.Error()))
		return
	}
	// Tenants always deploy for themselves.
	if !isAdmin(c) {
		cfg.UserID = tenantOf(c)
	}

	bot, err := s.bots.Deploy(c.Request.Context(), cfg)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bot)
}

func (s *Server) handleGet(c *gin.Context) {
	bot, err := s.bots.Get(c.Request.Context(), c.Param("botID"), tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var changes api.BotChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		s.writeError(c, api.NewValidationError("body", err.Error()))
		return
	}

	bot, err := s.bots.Update(c.Request.Context(), c.Param("botID"), changes, tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.bots.Delete(c.Request.Context(), c.Param("botID"), tenantOf(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStart(c *gin.Context) {
	bot, err := s.bots.Start(c.Request.Context(), c.Param("botID"), tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) handleStop(c *gin.Context) {
	bot, err := s.bots.Stop(c.Request.Context(), c.Param("botID"), tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) handleRestart(c *gin.Context) {
	bot, err := s.bots.Restart(c.Request.Context(), c.Param("botID"), tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) handleScale(c *gin.Context) {
	var req api.ScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, api.NewValidationError("replicas", err.Error()))
		return
	}

	bot, err := s.bots.Scale(c.Request.Context(), c.Param("botID"), *req.Replicas, tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) handleExec(c *gin.Context) {
	var req api.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, api.NewValidationError("command", err.Error()))
		return
	}

	result, err := s.bots.Exec(c.Request.Context(), c.Param("botID"), req.Command, tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStatus(c *gin.Context) {
	detail, err := s.bots.Status(c.Request.Context(), c.Param("botID"), tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleLogs(c *gin.Context) {
	var tail *int64
	if raw := c.Query("tail"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(c, api.NewValidationError("tail", "must be an integer"))
			return
		}
		tail = &n
	}

	logs, err := s.bots.Logs(c.Request.Context(), c.Param("botID"), tail, tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) handleMetrics(c *gin.Context) {
	snapshot, err := s.bots.Metrics(c.Request.Context(), c.Param("botID"), tenantOf(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
