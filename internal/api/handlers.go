package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"straddle-trading-bot/internal/auth"
	"straddle-trading-bot/internal/database"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.authService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	token, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   s.authService.TokenTTL(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	breakerState, breakerReason := s.engine.BreakerStatus()
	c.JSON(http.StatusOK, gin.H{
		"ws_clients":     s.hub.ClientCount(),
		"portfolio":      s.engine.Portfolio(),
		"breaker_state":  breakerState,
		"breaker_reason": breakerReason,
		"time":           time.Now().UTC(),
	})
}

// handleRunCycle triggers one decision cycle for a symbol and broadcasts the
// result. A SKIPPED result means a scheduled cycle is already running.
func (s *Server) handleRunCycle(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	result := s.engine.RunCycle(c.Request.Context(), symbol)
	s.hub.BroadcastCycleResult(result)

	status := http.StatusOK
	if result.Failed() {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

func (s *Server) handleMetrics(c *gin.Context) {
	symbol := c.Param("symbol")
	metrics, err := s.engine.Metrics(symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (s *Server) handlePortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Portfolio())
}

func (s *Server) handlePositions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	positions, err := s.repo.ListPositions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handlePosition(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position id"})
		return
	}

	position, err := s.repo.GetPositionByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if position == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "position not found"})
		return
	}
	c.JSON(http.StatusOK, position)
}

func (s *Server) handlePositionTrades(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position id"})
		return
	}

	trades, err := s.repo.GetTradesByPositionID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handlePositionSwaps(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position id"})
		return
	}

	swaps, err := s.repo.GetSwapsByPositionID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"swaps": swaps})
}

// handleActiveTrades lists the symbol's live bracket legs: pending entries and
// open exposure.
func (s *Server) handleActiveTrades(c *gin.Context) {
	symbol := c.Param("symbol")

	trades, err := s.repo.GetTradesBySymbolAndStatuses(c.Request.Context(), symbol,
		[]string{database.TradeStatusPending, database.TradeStatusOpen})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "trades": trades})
}

// handleProfitReport replays the period through the FIFO ledger. Defaults to
// the last 30 days.
func (s *Server) handleProfitReport(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
			return
		}
		start = parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
			return
		}
		end = parsed
	}

	report, err := s.engine.ProfitReport(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start":  start,
		"end":    end,
		"report": report,
	})
}
