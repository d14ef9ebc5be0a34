package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DisplaySession mirrors the session document the terminal pushes out.
// Only the fields a display renders are decoded here.
type DisplaySession struct {
	TerminalID   string          `json:"terminal_id"`
	View         string          `json:"view"`
	Cart         []CartLine      `json:"cart"`
	Member       *MemberSnapshot `json:"member,omitempty"`
	Total        int64           `json:"total"`
	StoreName    string          `json:"store_name,omitempty"`
	Memo         string          `json:"memo,omitempty"`
	MemoColor    string          `json:"memo_color,omitempty"`
	LastResult   *PaymentResult  `json:"last_result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	LastUpdated  int64           `json:"last_updated"`
}

type CartLine struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Discount  int64  `json:"discount"`
}

type MemberSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int64  `json:"points"`
}

type PaymentResult struct {
	Message          string `json:"message"`
	ResultingBalance int64  `json:"resulting_balance"`
}

type submitActionRequest struct {
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload"`
	Timestamp int64             `json:"timestamp"`
}

// DisplayClient talks to the terminal's display endpoints. The display
// addresses its terminal by pairing code or raw terminal id; the terminal
// resolves either to the same session.
type DisplayClient struct {
	baseURL    string
	displayKey string
	http       *http.Client

	mu   sync.RWMutex
	last DisplaySession
}

func NewDisplayClient(baseURL, displayKey string, timeout time.Duration) *DisplayClient {
	return &DisplayClient{
		baseURL:    baseURL,
		displayKey: displayKey,
		http:       &http.Client{Timeout: timeout},
	}
}

func (c *DisplayClient) FetchSession(ctx context.Context) (DisplaySession, error) {
	url := fmt.Sprintf("%s/api/v1/displays/%s/session", c.baseURL, c.displayKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return DisplaySession{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return DisplaySession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return DisplaySession{}, fmt.Errorf("terminal returned %d: %s", resp.StatusCode, string(body))
	}

	var session DisplaySession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return DisplaySession{}, err
	}
	return session, nil
}

// SubmitPhone sends a PHONE_SUBMIT action stamped with the display's clock.
// The terminal drops it silently if it arrives outside the freshness window.
func (c *DisplayClient) SubmitPhone(ctx context.Context, digits string) (string, error) {
	action := submitActionRequest{
		Type:      "PHONE_SUBMIT",
		Payload:   map[string]string{"phone": digits},
		Timestamp: time.Now().UnixMilli(),
	}
	body, err := json.Marshal(action)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v1/displays/%s/actions", c.baseURL, c.displayKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("terminal returned %d: %s", resp.StatusCode, string(respBody))
	}

	var accepted struct {
		ActionID string `json:"action_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", err
	}
	return accepted.ActionID, nil
}

func (c *DisplayClient) lastSession() DisplaySession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// watch polls the terminal and logs every view transition the way a real
// display would repaint its screen.
func (c *DisplayClient) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		session, err := c.FetchSession(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to fetch session")
			continue
		}

		c.mu.Lock()
		prev := c.last
		c.last = session
		c.mu.Unlock()

		if session.LastUpdated == prev.LastUpdated {
			continue
		}
		render(prev, session)
	}
}

func render(prev, session DisplaySession) {
	event := log.Info().
		Str("view", session.View).
		Int64("total", session.Total).
		Int("cart_lines", len(session.Cart))

	if session.Member != nil {
		event = event.Str("member", session.Member.Name).Int64("points", session.Member.Points)
	}
	if session.Memo != "" {
		event = event.Str("memo", session.Memo).Str("memo_color", session.MemoColor)
	}
	if session.ErrorMessage != "" {
		event = event.Str("error", session.ErrorMessage)
	}
	if session.LastResult != nil {
		event = event.Str("result", session.LastResult.Message).
			Int64("balance", session.LastResult.ResultingBalance)
	}

	if session.View != prev.View {
		event.Str("previous_view", prev.View).Msg("View changed")
		return
	}
	event.Msg("Session updated")
}

// Handler exposes the simulated customer touch surface.
type Handler struct {
	client *DisplayClient
}

func NewHandler(client *DisplayClient) *Handler {
	return &Handler{client: client}
}

// GetSession returns the last rendered session without hitting the terminal.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.lastSession())
}

// SubmitPhone is the customer typing their phone suffix on the pad.
func (h *Handler) SubmitPhone(c *gin.Context) {
	var req struct {
		Digits string `json:"digits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	actionID, err := h.client.SubmitPhone(c.Request.Context(), req.Digits)
	if err != nil {
		log.Warn().Err(err).Str("digits", req.Digits).Msg("Phone submit rejected")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("action_id", actionID).Msg("Phone submit accepted")
	c.JSON(http.StatusAccepted, gin.H{"action_id": actionID})
}

// HealthCheck reports whether the terminal is reachable.
func (h *Handler) HealthCheck(c *gin.Context) {
	if _, err := h.client.FetchSession(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"display_key": h.client.displayKey,
		"timestamp":   time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/session", handler.GetSession)
		v1.POST("/phone", handler.SubmitPhone)
		v1.GET("/health", handler.HealthCheck)
	}

	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	terminalAPI := getEnv("TERMINAL_API", "http://localhost:8080")
	displayKey := getEnv("DISPLAY_KEY", uuid.New().String()[:8])
	pollInterval := getEnvDuration("POLL_INTERVAL", 500*time.Millisecond)

	log.Info().
		Str("port", port).
		Str("terminal_api", terminalAPI).
		Str("display_key", displayKey).
		Dur("poll_interval", pollInterval).
		Msg("Starting Customer Display")

	client := NewDisplayClient(terminalAPI, displayKey, 5*time.Second)
	handler := NewHandler(client)
	router := SetupRouter(handler)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go client.watch(watchCtx, pollInterval)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down display...")
	stopWatch()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Display exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
