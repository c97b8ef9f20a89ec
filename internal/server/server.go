package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"voisia/internal/catalog"
	"voisia/internal/command"
	"voisia/internal/config"
	"voisia/internal/logger"
	"voisia/internal/provider"
	"voisia/internal/provider/anthropic"
	"voisia/internal/provider/openai"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	bodyLimit           = "1M"
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// defaultOrigins are the webview origins a packaged desktop shell loads from.
var defaultOrigins = []string{"tauri://localhost", "http://tauri.localhost", "http://localhost"}

// Commands is the operation set the UI invokes; *command.Facade implements it.
type Commands interface {
	GenerateAnthropicResponse(ctx context.Context, args command.AnthropicArgs) (*anthropic.Response, error)
	GenerateOpenAIResponse(ctx context.Context, args command.OpenAIArgs) (*openai.Response, error)
	GetAvailableModels(ctx context.Context) ([]catalog.ModelInfo, error)
}

type Server struct {
	cfg      config.Config
	commands Commands
	app      *echo.Echo
	log      *slog.Logger
	address  string
}

// New constructs the command server wired with routing and middleware.
func New(cfg config.Config, commands Commands, log *slog.Logger) (*Server, error) {
	if commands == nil {
		return nil, errors.New("commands must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = commandErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.InfoContext(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))

	srv := &Server{
		cfg:      cfg,
		commands: commands,
		app:      e,
		log:      log,
		address:  cfg.Server.Address(),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed echo instance, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.address)
	s.log.Info("starting server", "addr", s.address)

	// No WriteTimeout: a generate call may legitimately outlast any fixed
	// write deadline; the facade bounds it instead.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
		ErrorLog:    logger.StdLogger(s.log, config.HTTPClientTarget),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.log.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)

	cmds := s.app.Group("/commands")
	cmds.POST("/"+command.GenerateAnthropic, s.handleGenerateAnthropic)
	cmds.POST("/"+command.GenerateOpenAI, s.handleGenerateOpenAI)
	cmds.POST("/"+command.AvailableModels, s.handleAvailableModels)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateAnthropic(c echo.Context) error {
	var args command.AnthropicArgs
	if err := decodeArgs(c, &args); err != nil {
		return err
	}

	resp, err := s.commands.GenerateAnthropicResponse(c.Request().Context(), args)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGenerateOpenAI(c echo.Context) error {
	var args command.OpenAIArgs
	if err := decodeArgs(c, &args); err != nil {
		return err
	}

	resp, err := s.commands.GenerateOpenAIResponse(c.Request().Context(), args)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAvailableModels(c echo.Context) error {
	list, err := s.commands.GetAvailableModels(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// decodeArgs reads a single JSON object whose keys may be camelCase or
// snake_case and decodes it into target.
func decodeArgs[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	var raw map[string]json.RawMessage
	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return badArgs("request body is required")
		}
		return badArgs(fmt.Sprintf("invalid JSON payload: %v", err))
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return badArgs("request body must contain a single JSON object")
	}

	normalised, err := json.Marshal(camelKeys(raw))
	if err != nil {
		return badArgs(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(normalised, target); err != nil {
		return badArgs(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// camelKeys renames snake_case keys to camelCase. An explicit camelCase key
// wins over its snake_case spelling.
func camelKeys(raw map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if !strings.Contains(k, "_") {
			out[k] = v
		}
	}
	for k, v := range raw {
		if !strings.Contains(k, "_") {
			continue
		}
		camel := toCamel(k)
		if _, ok := out[camel]; !ok {
			out[camel] = v
		}
	}
	return out
}

func toCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

func badArgs(detail string) requestError {
	return requestError{
		Status:  http.StatusBadRequest,
		Message: provider.StageValidation + ": " + detail,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func commandErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, errorBody{Error: reqErr.Message})
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, errorBody{Error: fmt.Sprint(he.Message)})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// toHTTPError maps a command failure onto a status while keeping the
// "<stage>: <detail>" text intact for the UI.
func toHTTPError(err error) error {
	status := http.StatusInternalServerError
	switch provider.StageOf(err) {
	case provider.StageValidation:
		status = http.StatusBadRequest
	case provider.StageCredential:
		status = http.StatusFailedDependency
	case provider.StageUpstream, provider.StageParse:
		status = http.StatusBadGateway
	case provider.StageHTTP:
		status = http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	}
	return requestError{Status: status, Message: command.Describe(err)}
}

func printStartupBanner(address string) {
	fmt.Println()
	fmt.Println("voisia backend ready")
	fmt.Printf("Listening on http://%s\n", address)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /commands/" + command.GenerateAnthropic)
	fmt.Println("  POST /commands/" + command.GenerateOpenAI)
	fmt.Println("  POST /commands/" + command.AvailableModels)
	fmt.Printf("Example:\n  curl http://%s/commands/%s -H 'Content-Type: application/json' -d '{\"model\":\"claude-x\",\"input\":\"hello\",\"maxTokens\":256,\"temperature\":0.7,\"topP\":1,\"convoHistory\":[]}'\n\n", address, command.GenerateAnthropic)
}
