package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"ai_post_scheduler/internal/infra/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// Version of the tool protocol reported by list_tools.
const Version = "1.0.0"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeUnknownTool    = -32601
	CodeInvalidParams  = -32602
	CodeToolFailure    = -32000
	CodeUnauthorized   = -32001
)

// Error is a JSON-RPC error object. Tools return it to choose the code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func invalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

// Request accepts both {"method": ...} and {"tool": ...} bodies.
type Request struct {
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Tool    string                 `json:"tool"`
	Params  map[string]interface{} `json:"params"`
	ID      interface{}            `json:"id"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Server exposes the scheduler's management tools over HTTP.
type Server struct {
	echo  *echo.Echo
	cfg   config.MCPConfig
	deps  Deps
	tools map[string]*Tool
	log   *logrus.Entry
}

func NewServer(cfg config.MCPConfig, deps Deps, log *logrus.Entry) *Server {
	s := &Server{
		echo: echo.New(),
		cfg:  cfg,
		deps: deps,
		log:  log,
	}
	s.tools = s.registerTools()

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Debug("HTTP request")
			return nil
		},
	}))

	e.GET("/healthz", s.HealthHandle)
	e.POST("/mcp", s.RPCHandle, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(echo.Context) bool { return cfg.Token == "" },
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Token)) == 1, nil
		},
		ErrorHandler: func(_ error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, Response{
				JSONRPC: "2.0",
				Error:   &Error{Code: CodeUnauthorized, Message: "Unauthorized: a valid bearer token is required"},
			})
		},
	}))
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	if s.cfg.Token == "" {
		s.log.Warn("MCP server has no token configured, requests are not authenticated")
	}
	s.log.WithField("listen", s.cfg.Listen).Info("Starting MCP server")
	if err := s.echo.Start(s.cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping MCP server...")
	return s.echo.Shutdown(ctx)
}

// For route '/healthz'
func (s *Server) HealthHandle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// For route '/mcp'
func (s *Server) RPCHandle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return s.sendError(c, nil, &Error{Code: CodeParseError, Message: "Parse error: unreadable body"})
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return s.sendError(c, nil, &Error{Code: CodeParseError, Message: "Parse error: Invalid JSON"})
	}

	name := strings.TrimSpace(req.Method)
	if name == "" {
		name = strings.TrimSpace(req.Tool)
	}
	if name == "" {
		return s.sendError(c, req.ID, &Error{Code: CodeInvalidRequest, Message: "Invalid Request: missing method"})
	}

	result, err := s.Execute(c.Request().Context(), name, req.Params)
	if err != nil {
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			rpcErr = &Error{Code: CodeToolFailure, Message: err.Error()}
		}
		return s.sendError(c, req.ID, rpcErr)
	}
	return c.JSON(http.StatusOK, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

func (s *Server) sendError(c echo.Context, id interface{}, e *Error) error {
	return c.JSON(http.StatusBadRequest, Response{JSONRPC: "2.0", Error: e, ID: id})
}

// Execute validates params against the tool definition and runs it.
func (s *Server) Execute(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, &Error{Code: CodeUnknownTool, Message: "Tool not found: " + name}
	}
	validated, err := t.validate(params)
	if err != nil {
		return nil, err
	}

	log := s.log.WithField("tool", name)
	log.WithField("params", validated).Info("Executing tool")
	result, err := t.handler(ctx, validated)
	if err != nil {
		log.WithError(err).Error("Tool failed")
		return nil, err
	}
	log.Info("Tool completed")
	return result, nil
}

// ToolNames lists the registered tools in name order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
