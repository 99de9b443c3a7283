package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/internal/email"
	"github.com/brandon/mcp-imap-search/internal/tools"
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

const protocolVersion = "2024-11-05"

// Version is reported in serverInfo; set at startup
var Version = "dev"

// Server represents the MCP server
type Server struct {
	config *config.Config
	logger *logrus.Logger
	tools  *tools.Registry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, mailbox tools.Mailbox, logger *logrus.Logger) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		tools:  tools.NewRegistry(cfg, mailbox, logger),
	}
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC requests from r and writes one
// response line per request to w. It returns when r is exhausted or ctx is
// done.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.Info("Starting MCP server with stdio transport")

	reader := bufio.NewReader(r)
	encoder := json.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if resp := s.handleLine(ctx, line); resp != nil {
				if encErr := encoder.Encode(resp); encErr != nil {
					return fmt.Errorf("failed to write response: %w", encErr)
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) map[string]interface{} {
	var req map[string]interface{}
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.WithError(err).Error("Failed to decode request")
		return errorResponse(nil, codeParseError, "Parse error")
	}

	// notifications carry no id and get no response
	id, hasID := req["id"]
	if !hasID {
		method, _ := req["method"].(string)
		s.logger.WithField("method", method).Debug("Received notification")
		return nil
	}

	return s.handleRequest(ctx, id, req)
}

// handleRequest processes an MCP request
func (s *Server) handleRequest(ctx context.Context, id interface{}, req map[string]interface{}) map[string]interface{} {
	method, ok := req["method"].(string)
	if !ok {
		return errorResponse(id, codeInvalidRequest, "Invalid request: missing method")
	}

	switch method {
	case "initialize":
		return resultResponse(id, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "mcp-imap-search",
				"version": Version,
			},
		})

	case "ping":
		return resultResponse(id, map[string]interface{}{})

	case "tools/list":
		return resultResponse(id, map[string]interface{}{
			"tools": s.tools.GetToolDefinitions(),
		})

	case "tools/call":
		params, _ := req["params"].(map[string]interface{})
		toolName, _ := params["name"].(string)
		arguments, _ := params["arguments"].(map[string]interface{})
		if arguments == nil {
			arguments = map[string]interface{}{}
		}
		return s.callTool(ctx, id, toolName, arguments)
	}

	return errorResponse(id, codeMethodNotFound, fmt.Sprintf("Method not found: %s", method))
}

func (s *Server) callTool(ctx context.Context, id interface{}, name string, arguments map[string]interface{}) map[string]interface{} {
	tool, exists := s.tools.GetTool(name)
	if !exists {
		return errorResponse(id, codeMethodNotFound, fmt.Sprintf("Tool not found: %s", name))
	}

	log := s.logger.WithFields(logrus.Fields{
		"tool":       name,
		"request_id": uuid.NewString(),
	})
	log.Debug("Executing tool")
	start := time.Now()

	result, err := tool.Execute(ctx, arguments)
	if err != nil {
		log.WithError(err).WithField("duration", time.Since(start)).Warn("Tool failed")
		if email.IsValidationError(err) {
			return errorResponse(id, codeInvalidParams, err.Error())
		}
		return errorResponse(id, codeInternalError, fmt.Sprintf("%s failed: %v", name, err))
	}
	log.WithField("duration", time.Since(start)).Info("Tool completed")

	// Serialize result to JSON string for text content
	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(fmt.Sprintf("%v", result))
	}

	return resultResponse(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(resultJSON),
			},
		},
	})
}

func resultResponse(id interface{}, result interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
}

func errorResponse(id interface{}, code int, message string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}
