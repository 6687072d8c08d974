// Package mcp exposes the transition request surface to agent
// collaborators over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/atelier-ops/workflow-hub/internal/controller"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

type Server struct {
	mcpServer  *server.MCPServer
	controller *controller.Controller
	// actor is the verified identity MCP calls run as; tool arguments
	// never override it.
	actor models.Actor
}

func NewServer(ctrl *controller.Controller, actor models.Actor) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Workflow Hub",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		controller: ctrl,
		actor:      actor,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"request_transition",
			mcp.WithDescription("Advance an entity to a new workflow state"),
			mcp.WithString("entity_id", mcp.Required(), mcp.Description("The ID of the entity")),
			mcp.WithString("to_state", mcp.Required(), mcp.Description("The requested destination state")),
			mcp.WithString("trigger_event", mcp.Description("The trigger event name")),
		),
		s.handleRequestTransition,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_entity",
			mcp.WithDescription("Load an entity with its current state and version"),
			mcp.WithString("entity_id", mcp.Required(), mcp.Description("The ID of the entity")),
		),
		s.handleGetEntity,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List the registered workflow definitions"),
		),
		s.handleListWorkflows,
	)
}

func (s *Server) handleRequestTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	entityID, ok := args["entity_id"].(string)
	if !ok || entityID == "" {
		return mcp.NewToolResultError("Missing required parameter: entity_id"), nil
	}
	toState, ok := args["to_state"].(string)
	if !ok || toState == "" {
		return mcp.NewToolResultError("Missing required parameter: to_state"), nil
	}
	trigger, _ := args["trigger_event"].(string)

	entity, err := s.controller.Transition(ctx, entityID, toState, s.actor, trigger)
	if err != nil {
		if werr, ok := workflow.AsError(err); ok {
			body, _ := json.Marshal(werr)
			return mcp.NewToolResultError(string(body)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Transition failed: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(map[string]any{"state": entity.State, "version": entity.Version})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	entityID, ok := args["entity_id"].(string)
	if !ok || entityID == "" {
		return mcp.NewToolResultError("Missing required parameter: entity_id"), nil
	}

	entity, err := s.controller.Get(ctx, entityID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load entity: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(entity)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := s.controller.Definitions()
	defs := make([]*workflow.Definition, 0)
	for _, t := range store.Types() {
		def, err := store.Definition(t)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load definitions: %v", err)), nil
		}
		defs = append(defs, def)
	}

	jsonBytes, _ := json.Marshal(defs)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
