package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/searcher"
	"github.com/getAsterisk/blockoli/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound  = -32001 // Project does not exist
	ErrorCodeProjectExists    = -32002 // Project already exists
	ErrorCodeAlreadyIndexing  = -32003 // Another reindex is running for the project
	ErrorCodeEmptyIndex       = -32004 // Project has no embedded blocks to search
	ErrorCodeDimensionMissing = -32005 // Query vector dimension mismatch
)

func (s *Server) handleCreateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateProject(ctx, name); err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"created": true,
		"name":    name,
	})), nil
}

func (s *Server) handleDeleteProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteProject(ctx, name); err != nil {
		return nil, domainError(err)
	}
	s.searcher.Invalidate(name)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"name":    name,
	})), nil
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, domainError(err)
	}

	out := make([]map[string]interface{}, 0, len(projects))
	for _, p := range projects {
		out = append(out, map[string]interface{}{
			"name":              p.Name,
			"total_code_blocks": p.TotalBlocks,
			"generation":        p.Generation,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"projects": out,
	})), nil
}

func (s *Server) handleProjectInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetProject(ctx, name)
	if err != nil {
		return nil, domainError(err)
	}

	info := map[string]interface{}{
		"name":              p.Name,
		"total_code_blocks": p.TotalBlocks,
		"generation":        p.Generation,
		"root_path":         p.RootPath,
	}
	if !p.LastIndexedAt.IsZero() {
		info["last_indexed_at"] = p.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	return mcp.NewToolResultText(formatJSON(info)), nil
}

func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	config := indexer.DefaultConfig()
	config.IncludeTests = getBoolDefault(args, "include_tests", true)
	config.IncludeVendor = getBoolDefault(args, "include_vendor", false)

	report, err := s.indexer.IndexDirectory(ctx, name, path, config)
	if err != nil {
		return nil, domainError(err)
	}

	response := map[string]interface{}{
		"indexed":         true,
		"run_id":          report.RunID,
		"blocks_indexed":  report.BlocksIndexed,
		"blocks_embedded": report.BlocksEmbedded,
		"files_failed":    report.FilesFailed,
		"duration_ms":     report.Duration.Milliseconds(),
	}
	if msgs := report.Errors(); len(msgs) > 0 {
		if len(msgs) > 5 {
			response["error_count"] = len(msgs)
			msgs = msgs[:5]
		}
		response["errors"] = msgs
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}
	query, err := requiredString(args, "query")
	if err != nil {
		return nil, err
	}

	k := getIntDefault(args, "k", 0)
	if k < 0 || k > searcher.MaxK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("k must be between 1 and %d", searcher.MaxK), map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Project: name,
		Query:   query,
		K:       k,
	})
	if err != nil {
		return nil, domainError(err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, res := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":          res.Rank,
			"distance":      res.Distance,
			"function_name": res.Block.Name,
			"scope":         res.Block.Scope,
			"source_file":   res.Block.Path,
			"kind":          string(res.Block.Kind),
			"start_line":    res.Block.StartLine,
			"end_line":      res.Block.EndLine,
			"code":          res.Block.Content,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results":    results,
		"generation": resp.Generation,
	})), nil
}

func (s *Server) handleFindFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}
	function, err := requiredString(args, "function")
	if err != nil {
		return nil, err
	}

	blocks, err := s.store.FindByFunctionName(ctx, name, function)
	if err != nil {
		return nil, domainError(err)
	}

	out := make([]map[string]interface{}, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, map[string]interface{}{
			"id":            b.ID,
			"function_name": b.Name,
			"scope":         b.Scope,
			"source_file":   b.Path,
			"kind":          string(b.Kind),
			"start_line":    b.StartLine,
			"end_line":      b.EndLine,
			"code":          b.Content,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"blocks": out,
	})), nil
}

// Helper functions

// MCPError is a JSON-RPC error with a code and optional structured data.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// domainError maps engine errors onto MCP error codes.
func domainError(err error) error {
	switch {
	case errors.Is(err, types.ErrProjectNotFound):
		return newMCPError(ErrorCodeProjectNotFound, err.Error(), nil)
	case errors.Is(err, types.ErrProjectExists):
		return newMCPError(ErrorCodeProjectExists, err.Error(), nil)
	case errors.Is(err, types.ErrAlreadyIndexing):
		return newMCPError(ErrorCodeAlreadyIndexing, err.Error(), nil)
	case errors.Is(err, types.ErrEmptyIndex):
		return newMCPError(ErrorCodeEmptyIndex, err.Error(), nil)
	case errors.Is(err, types.ErrDimensionMismatch):
		return newMCPError(ErrorCodeDimensionMissing, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, err.Error(), nil)
	}
}

func toolArgs(request mcp.CallToolRequest) (map[string]interface{}, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requiredString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// validatePath checks that path is an absolute, readable directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("path must be absolute")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New("path does not exist")
	}
	if err != nil {
		return errors.New("path is not readable")
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
