package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func createProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_project",
		Description: "Register a new project for code indexing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Unique project name",
				},
			},
			Required: []string{"name"},
		},
	}
}

func deleteProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project and all of its indexed code blocks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Project name",
				},
			},
			Required: []string{"name"},
		},
	}
}

func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List all registered projects with their block counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func projectInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "project_info",
		Description: "Get metadata and statistics for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Project name",
				},
			},
			Required: []string{"name"},
		},
	}
}

func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Parse, embed, and store the code blocks found under a directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Project name",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index *_test.go files",
					"default":     true,
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index vendor/ directories",
					"default":     false,
				},
			},
			Required: []string{"name", "path"},
		},
	}
}

func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Find the code blocks most similar to a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Project name",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query text to embed and search with",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"name", "query"},
		},
	}
}

func findFunctionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_function",
		Description: "Look up code blocks by exact function or method name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Project name",
				},
				"function": map[string]interface{}{
					"type":        "string",
					"description": "Function or method name to look up",
				},
			},
			Required: []string{"name", "function"},
		},
	}
}
