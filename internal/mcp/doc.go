// Package mcp exposes the indexing and search engine over the Model Context
// Protocol so AI coding assistants can drive it directly.
//
// MCP is a JSON-RPC 2.0 protocol over stdio. Stdout is reserved for protocol
// messages; all logging goes to stderr.
//
// Tools:
//   - create_project: register a new project
//   - delete_project: remove a project and its blocks
//   - list_projects: list registered projects
//   - project_info: metadata and block counts for one project
//   - index_project: parse, embed, and store the code blocks of a directory
//   - search_code: exact k-nearest-neighbor search over embedded blocks
//   - find_function: look up blocks by exact function name
//
// Client configuration:
//
//	{
//	  "mcpServers": {
//	    "blockoli": {
//	      "command": "/usr/local/bin/blockoli",
//	      "args": ["-mcp"],
//	      "env": {
//	        "BLOCKOLI_EMBEDDING_PROVIDER": "local"
//	      }
//	    }
//	  }
//	}
package mcp
