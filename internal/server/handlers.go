package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/searcher"
	"github.com/getAsterisk/blockoli/pkg/types"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

type indexRequest struct {
	// Path indexes a directory on the server's filesystem
	Path string `json:"path,omitempty"`
	// Files indexes inline sources instead
	Files []sourceFile `json:"files,omitempty"`
}

type sourceFile struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

type searchRequest struct {
	Query  string    `json:"query,omitempty"`
	Vector []float32 `json:"vector,omitempty"`
	K      int       `json:"k,omitempty"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.store.CreateProject(r.Context(), req.Name); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"name": req.Name})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(projects))
	for _, p := range projects {
		out = append(out, map[string]interface{}{
			"name":              p.Name,
			"total_code_blocks": p.TotalBlocks,
			"generation":        p.Generation,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"projects": out})
}

func (s *Server) handleProjectInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := s.store.GetProject(r.Context(), name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":              p.Name,
		"total_code_blocks": p.TotalBlocks,
		"generation":        p.Generation,
		"root_path":         p.RootPath,
		"last_indexed_at":   p.LastIndexedAt,
	})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.DeleteProject(r.Context(), name); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.searcher.Invalidate(name)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"message": "deleted project " + name})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" && len(req.Files) == 0 {
		s.respondError(w, http.StatusBadRequest, "path or files is required")
		return
	}
	if req.Path != "" && len(req.Files) > 0 {
		s.respondError(w, http.StatusBadRequest, "path and files are mutually exclusive")
		return
	}

	var report *types.IndexReport
	var err error
	if req.Path != "" {
		cfg := &indexer.Config{
			Workers:       s.config.Indexing.Workers,
			IncludeTests:  s.config.Indexing.IncludeTestsOrDefault(),
			IncludeVendor: s.config.Indexing.IncludeVendor,
		}
		report, err = s.indexer.IndexDirectory(r.Context(), name, req.Path, cfg)
	} else {
		files := make([]types.SourceFile, len(req.Files))
		for i, f := range req.Files {
			files[i] = types.SourceFile{Path: f.Path, Source: []byte(f.Source)}
		}
		report, err = s.indexer.Reindex(r.Context(), name, files)
	}
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, reportJSON(report))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.searcher.Search(r.Context(), searcher.SearchRequest{
		Project: name,
		Query:   req.Query,
		Vector:  req.Vector,
		K:       req.K,
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, res := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":     res.Rank,
			"distance": res.Distance,
			"block":    blockJSON(res.Block),
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":    results,
		"generation": resp.Generation,
		"cache_hit":  resp.CacheHit,
	})
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	blocks, err := s.store.ListBlocks(r.Context(), name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondBlocks(w, blocks)
}

func (s *Server) handleListFunctionBlocks(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	blocks, err := s.store.ListBlocks(r.Context(), name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	// Named function and method blocks only
	named := blocks[:0]
	for _, b := range blocks {
		if b.Name != "" {
			named = append(named, b)
		}
	}
	s.respondBlocks(w, named)
}

func (s *Server) handleSearchBlockContent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	blocks, err := s.store.SearchBlockContent(r.Context(), name, req.Query)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondBlocks(w, blocks)
}

func (s *Server) handleFindFunction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	function := chi.URLParam(r, "function")

	blocks, err := s.store.FindByFunctionName(r.Context(), name, function)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondBlocks(w, blocks)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// respondBlocks writes a block list response
func (s *Server) respondBlocks(w http.ResponseWriter, blocks []*types.CodeBlock) {
	out := make([]map[string]interface{}, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockJSON(b))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"blocks": out})
}

// blockJSON renders one block for the wire, embedding omitted
func blockJSON(b *types.CodeBlock) map[string]interface{} {
	return map[string]interface{}{
		"id":            b.ID,
		"function_name": b.Name,
		"scope":         b.Scope,
		"source_file":   b.Path,
		"kind":          string(b.Kind),
		"start_line":    b.StartLine,
		"end_line":      b.EndLine,
		"code":          b.Content,
		"embedded":      b.HasEmbedding(),
	}
}

// reportJSON renders an index report for the wire
func reportJSON(report *types.IndexReport) map[string]interface{} {
	files := make([]map[string]interface{}, 0, len(report.Files))
	for i := range report.Files {
		f := &report.Files[i]
		entry := map[string]interface{}{
			"path":            f.Path,
			"parsed":          f.Parsed,
			"blocks_found":    f.BlocksFound,
			"blocks_embedded": f.BlocksEmbedded,
		}
		if f.ParseError != nil {
			entry["parse_error"] = f.ParseError.Error()
		}
		if len(f.EmbedErrors) > 0 {
			msgs := make([]string, len(f.EmbedErrors))
			for j := range f.EmbedErrors {
				msgs[j] = f.EmbedErrors[j].Error()
			}
			entry["embed_errors"] = msgs
		}
		files = append(files, entry)
	}

	return map[string]interface{}{
		"run_id":          report.RunID,
		"project":         report.Project,
		"blocks_indexed":  report.BlocksIndexed,
		"blocks_embedded": report.BlocksEmbedded,
		"files_failed":    report.FilesFailed,
		"duration_ms":     report.Duration.Milliseconds(),
		"files":           files,
	}
}

// respondJSON writes a JSON response with the given status
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondError writes a JSON error message
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{"message": message})
}

// respondDomainError maps engine errors onto HTTP statuses
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrProjectNotFound), errors.Is(err, types.ErrBlockNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrProjectExists), errors.Is(err, types.ErrAlreadyIndexing):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrDimensionMismatch), errors.Is(err, types.ErrEmptyIndex):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}
