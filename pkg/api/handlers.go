package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ldenti/ropebwt2/pkg/rope"
)

// Server exposes a registry of ropes over HTTP.
type Server struct {
	registry *Registry
	metrics  *Metrics
	config   ServerConfig
}

// ServerConfig holds the HTTP server settings and the geometry defaults for
// ropes created through the API.
type ServerConfig struct {
	Bind            string
	Port            int
	APIKey          string
	DefaultMaxNodes int
	DefaultBlockLen int
}

// NewServer creates a server around a registry.
func NewServer(registry *Registry, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		registry: registry,
		metrics:  metrics,
		config:   config,
	}
}

// handleHealth godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} APIResponse
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCreateRope godoc
// @Summary Create a rope
// @Tags ropes
// @Accept json
// @Produce json
// @Param request body CreateRopeRequest true "Geometry"
// @Success 200 {object} APIResponse{data=RopeInfo}
// @Security ApiKeyAuth
// @Router /ropes [post]
func (s *Server) handleCreateRope(w http.ResponseWriter, r *http.Request) {
	var req CreateRopeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, "Invalid JSON request", http.StatusBadRequest)
			return
		}
	}
	if req.MaxNodes == 0 {
		req.MaxNodes = s.config.DefaultMaxNodes
	}
	if req.BlockLen == 0 {
		req.BlockLen = s.config.DefaultBlockLen
	}

	id := s.registry.Create(req.MaxNodes, req.BlockLen)
	s.updateGauges()
	mr, _ := s.registry.get(id)
	sendSuccess(w, RopeInfo{ID: id, Stats: mr.rope.Stats()})
}

// handleListRopes godoc
// @Summary List ropes
// @Tags ropes
// @Produce json
// @Success 200 {object} APIResponse{data=[]RopeInfo}
// @Security ApiKeyAuth
// @Router /ropes [get]
func (s *Server) handleListRopes(w http.ResponseWriter, r *http.Request) {
	infos := make([]RopeInfo, 0, s.registry.Len())
	for _, id := range s.registry.IDs() {
		mr, ok := s.registry.get(id)
		if !ok {
			continue
		}
		mr.mu.Lock()
		stats := mr.rope.Stats()
		mr.mu.Unlock()
		infos = append(infos, RopeInfo{ID: id, Stats: stats})
	}
	sendSuccess(w, infos)
}

// handleGetRope godoc
// @Summary Rope statistics
// @Tags ropes
// @Produce json
// @Param id path string true "Rope handle"
// @Success 200 {object} APIResponse{data=RopeInfo}
// @Failure 404 {object} APIResponse
// @Security ApiKeyAuth
// @Router /ropes/{id} [get]
func (s *Server) handleGetRope(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mr, ok := s.registry.get(id)
	if !ok {
		sendError(w, "Rope not found", http.StatusNotFound)
		return
	}
	mr.mu.Lock()
	stats := mr.rope.Stats()
	mr.mu.Unlock()
	sendSuccess(w, RopeInfo{ID: id, Stats: stats})
}

// handleDeleteRope godoc
// @Summary Drop a rope
// @Tags ropes
// @Produce json
// @Param id path string true "Rope handle"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Security ApiKeyAuth
// @Router /ropes/{id} [delete]
func (s *Server) handleDeleteRope(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Delete(id) {
		sendError(w, "Rope not found", http.StatusNotFound)
		return
	}
	s.updateGauges()
	sendSuccess(w, map[string]string{"message": "Rope deleted"})
}

// handleInsert godoc
// @Summary Insert sequences
// @Description Insert ACGTN sequences into a rope; bases outside ACGT fold to N.
// @Tags ropes
// @Accept json
// @Produce json
// @Param id path string true "Rope handle"
// @Param request body InsertRequest true "Sequences and mode (rlo, io or multi)"
// @Success 200 {object} APIResponse{data=RopeInfo}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Security ApiKeyAuth
// @Router /ropes/{id}/sequences [post]
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mr, ok := s.registry.get(id)
	if !ok {
		sendError(w, "Rope not found", http.StatusNotFound)
		return
	}

	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if len(req.Sequences) == 0 {
		sendError(w, "At least one sequence is required", http.StatusBadRequest)
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = "rlo"
	}

	start := time.Now()
	err := insertSequences(mr, mode, req.Sequences)
	s.metrics.RecordInsert(mode, err == nil, time.Since(start))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.updateGauges()

	mr.mu.Lock()
	stats := mr.rope.Stats()
	mr.mu.Unlock()
	sendSuccess(w, RopeInfo{ID: id, Stats: stats})
}

func insertSequences(mr *managedRope, mode string, seqs []string) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	switch mode {
	case "multi":
		var buf []byte
		for _, seq := range seqs {
			buf = append(buf, rope.EncodeSeq([]byte(seq))...)
			buf = append(buf, 0)
		}
		return mr.rope.InsertMulti(buf)
	case "io":
		for _, seq := range seqs {
			if err := mr.rope.InsertString(rope.EncodeSeq([]byte(seq))); err != nil {
				return err
			}
		}
		return nil
	case "rlo":
		for _, seq := range seqs {
			if err := mr.rope.InsertStringRLO(rope.EncodeSeq([]byte(seq))); err != nil {
				return err
			}
		}
		return nil
	default:
		return errUnknownMode(mode)
	}
}

type unknownModeError string

func (e unknownModeError) Error() string {
	return "unknown insertion mode: " + string(e)
}

func errUnknownMode(mode string) error { return unknownModeError(mode) }

// handleRank godoc
// @Summary Rank query
// @Description Marginal per-symbol counts of the first x (and optionally y) symbols.
// @Tags ropes
// @Produce json
// @Param id path string true "Rope handle"
// @Param x query int true "First position"
// @Param y query int false "Second position (x <= y)"
// @Success 200 {object} APIResponse{data=RankResponse}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Security ApiKeyAuth
// @Router /ropes/{id}/rank [get]
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mr, ok := s.registry.get(id)
	if !ok {
		sendError(w, "Rope not found", http.StatusNotFound)
		return
	}

	x, err := strconv.ParseInt(r.URL.Query().Get("x"), 10, 64)
	if err != nil {
		sendError(w, "x parameter is required", http.StatusBadRequest)
		return
	}
	y := int64(-1)
	if ys := r.URL.Query().Get("y"); ys != "" {
		if y, err = strconv.ParseInt(ys, 10, 64); err != nil {
			sendError(w, "invalid y parameter", http.StatusBadRequest)
			return
		}
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()
	total := mr.rope.TotalLen()
	if x < 0 || x > total || y > total {
		sendError(w, "position out of range", http.StatusBadRequest)
		return
	}

	resp := RankResponse{X: x, Y: y}
	if y >= x {
		var cy [rope.NumSymbols]int64
		mr.rope.Rank2(x, y, &resp.Cx, &cy)
		resp.Cy = &cy
	} else {
		mr.rope.Rank1(x, &resp.Cx)
	}
	s.metrics.RecordRank()
	sendSuccess(w, resp)
}

// handleBWT godoc
// @Summary Decoded transform
// @Description The stored sequence as $ACGTN text.
// @Tags ropes
// @Produce plain
// @Param id path string true "Rope handle"
// @Success 200 {string} string "BWT"
// @Failure 404 {object} APIResponse
// @Security ApiKeyAuth
// @Router /ropes/{id}/bwt [get]
func (s *Server) handleBWT(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mr, ok := s.registry.get(id)
	if !ok {
		sendError(w, "Rope not found", http.StatusNotFound)
		return
	}
	mr.mu.Lock()
	bwt := rope.DecodeSeq(mr.rope.Bytes())
	mr.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(bwt)
}

func (s *Server) updateGauges() {
	symbols := int64(0)
	for _, id := range s.registry.IDs() {
		if mr, ok := s.registry.get(id); ok {
			mr.mu.Lock()
			symbols += mr.rope.TotalLen()
			mr.mu.Unlock()
		}
	}
	s.metrics.UpdateRopeStats(s.registry.Len(), symbols)
}

// Helper functions

func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}
