package api

import (
	"sync"

	"github.com/segmentio/ksuid"

	"github.com/ldenti/ropebwt2/pkg/rope"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateRopeRequest configures a new rope. Zero values fall back to the
// server's configured defaults.
type CreateRopeRequest struct {
	MaxNodes int `json:"max_nodes"`
	BlockLen int `json:"block_len"`
}

// InsertRequest carries sequences to insert into a rope. Mode selects the
// construction algorithm: "rlo" (default), "io" for plain input order, or
// "multi" for the batched inserter.
type InsertRequest struct {
	Sequences []string `json:"sequences"`
	Mode      string   `json:"mode"`
}

// RopeInfo describes one rope in list and detail responses.
type RopeInfo struct {
	ID    string     `json:"id"`
	Stats rope.Stats `json:"stats"`
}

// RankResponse carries the marginal counts at the two queried positions.
type RankResponse struct {
	X  int64                    `json:"x"`
	Y  int64                    `json:"y"`
	Cx [rope.NumSymbols]int64   `json:"cx"`
	Cy *[rope.NumSymbols]int64  `json:"cy,omitempty"`
}

// managedRope pairs a rope with the mutex that serializes access to it: the
// rope itself is single-writer and lock-free.
type managedRope struct {
	mu   sync.Mutex
	rope *rope.Rope
}

// Registry tracks the ropes owned by a server, keyed by KSUID.
type Registry struct {
	mu    sync.RWMutex
	ropes map[string]*managedRope
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ropes: make(map[string]*managedRope)}
}

// Create builds a rope with the given geometry and returns its handle.
func (reg *Registry) Create(maxNodes, blockLen int) string {
	id := ksuid.New().String()
	reg.mu.Lock()
	reg.ropes[id] = &managedRope{rope: rope.New(maxNodes, blockLen)}
	reg.mu.Unlock()
	return id
}

// get looks up a rope by handle.
func (reg *Registry) get(id string) (*managedRope, bool) {
	reg.mu.RLock()
	mr, ok := reg.ropes[id]
	reg.mu.RUnlock()
	return mr, ok
}

// Delete drops a rope. Returns false if the handle is unknown.
func (reg *Registry) Delete(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.ropes[id]; !ok {
		return false
	}
	delete(reg.ropes, id)
	return true
}

// IDs returns the registered handles.
func (reg *Registry) IDs() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]string, 0, len(reg.ropes))
	for id := range reg.ropes {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered ropes.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.ropes)
}
