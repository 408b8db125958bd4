package matcher

import (
	"sync"

	"github.com/coder/hnsw"
)

// HNSW index parameters for gallery descriptors.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	hnswMaxNeighbors = 16

	// hnswCandidateMultiplier requests more candidates than strictly
	// needed so exact rescoring still sees every plausible employee after
	// incomparable entries are skipped.
	hnswCandidateMultiplier = 3
)

// Index is an approximate-nearest-neighbor pre-filter over the gallery.
// Search narrows the candidate set; callers always rescore candidates
// exactly with Match, so the index can never change a decision, only
// speed it up. Rebuilt wholesale whenever enrollment changes the gallery.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	entries map[int64]Entry
	version string
	dim     int
}

func NewIndex() *Index {
	return &Index{entries: make(map[int64]Entry)}
}

// Build replaces the index contents with the given gallery snapshot,
// keyed by descriptor ID. Only entries carrying the given extractor
// version and dimension are indexed: the backing graph asserts equal
// dimensions, and stale-version entries would crowd the fixed-size
// candidate neighborhood with vectors exact rescoring discards anyway.
// Incomparable leftovers stay reachable via the full-scan fallback.
func (ix *Index) Build(version string, dim int, descriptors map[int64]Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.version = version
	ix.dim = dim

	entries := make(map[int64]Entry, len(descriptors))
	for id, entry := range descriptors {
		if entry.Version != version || len(entry.Vector) != dim {
			continue
		}
		entries[id] = entry
	}
	if len(entries) == 0 {
		ix.graph = nil
		ix.entries = entries
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	for id, entry := range entries {
		g.Add(hnsw.MakeNode(id, entry.Vector))
	}

	ix.graph = g
	ix.entries = entries
}

// Candidates returns up to k*multiplier gallery entries closest to the
// probe, or nil when the index is empty or the probe does not match the
// indexed dimension (callers fall back to a full scan).
func (ix *Index) Candidates(probe []float32, k int) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil || len(ix.entries) == 0 || len(probe) != ix.dim {
		return nil
	}

	neighbors := ix.graph.Search(probe, k*hnswCandidateMultiplier)
	candidates := make([]Entry, 0, len(neighbors))
	for _, n := range neighbors {
		if entry, ok := ix.entries[n.Key]; ok {
			candidates = append(candidates, entry)
		}
	}
	return candidates
}

// Len returns the number of indexed descriptors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
