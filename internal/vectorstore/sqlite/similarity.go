package sqlite

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(data))
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, nil
}

// topK keeps the k highest-scoring entries seen.
type topK struct {
	k int
	h scoredHeap
}

func newTopK(k int) *topK {
	t := &topK{k: k}
	heap.Init(&t.h)
	return t
}

func (t *topK) offer(e domain.ScoredEntry) {
	if t.h.Len() < t.k {
		heap.Push(&t.h, e)
	} else if e.Score > t.h[0].Score {
		heap.Pop(&t.h)
		heap.Push(&t.h, e)
	}
}

// sorted drains the heap in descending score order.
func (t *topK) sorted() []domain.ScoredEntry {
	out := make([]domain.ScoredEntry, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(domain.ScoredEntry)
	}
	return out
}

// scoredHeap is a min-heap ordered by Score.
type scoredHeap []domain.ScoredEntry

func (h scoredHeap) Len() int           { return len(h) }
func (h scoredHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scoredHeap) Push(x interface{}) {
	*h = append(*h, x.(domain.ScoredEntry))
}

func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
