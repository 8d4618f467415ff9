package similarity

import (
	"hash/fnv"
	"math"
	"strings"
)

// VectorDim is the dimensionality of the hashed bag-of-tokens embedding.
// Large enough that unrelated vocabularies rarely collide, small enough to
// keep per-item storage in the backend trivial.
const VectorDim = 256

// Vectorize embeds the normalized text as hashed token counts. The embedding
// is deterministic and purely lexical, so cosine scores over it track the
// Jaccard scores of the lexical path closely enough to share thresholds.
func Vectorize(text string) []float32 {
	vec := make([]float32, VectorDim)
	for _, tok := range strings.Fields(Normalize(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%VectorDim]++
	}
	return normalizeVec(vec)
}

// Cosine computes the cosine similarity of two equal-length vectors.
// Unit-length inputs reduce this to a dot product.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func normalizeVec(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
