package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorize(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := Vectorize("goroutines and channels")
		b := Vectorize("goroutines and channels")
		assert.Equal(t, a, b)
	})

	t.Run("unit length", func(t *testing.T) {
		vec := Vectorize("explain the http request lifecycle")
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	})

	t.Run("empty text is the zero vector", func(t *testing.T) {
		vec := Vectorize("")
		require.Len(t, vec, VectorDim)
		for _, v := range vec {
			assert.Zero(t, v)
		}
	})
}

func TestCosine(t *testing.T) {
	t.Run("identical text", func(t *testing.T) {
		a := Vectorize("what is dependency injection")
		assert.InDelta(t, 1.0, Cosine(a, a), 1e-6)
	})

	t.Run("tracks lexical similarity", func(t *testing.T) {
		near := Cosine(Vectorize("what is a goroutine"), Vectorize("what is a goroutine exactly"))
		far := Cosine(Vectorize("what is a goroutine"), Vectorize("describe tcp congestion control"))
		assert.Greater(t, near, far)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 0}))
	})

	t.Run("zero vector", func(t *testing.T) {
		zero := make([]float32, VectorDim)
		assert.Equal(t, 0.0, Cosine(zero, Vectorize("anything")))
	})
}
