package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Pseudo derives a deterministic bag-of-words vector by hashing each word
// into a fixed number of buckets. Texts sharing words get similar vectors.
type Pseudo struct {
	dims int
}

// NewPseudo creates a Pseudo embedder producing vectors of size dims.
func NewPseudo(dims int) *Pseudo {
	if dims <= 0 {
		dims = 1536
	}
	return &Pseudo{dims: dims}
}

// Dimensions returns the vector size.
func (p *Pseudo) Dimensions() int {
	return p.dims
}

// Embed never fails; empty text yields the zero vector.
func (p *Pseudo) Embed(_ context.Context, text string) ([]float32, error) {
	return p.Vector(text), nil
}

// Terms splits text into lower-cased words.
func Terms(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Vector returns the unit-length hashed vector for text.
func (p *Pseudo) Vector(text string) []float32 {
	vector := make([]float32, p.dims)
	for _, word := range Terms(text) {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()
		idx := int(sum % uint64(p.dims))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vector[idx] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}
