// Package fingerprint defines the fixed-length article vector and its wire format.
package fingerprint

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/tastefeed/internal/domain"
)

const (
	// Dim is the number of components in every fingerprint.
	Dim = 384
	// WireSize is the encoded length: Dim little-endian float32 values, no header.
	WireSize = Dim * 4
)

// Fingerprint is a Dim-length float32 vector.
type Fingerprint []float32

// New validates the length of v and returns it as a Fingerprint.
// The slice is not copied.
func New(v []float32) (Fingerprint, error) {
	if len(v) != Dim {
		return nil, domain.NewDimensionMismatch(len(v), Dim)
	}
	return Fingerprint(v), nil
}

// Validate reports a dimension mismatch for anything but exactly Dim components.
func (f Fingerprint) Validate() error {
	if len(f) != Dim {
		return domain.NewDimensionMismatch(len(f), Dim)
	}
	return nil
}

// Encode serializes the fingerprint to its wire format.
func (f Fingerprint) Encode() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, WireSize)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// Decode parses the wire format. Any length other than WireSize is a dimension mismatch.
func Decode(b []byte) (Fingerprint, error) {
	if len(b) != WireSize {
		return nil, domain.NewDimensionMismatch(len(b)/4, Dim)
	}
	f := make(Fingerprint, Dim)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f, nil
}

// Norm returns the Euclidean norm, accumulated in float64.
func Norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// Cosine returns the cosine similarity of a and b, within [-1, 1]. A zero-norm
// operand yields 0. Both slices must have the same length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// CosineWithNorm is Cosine with a precomputed norm for a.
func CosineWithNorm(a []float32, normA float64, b []float32) float64 {
	if normA == 0 {
		return 0
	}
	var dot, nb float64
	for i := range a {
		y := float64(b[i])
		dot += float64(a[i]) * y
		nb += y * y
	}
	if nb == 0 {
		return 0
	}
	return clamp(dot / (normA * math.Sqrt(nb)))
}

// clamp absorbs rounding that would put a similarity just outside [-1, 1].
func clamp(s float64) float64 {
	return max(-1, min(1, s))
}
