package lattice

// Volume holds one float32 sample per lattice point, x varying fastest.
// Non-finite samples are stored as-is; consumers decide how to treat them.
type Volume struct {
	Grid   Grid
	Values []float32
}

// NewVolume allocates a zeroed volume over g.
func NewVolume(g Grid) *Volume {
	return &Volume{Grid: g, Values: make([]float32, g.Len())}
}

// At returns the sample at (i, j, k).
func (v *Volume) At(i, j, k int) float32 {
	return v.Values[v.Grid.Index(i, j, k)]
}

// Set stores the sample at (i, j, k).
func (v *Volume) Set(i, j, k int, f float32) {
	v.Values[v.Grid.Index(i, j, k)] = f
}
