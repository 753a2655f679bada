package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitSphereGeometry(t *testing.T) {
	m := UnitSphere(8, 12)

	require.Equal(t, (8+1)*(12+1), m.VertexCount())
	require.Equal(t, 8*12*6, len(m.Indices))

	// every vertex lies on the unit sphere and its normal equals its
	// position
	for i := 0; i < len(m.Vertices); i += 6 {
		x, y, z := m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2]
		r := math.Sqrt(float64(x*x + y*y + z*z))
		assert.InDelta(t, 1.0, r, 1e-5)

		assert.Equal(t, x, m.Vertices[i+3])
		assert.Equal(t, y, m.Vertices[i+4])
		assert.Equal(t, z, m.Vertices[i+5])
	}
}

func TestUnitSphereIndicesInRange(t *testing.T) {
	m := UnitSphere(5, 7)
	n := uint32(m.VertexCount())
	for _, idx := range m.Indices {
		assert.Less(t, idx, n)
	}
}

func TestUnitSphereClampsDegenerate(t *testing.T) {
	m := UnitSphere(0, 1)
	assert.Equal(t, (3+1)*(3+1), m.VertexCount())
}

func TestMeshBounds(t *testing.T) {
	m := UnitSphere(16, 16)
	min, max := m.Bounds()
	for c := 0; c < 3; c++ {
		assert.InDelta(t, -1.0, min[c], 1e-3)
		assert.InDelta(t, 1.0, max[c], 1e-3)
	}
}

func TestDemoAtoms(t *testing.T) {
	atoms := DemoAtoms(50)
	require.Len(t, atoms, 50)

	seen := map[uint32]bool{}
	for _, a := range atoms {
		assert.False(t, seen[a.Index], "picking index %d duplicated", a.Index)
		seen[a.Index] = true
		assert.Greater(t, a.Radius, float32(0))
	}
}
