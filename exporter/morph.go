package exporter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// calcMorphTangentDeltas derives morph tangent deltas from the morph
// normal deltas: reconstruct the morphed normal, find the shortest-arc
// rotation taking the base normal onto it, rotate the base tangent by
// it and store the difference. Runs per output vertex, after NORMAL,
// TANGENT and the matching MORPH_NORMAL_k are materialized.
func calcMorphTangentDeltas(normals, morphNormalDeltas, tangents []float32) []float32 {
	out := make([]float32, len(normals))
	for i := 0; i*3 < len(normals); i++ {
		n := mgl32.Vec3{normals[i*3], normals[i*3+1], normals[i*3+2]}
		d := mgl32.Vec3{morphNormalDeltas[i*3], morphNormalDeltas[i*3+1], morphNormalDeltas[i*3+2]}
		morphN := n.Add(d)
		if n.Len() == 0 || morphN.Len() == 0 {
			continue // no rotation derivable, delta stays zero
		}
		t := mgl32.Vec3{tangents[i*4], tangents[i*4+1], tangents[i*4+2]}
		rotated := mgl32.QuatBetweenVectors(n, morphN).Rotate(t)
		out[i*3] = rotated[0] - t[0]
		out[i*3+1] = rotated[1] - t[1]
		out[i*3+2] = rotated[2] - t[2]
	}
	return out
}

func morphNormalName(i int) string {
	return fmt.Sprintf("MORPH_NORMAL_%d", i)
}
