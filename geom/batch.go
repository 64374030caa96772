package geom

import "math"

// Batch operations over flat attribute streams. A "vec3 stream" is a
// []Element of length 3*n holding x,y,z triples; a "vec2 stream" holds
// u,v pairs. All functions work in place over the whole stream.

// ApplyMatrix4Batch applies the affine transform to every point in the
// vec3 stream (linear part plus translation).
func ApplyMatrix4Batch(m *Matrix4, vecs []Element) {
	for i := 0; i+2 < len(vecs); i += 3 {
		x, y, z := vecs[i], vecs[i+1], vecs[i+2]
		vecs[i] = m[0]*x + m[4]*y + m[8]*z + m[12]
		vecs[i+1] = m[1]*x + m[5]*y + m[9]*z + m[13]
		vecs[i+2] = m[2]*x + m[6]*y + m[10]*z + m[14]
	}
}

// ApplyMatrix3Batch applies the linear map to every vector in the vec3
// stream. Used for directions (normals, tangents) where translation
// must not apply.
func ApplyMatrix3Batch(m *Matrix3, vecs []Element) {
	for i := 0; i+2 < len(vecs); i += 3 {
		x, y, z := vecs[i], vecs[i+1], vecs[i+2]
		vecs[i] = m[0]*x + m[3]*y + m[6]*z
		vecs[i+1] = m[1]*x + m[4]*y + m[7]*z
		vecs[i+2] = m[2]*x + m[5]*y + m[8]*z
	}
}

// ZUpToYUp converts a vec3 stream from Z-up to glTF's right-handed
// Y-up convention: (x,y,z) -> (x,z,-y). The permutation is fixed; it
// is not an involution.
func ZUpToYUp(vecs []Element) {
	for i := 0; i+2 < len(vecs); i += 3 {
		vecs[i+1], vecs[i+2] = vecs[i+2], -vecs[i+1]
	}
}

// NormalizeBatch L2-normalizes every vector in the vec3 stream.
// Zero vectors are left as zero; callers decide how to patch them.
func NormalizeBatch(vecs []Element) {
	for i := 0; i+2 < len(vecs); i += 3 {
		x, y, z := vecs[i], vecs[i+1], vecs[i+2]
		l := Element(math.Sqrt(float64(x*x + y*y + z*z)))
		if l > 0 {
			vecs[i] = x / l
			vecs[i+1] = y / l
			vecs[i+2] = z / l
		}
	}
}

// FlipV converts a vec2 UV stream to glTF texture space: (u,v) -> (u,1-v).
func FlipV(uvs []Element) {
	for i := 1; i < len(uvs); i += 2 {
		uvs[i] = 1 - uvs[i]
	}
}

// SubBatch subtracts b from a element-wise (a -= b). Used to turn
// absolute morph data into deltas.
func SubBatch(a, b []Element) {
	for i := range a {
		a[i] -= b[i]
	}
}
