package exporter

import (
	"testing"

	"github.com/meshkit/gltfexport/mesh"
)

func TestCalcMorphTangentDeltas(t *testing.T) {
	// base normal +Y rotates onto +X; the +X tangent follows the same
	// rotation and ends up at -Y.
	normals := []float32{0, 1, 0}
	deltas := []float32{1, -1, 0}
	tangents := []float32{1, 0, 0, 1}
	out := calcMorphTangentDeltas(normals, deltas, tangents)
	want := []float32{-1, -1, 0}
	for i := range want {
		if !near(out[i], want[i]) {
			t.Fatal("tangent delta", out, want)
		}
	}
}

func TestCalcMorphTangentDeltasDegenerate(t *testing.T) {
	// unrotated and fully-cancelled normals both leave the tangent alone
	normals := []float32{0, 0, 1, 0, 0, 1}
	deltas := []float32{0, 0, 0, 0, 0, -1}
	tangents := []float32{1, 0, 0, 1, 1, 0, 0, 1}
	out := calcMorphTangentDeltas(normals, deltas, tangents)
	for i, v := range out {
		if v != 0 {
			t.Error("expected zero delta at", i, out)
		}
	}
}

func TestMorphTangentExport(t *testing.T) {
	m := &mesh.Mesh{
		Name:          "morphtan",
		Position:      []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
		CornerVertex:  []uint32{0, 1, 2},
		Normal:        []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Tangent:       []float32{1, 0, 0, 1, 0, 0, 1, 0, 0},
		BitangentSign: []float32{1, 1, 1},
		UVLayers:      []mesh.UVLayer{{Name: "UVMap", UV: []float32{0, 0, 1, 0, 1, 1}}},
		ActiveUV:      0,
		Faces:         []mesh.Face{{Start: 0, Count: 3, Material: 0}},
		ShapeKeys: []mesh.ShapeKey{{
			Name:     "Key",
			Position: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0}, // same as base
			Normal:   []float32{1, 0, 0, 1, 0, 0, 1, 0, 0},
		}},
		RenderColor: -1,
	}
	cfg := &Settings{
		Normals: true, Tangents: true, TexCoords: true,
		Morph: true, MorphNormal: true, MorphTangent: true,
		Materials: true,
	}
	res, err := ExtractPrimitives(m, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := res.Primitives[0]
	mt := p.Attr("MORPH_TANGENT_0")
	if mt == nil || mt.Width != 3 {
		t.Fatal("missing morph tangent channel")
	}
	// normal +Z rotates onto +X, carrying the +X tangent to -Z
	want := []float32{-1, 0, -1}
	for k := 0; k < 3; k++ {
		if !near(mt.F32[k], want[k]) {
			t.Error("morph tangent delta", mt.F32[:3], want)
			break
		}
	}
}

func TestMorphTangentSkippedWithoutPrerequisites(t *testing.T) {
	m := &mesh.Mesh{
		Name:         "nomorphtan",
		Position:     []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
		CornerVertex: []uint32{0, 1, 2},
		Normal:       []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Faces:        []mesh.Face{{Start: 0, Count: 3, Material: 0}},
		ShapeKeys: []mesh.ShapeKey{{
			Name:     "Key",
			Position: []float32{0, 0, 1, 1, 0, 1, 1, 1, 1},
			Normal:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		}},
		ActiveUV:    -1, // no UVs, so no tangents
		RenderColor: -1,
	}
	cfg := &Settings{
		Normals: true, Tangents: true, TexCoords: true,
		Morph: true, MorphNormal: true, MorphTangent: true,
		Materials: true,
	}
	res, err := ExtractPrimitives(m, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := res.Primitives[0]
	if p.Attr("MORPH_TANGENT_0") != nil {
		t.Error("morph tangents require tangents")
	}
	if p.Attr("MORPH_NORMAL_0") == nil || p.Attr("MORPH_POSITION_0") == nil {
		t.Error("position and normal morph channels must survive")
	}
}
