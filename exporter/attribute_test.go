package exporter

import (
	"testing"

	"github.com/meshkit/gltfexport/mesh"
)

func TestCustomAttributeName(t *testing.T) {
	if got := customAttributeName("wear"); got != "_WEAR" {
		t.Error(got)
	}
	// a layer named like a reserved channel stays out of its way
	if got := customAttributeName("NORMAL"); got != "_NORMAL" {
		t.Error(got)
	}
}

func TestAttributeOrder(t *testing.T) {
	m := &mesh.Mesh{
		Name:          "full",
		Position:      []float32{0, 0, 0},
		CornerVertex:  []uint32{0},
		Normal:        []float32{0, 0, 1},
		Tangent:       []float32{1, 0, 0},
		BitangentSign: []float32{1},
		UVLayers: []mesh.UVLayer{
			{Name: "UVMap", UV: []float32{0, 0}},
			{Name: "Detail", UV: []float32{0, 0}},
		},
		ActiveUV: 0,
		ColorLayers: []mesh.ColorLayer{
			{Name: "Col", Color: []float32{1, 1, 1, 1}},
			{Name: "Aux", Color: []float32{0, 0, 0, 1}},
		},
		RenderColor: 0,
		ShapeKeys: []mesh.ShapeKey{{
			Name:     "Key",
			Position: []float32{0, 0, 0},
			Normal:   []float32{0, 0, 1},
		}},
		Attributes: []mesh.Attribute{
			{Name: "wear", Domain: mesh.DomainPoint, Kind: mesh.KindFloat, Float: []float32{0}},
		},
	}
	specs, _ := buildAttributes(m, DefaultSettings())
	want := []string{
		"POSITION",
		"TEXCOORD_0", "TEXCOORD_1",
		"NORMAL", "TANGENT",
		"MORPH_POSITION_0", "MORPH_NORMAL_0", "MORPH_TANGENT_0",
		"COLOR_0", "_AUX",
		"_WEAR",
	}
	if len(specs) != len(want) {
		t.Fatalf("spec count %d, want %d", len(specs), len(want))
	}
	for i, spec := range specs {
		if spec.name != want[i] {
			t.Error("slot", i, spec.name, want[i])
		}
	}
}

func TestPositionChannelsSkipDedup(t *testing.T) {
	m := &mesh.Mesh{
		Position:     []float32{0, 0, 0},
		CornerVertex: []uint32{0},
		ShapeKeys:    []mesh.ShapeKey{{Name: "Key", Position: []float32{0, 0, 0}}},
		ActiveUV:     -1,
		RenderColor:  -1,
	}
	cfg := &Settings{Morph: true, Materials: true}
	specs, _ := buildAttributes(m, cfg)
	for _, spec := range specs {
		switch spec.src {
		case srcPosition, srcMorphPosition:
			if !spec.skipDedup || !spec.forEdge || !spec.forPoint {
				t.Error(spec.name, "must bypass dedup and apply to loose geometry")
			}
		default:
			if spec.skipDedup {
				t.Error(spec.name, "unexpected dedup bypass")
			}
		}
	}
}

func TestTangentsRequireNormals(t *testing.T) {
	m := &mesh.Mesh{
		Position:      []float32{0, 0, 0},
		CornerVertex:  []uint32{0},
		Normal:        []float32{0, 0, 1},
		Tangent:       []float32{1, 0, 0},
		BitangentSign: []float32{1},
		UVLayers:      []mesh.UVLayer{{Name: "UVMap", UV: []float32{0, 0}}},
		ActiveUV:      0,
		RenderColor:   -1,
	}
	cfg := &Settings{Tangents: true, TexCoords: true, Materials: true}
	_, feat := buildAttributes(m, cfg)
	if feat.tangents {
		t.Error("tangents without normals must be disabled")
	}
}

func TestSelfRelativeKeysExcluded(t *testing.T) {
	m := &mesh.Mesh{
		Position:     []float32{0, 0, 0},
		CornerVertex: []uint32{0},
		ShapeKeys: []mesh.ShapeKey{
			{Name: "Rel", SelfRelative: true, Position: []float32{0, 0, 0}},
			{Name: "Key", Position: []float32{0, 0, 0}},
		},
		ActiveUV:    -1,
		RenderColor: -1,
	}
	cfg := &Settings{Morph: true, Materials: true}
	_, feat := buildAttributes(m, cfg)
	if len(feat.keys) != 1 || feat.keys[0] != 1 {
		t.Error("self-relative key must be excluded", feat.keys)
	}
}
