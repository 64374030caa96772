package exporter

import (
	"testing"

	"github.com/meshkit/gltfexport/mesh"
)

func TestResolveBonesSortsByInfluence(t *testing.T) {
	m := &mesh.Mesh{
		Position:   []float32{0, 0, 0},
		GroupNames: []string{"A", "B", "C"},
		Groups: [][]mesh.GroupWeight{
			{{Group: 0, Weight: 0.2}, {Group: 1, Weight: 0.5}, {Group: 2, Weight: 0.3}},
		},
	}
	arm := &mesh.Armature{Joints: []string{"A", "B", "C"}}
	sd := resolveBones(m, arm)
	bones := sd.vertBones[0]
	if len(bones) != 3 {
		t.Fatal("influence count", len(bones))
	}
	want := []boneWeight{{1, 0.5}, {2, 0.3}, {0, 0.2}}
	for i, b := range bones {
		if b != want[i] {
			t.Error("order", i, b, want[i])
		}
	}
	if sd.needNeutral || sd.jointSets != 1 {
		t.Error("flags", sd.needNeutral, sd.jointSets)
	}
}

func TestResolveBonesDropsUnusable(t *testing.T) {
	m := &mesh.Mesh{
		Position:   []float32{0, 0, 0},
		GroupNames: []string{"A", "NotAJoint"},
		Groups: [][]mesh.GroupWeight{
			{
				{Group: 0, Weight: 0.00005}, // below threshold
				{Group: 1, Weight: 0.9},     // group resolves to no joint
				{Group: 7, Weight: 0.9},     // out of range
			},
		},
	}
	arm := &mesh.Armature{Joints: []string{"A"}}
	sd := resolveBones(m, arm)
	if !sd.needNeutral {
		t.Error("all influences unusable, neutral joint required")
	}
	bones := sd.vertBones[0]
	if len(bones) != 1 || bones[0].joint != 1 || bones[0].weight != 1 {
		t.Error("neutral binding", bones)
	}
}

func TestFiveInfluencesSplitIntoTwoSets(t *testing.T) {
	m := &mesh.Mesh{
		Position:   []float32{0, 0, 0},
		GroupNames: []string{"A", "B", "C", "D", "E"},
		Groups: [][]mesh.GroupWeight{
			{
				{Group: 0, Weight: 0.5}, {Group: 1, Weight: 0.4},
				{Group: 2, Weight: 0.3}, {Group: 3, Weight: 0.2},
				{Group: 4, Weight: 0.1},
			},
		},
	}
	arm := &mesh.Armature{Joints: []string{"A", "B", "C", "D", "E"}}
	sd := resolveBones(m, arm)
	if sd.jointSets != 2 {
		t.Fatal("five influences need two sets, got", sd.jointSets)
	}

	p := &Primitive{}
	sd.appendSkinChannels(p, []uint32{0})
	j0, w0 := p.Attr("JOINTS_0"), p.Attr("WEIGHTS_0")
	j1, w1 := p.Attr("JOINTS_1"), p.Attr("WEIGHTS_1")
	if j0 == nil || w0 == nil || j1 == nil || w1 == nil {
		t.Fatal("missing channel pair")
	}
	wantJ0 := []uint16{0, 1, 2, 3}
	for i, j := range j0.U16 {
		if j != wantJ0[i] {
			t.Error("set 0 joints", j0.U16)
			break
		}
	}
	if j1.U16[0] != 4 || j1.U16[1] != 0 {
		t.Error("set 1 joints", j1.U16)
	}
	if w1.F32[0] != 0.1 || w1.F32[1] != 0 {
		t.Error("set 1 weights padded with zero", w1.F32)
	}
}

func skinnedTriangle() (*mesh.Mesh, *mesh.Armature) {
	m := &mesh.Mesh{
		Name:         "skinned",
		Position:     []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
		CornerVertex: []uint32{0, 1, 2},
		Faces:        []mesh.Face{{Start: 0, Count: 3, Material: 0}},
		GroupNames:   []string{"Bone"},
		Groups: [][]mesh.GroupWeight{
			{{Group: 0, Weight: 1}},
			{{Group: 0, Weight: 0.5}},
			nil, // unweighted
		},
		ActiveUV:    -1,
		RenderColor: -1,
	}
	arm := &mesh.Armature{Joints: []string{"Bone"}}
	return m, arm
}

func TestSkinChannelsAndNeutralJoint(t *testing.T) {
	m, arm := skinnedTriangle()
	cfg := baseSettings()
	cfg.Skins = true
	res, err := ExtractPrimitives(m, arm, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedNeutralJoint {
		t.Error("unweighted vertex must request the neutral joint")
	}
	if res.JointSets != 1 {
		t.Error("joint sets", res.JointSets)
	}
	p := res.Primitives[0]
	joints, weights := p.Attr("JOINTS_0"), p.Attr("WEIGHTS_0")
	if joints == nil || weights == nil {
		t.Fatal("missing skin channels")
	}
	// vertex 2 is bound to the synthetic joint one past the skin
	if joints.U16[2*4] != 1 || weights.F32[2*4] != 1 {
		t.Error("neutral binding of vertex 2", joints.U16[8:12], weights.F32[8:12])
	}
	if joints.U16[0] != 0 || weights.F32[0] != 1 {
		t.Error("binding of vertex 0", joints.U16[:4], weights.F32[:4])
	}
}

func TestFullyWeightedNeedsNoNeutralJoint(t *testing.T) {
	m, arm := skinnedTriangle()
	m.Groups[2] = []mesh.GroupWeight{{Group: 0, Weight: 1}}
	cfg := baseSettings()
	cfg.Skins = true
	res, err := ExtractPrimitives(m, arm, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.NeedNeutralJoint {
		t.Error("every vertex is weighted, no neutral joint expected")
	}
}

func TestBoneParentedMeshSkipsSkin(t *testing.T) {
	m, arm := skinnedTriangle()
	arm.ParentedToOwnBone = true
	cfg := baseSettings()
	cfg.Skins = true
	res, err := ExtractPrimitives(m, arm, cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := res.Primitives[0]
	if p.Attr("JOINTS_0") != nil || res.JointSets != 0 {
		t.Error("bone-parented mesh must not be skinned")
	}
}

func TestSkinChannelsOnLoosePoints(t *testing.T) {
	m, arm := skinnedTriangle()
	m.Position = append(m.Position, 5, 5, 5) // vertex 3: loose, unweighted
	cfg := baseSettings()
	cfg.Skins = true
	res, err := ExtractPrimitives(m, arm, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var points *Primitive
	for _, p := range res.Primitives {
		if p.Mode == ModePoints {
			points = p
		}
	}
	if points == nil {
		t.Fatal("missing points primitive")
	}
	joints := points.Attr("JOINTS_0")
	if joints == nil || joints.U16[0] != 1 {
		t.Error("loose point should carry the neutral binding", joints)
	}
}
