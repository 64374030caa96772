package exporter

import (
	"fmt"
	"sort"

	"github.com/meshkit/gltfexport/mesh"
)

// Influences below this weight are dropped.
const minInfluence = 1e-4

type boneWeight struct {
	joint  int
	weight float32
}

// skinData is the resolved bone binding of one mesh: sorted
// (joint, weight) lists per vertex, the number of 4-wide channel
// pairs needed, and whether a synthetic neutral joint is required.
type skinData struct {
	vertBones   [][]boneWeight
	jointSets   int
	needNeutral bool
}

// resolveBones maps each vertex's group weights to joint indices via
// the skin's joint-name list, sorted by descending influence. A
// vertex with no resolvable weight is bound to a joint one past the
// current joint count; the caller injects that neutral joint into the
// skin later.
func resolveBones(m *mesh.Mesh, arm *mesh.Armature) *skinData {
	jointByName := make(map[string]int, len(arm.Joints))
	for i, name := range arm.Joints {
		jointByName[name] = i
	}
	groupJoint := make([]int, len(m.GroupNames))
	for i, name := range m.GroupNames {
		if j, ok := jointByName[name]; ok {
			groupJoint[i] = j
		} else {
			groupJoint[i] = -1
		}
	}

	sd := &skinData{vertBones: make([][]boneWeight, m.VertexCount())}
	maxInfluences := 0

	for v := range sd.vertBones {
		var bones []boneWeight
		if v < len(m.Groups) {
			for _, gw := range m.Groups[v] {
				if gw.Weight <= minInfluence {
					continue
				}
				if gw.Group < 0 || gw.Group >= len(groupJoint) {
					continue
				}
				joint := groupJoint[gw.Group]
				if joint < 0 {
					continue
				}
				bones = append(bones, boneWeight{joint: joint, weight: gw.Weight})
			}
		}
		sort.SliceStable(bones, func(i, j int) bool {
			return bones[i].weight > bones[j].weight
		})
		if len(bones) == 0 {
			// Not assigned to any bone: bind to the neutral joint
			// that will be appended to the skin.
			bones = []boneWeight{{joint: len(arm.Joints), weight: 1}}
			sd.needNeutral = true
		}
		sd.vertBones[v] = bones
		if len(bones) > maxInfluences {
			maxInfluences = len(bones)
		}
	}

	// 1 set = 4 influences
	sd.jointSets = (maxInfluences + 3) / 4
	return sd
}

// appendSkinChannels emits JOINTS_k/WEIGHTS_k attribute pairs for the
// given output vertices, padding each vertex's binding list with
// (0, 0.0) up to 4 influences per set.
func (sd *skinData) appendSkinChannels(p *Primitive, vertIdx []uint32) {
	for set := 0; set < sd.jointSets; set++ {
		joints := make([]uint16, 0, len(vertIdx)*4)
		weights := make([]float32, 0, len(vertIdx)*4)
		for _, vi := range vertIdx {
			bones := sd.vertBones[vi]
			for j := set * 4; j < set*4+4; j++ {
				if j < len(bones) {
					joints = append(joints, uint16(bones[j].joint))
					weights = append(weights, bones[j].weight)
				} else {
					joints = append(joints, 0)
					weights = append(weights, 0)
				}
			}
		}
		p.Attributes = append(p.Attributes,
			AttributeData{Name: fmt.Sprintf("JOINTS_%d", set), Data: ValueArray{Width: 4, U16: joints}},
			AttributeData{Name: fmt.Sprintf("WEIGHTS_%d", set), Data: ValueArray{Width: 4, F32: weights}},
		)
	}
}
