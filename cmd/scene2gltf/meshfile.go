package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/meshkit/gltfexport/geom"
	"github.com/meshkit/gltfexport/mesh"
)

// meshFile is a YAML description of one mesh snapshot, mostly a
// one-to-one mapping onto mesh.Mesh. Arrays are flat, in the same
// element order as the snapshot fields.
type meshFile struct {
	Name          string    `yaml:"name"`
	Positions     []float32 `yaml:"positions"`
	Corners       []uint32  `yaml:"corners"`
	Normals       []float32 `yaml:"normals"`
	Tangents      []float32 `yaml:"tangents"`
	BitangentSign []float32 `yaml:"bitangent_signs"`

	Faces []struct {
		Start    int `yaml:"start"`
		Count    int `yaml:"count"`
		Material int `yaml:"material"`
	} `yaml:"faces"`
	Edges [][2]uint32 `yaml:"edges"`

	UVs []struct {
		Name string    `yaml:"name"`
		Data []float32 `yaml:"data"`
	} `yaml:"uvs"`
	ActiveUV *int `yaml:"active_uv"`

	Colors []struct {
		Name string    `yaml:"name"`
		Data []float32 `yaml:"data"`
	} `yaml:"colors"`
	RenderColor *int `yaml:"render_color"`

	GroupNames []string `yaml:"group_names"`
	Weights    []map[int]float32 `yaml:"weights"` // per vertex: group -> weight

	ShapeKeys []struct {
		Name      string    `yaml:"name"`
		Mute      bool      `yaml:"mute"`
		Positions []float32 `yaml:"positions"`
		Normals   []float32 `yaml:"normals"`
	} `yaml:"shape_keys"`

	Matrix []float32 `yaml:"matrix"` // 16 values, column-major

	Armature *struct {
		Joints            []string  `yaml:"joints"`
		Matrix            []float32 `yaml:"matrix"`
		ParentedToOwnBone bool      `yaml:"parented_to_own_bone"`
	} `yaml:"armature"`
}

func loadMeshFile(path string) (*mesh.Mesh, *mesh.Armature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var f meshFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(f.Positions)%3 != 0 {
		return nil, nil, fmt.Errorf("%s: positions length %d is not a multiple of 3", path, len(f.Positions))
	}

	m := &mesh.Mesh{
		Name:          f.Name,
		CornerVertex:  f.Corners,
		Position:      f.Positions,
		Normal:        f.Normals,
		Tangent:       f.Tangents,
		BitangentSign: f.BitangentSign,
		Edges:         f.Edges,
		GroupNames:    f.GroupNames,
		ActiveUV:      -1,
		RenderColor:   -1,
	}
	if f.ActiveUV != nil {
		m.ActiveUV = *f.ActiveUV
	}
	if f.RenderColor != nil {
		m.RenderColor = *f.RenderColor
	}
	for _, fc := range f.Faces {
		m.Faces = append(m.Faces, mesh.Face{Start: fc.Start, Count: fc.Count, Material: fc.Material})
	}
	for _, uv := range f.UVs {
		m.UVLayers = append(m.UVLayers, mesh.UVLayer{Name: uv.Name, UV: uv.Data})
	}
	for _, c := range f.Colors {
		m.ColorLayers = append(m.ColorLayers, mesh.ColorLayer{Name: c.Name, Color: c.Data})
	}
	for _, w := range f.Weights {
		var groups []mesh.GroupWeight
		for g, weight := range w {
			groups = append(groups, mesh.GroupWeight{Group: g, Weight: weight})
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })
		m.Groups = append(m.Groups, groups)
	}
	for _, k := range f.ShapeKeys {
		m.ShapeKeys = append(m.ShapeKeys, mesh.ShapeKey{
			Name: k.Name, Mute: k.Mute, Position: k.Positions, Normal: k.Normals,
		})
	}
	if len(f.Matrix) == 16 {
		m.Matrix = geom.NewMatrix4FromSlice(f.Matrix)
	}

	var arm *mesh.Armature
	if f.Armature != nil {
		arm = &mesh.Armature{
			Joints:            f.Armature.Joints,
			ParentedToOwnBone: f.Armature.ParentedToOwnBone,
		}
		if len(f.Armature.Matrix) == 16 {
			arm.Matrix = geom.NewMatrix4FromSlice(f.Armature.Matrix)
		}
	}
	return m, arm, nil
}
