// Package gltfutil materializes extracted primitive records into a
// glTF document. Buffer packing and accessor layout are delegated to
// github.com/qmuntal/gltf/modeler; this package only maps records to
// accessors.
package gltfutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/meshkit/gltfexport/exporter"
)

// ToDocument builds a single-mesh document from extracted primitives.
// Material slots referenced by the primitives get placeholder
// materials so the document validates on its own.
func ToDocument(name string, res *exporter.Result) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	gm := &gltf.Mesh{Name: name}
	if len(res.TargetNames) > 0 {
		gm.Extras = map[string]interface{}{"targetNames": res.TargetNames}
	}

	maxMaterial := -1
	for _, p := range res.Primitives {
		if p.Material > maxMaterial {
			maxMaterial = p.Material
		}
	}
	for i := 0; i <= maxMaterial; i++ {
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:                 fmt.Sprintf("material_%d", i),
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
		})
	}

	for _, p := range res.Primitives {
		prim, err := toPrimitive(doc, p)
		if err != nil {
			return nil, fmt.Errorf("mesh %s: %w", name, err)
		}
		gm.Primitives = append(gm.Primitives, prim)
	}

	doc.Meshes = append(doc.Meshes, gm)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc, nil
}

func toPrimitive(doc *gltf.Document, p *exporter.Primitive) (*gltf.Primitive, error) {
	prim := &gltf.Primitive{Attributes: map[string]uint32{}}
	switch p.Mode {
	case exporter.ModeTriangles:
		prim.Mode = gltf.PrimitiveTriangles
	case exporter.ModeLines:
		prim.Mode = gltf.PrimitiveLines
	case exporter.ModePoints:
		prim.Mode = gltf.PrimitivePoints
	}

	targets := map[int]map[string]uint32{}
	maxTarget := -1
	target := func(i int) map[string]uint32 {
		if targets[i] == nil {
			targets[i] = map[string]uint32{}
		}
		if i > maxTarget {
			maxTarget = i
		}
		return targets[i]
	}

	for _, a := range p.Attributes {
		data := &a.Data
		switch {
		case a.Name == "POSITION":
			prim.Attributes[gltf.POSITION] = modeler.WritePosition(doc, vec3s(data.F32))
		case a.Name == "NORMAL":
			prim.Attributes[gltf.NORMAL] = modeler.WriteNormal(doc, vec3s(data.F32))
		case a.Name == "TANGENT":
			prim.Attributes[gltf.TANGENT] = modeler.WriteTangent(doc, vec4s(data.F32))
		case strings.HasPrefix(a.Name, "TEXCOORD_"):
			prim.Attributes[a.Name] = modeler.WriteTextureCoord(doc, vec2s(data.F32))
		case strings.HasPrefix(a.Name, "COLOR_"):
			prim.Attributes[a.Name] = modeler.WriteColor(doc, vec4s(data.F32))
		case strings.HasPrefix(a.Name, "JOINTS_"):
			prim.Attributes[a.Name] = modeler.WriteJoints(doc, joint4s(data.U16))
		case strings.HasPrefix(a.Name, "WEIGHTS_"):
			prim.Attributes[a.Name] = modeler.WriteWeights(doc, vec4s(data.F32))
		case strings.HasPrefix(a.Name, "MORPH_POSITION_"):
			i, err := morphIndex(a.Name, "MORPH_POSITION_")
			if err != nil {
				return nil, err
			}
			target(i)[gltf.POSITION] = modeler.WritePosition(doc, vec3s(data.F32))
		case strings.HasPrefix(a.Name, "MORPH_NORMAL_"):
			i, err := morphIndex(a.Name, "MORPH_NORMAL_")
			if err != nil {
				return nil, err
			}
			target(i)[gltf.NORMAL] = modeler.WriteNormal(doc, vec3s(data.F32))
		case strings.HasPrefix(a.Name, "MORPH_TANGENT_"):
			i, err := morphIndex(a.Name, "MORPH_TANGENT_")
			if err != nil {
				return nil, err
			}
			target(i)[gltf.TANGENT] = modeler.WriteNormal(doc, vec3s(data.F32))
		default:
			acc, ok := writeCustom(doc, data)
			if ok {
				prim.Attributes[a.Name] = acc
			}
		}
	}

	for i := 0; i <= maxTarget; i++ {
		prim.Targets = append(prim.Targets, targets[i])
	}

	if p.Indices != nil {
		prim.Indices = gltf.Index(modeler.WriteIndices(doc, p.Indices))
	}
	if p.Material != exporter.NoMaterial {
		prim.Material = gltf.Index(uint32(p.Material))
	}
	return prim, nil
}

// writeCustom stores a custom attribute as float data; glTF has no
// 32-bit integer vertex attribute format, so integer and bool layers
// are widened to float.
func writeCustom(doc *gltf.Document, data *exporter.ValueArray) (uint32, bool) {
	f := data.F32
	if f == nil {
		f = make([]float32, 0, data.Count()*data.Width)
		switch {
		case data.I32 != nil:
			for _, v := range data.I32 {
				f = append(f, float32(v))
			}
		case data.I8 != nil:
			for _, v := range data.I8 {
				f = append(f, float32(v))
			}
		case data.B != nil:
			for _, v := range data.B {
				if v {
					f = append(f, 1)
				} else {
					f = append(f, 0)
				}
			}
		default:
			return 0, false
		}
	}
	switch data.Width {
	case 1:
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, f), true
	case 2:
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, vec2s(f)), true
	case 3:
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, vec3s(f)), true
	case 4:
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, vec4s(f)), true
	}
	return 0, false
}

func morphIndex(name, prefix string) (int, error) {
	i, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil {
		return 0, fmt.Errorf("bad morph attribute name %q: %w", name, err)
	}
	return i, nil
}

func vec2s(f []float32) [][2]float32 {
	out := make([][2]float32, len(f)/2)
	for i := range out {
		out[i] = [2]float32{f[i*2], f[i*2+1]}
	}
	return out
}

func vec3s(f []float32) [][3]float32 {
	out := make([][3]float32, len(f)/3)
	for i := range out {
		out[i] = [3]float32{f[i*3], f[i*3+1], f[i*3+2]}
	}
	return out
}

func vec4s(f []float32) [][4]float32 {
	out := make([][4]float32, len(f)/4)
	for i := range out {
		out[i] = [4]float32{f[i*4], f[i*4+1], f[i*4+2], f[i*4+3]}
	}
	return out
}

func joint4s(u []uint16) [][4]uint16 {
	out := make([][4]uint16, len(u)/4)
	for i := range out {
		out[i] = [4]uint16{u[i*4], u[i*4+1], u[i*4+2], u[i*4+3]}
	}
	return out
}
