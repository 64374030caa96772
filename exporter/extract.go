package exporter

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/meshkit/gltfexport/geom"
	"github.com/meshkit/gltfexport/mesh"
)

// streams holds the attribute sources after coordinate conversion and
// skinning-space re-projection. Positions and morph deltas are per
// vertex; normals, morph normal deltas and tangents are per corner.
type streams struct {
	positions    []float32   // 3 per vertex
	morphPos     [][]float32 // deltas, 3 per vertex
	normals      []float32   // 3 per corner
	morphNormals [][]float32 // deltas, 3 per corner
	tangents     []float32   // 4 per corner: xyz + bitangent sign
}

// ExtractPrimitives reduces a mesh snapshot to glTF primitive
// records. Per-corner attribute streams are collapsed into composite
// corner records, deduplicated into per-vertex arrays and bucketed by
// material; loose edges and loose points become line and point
// primitives. The input snapshots are never modified.
func ExtractPrimitives(m *mesh.Mesh, arm *mesh.Armature, cfg *Settings) (*Result, error) {
	if m == nil {
		return nil, errors.New("exporter: nil mesh")
	}
	if cfg == nil {
		cfg = DefaultSettings()
	}
	log := cfg.logger()
	log.Info("extracting primitives", zap.String("mesh", m.Name))

	var sd *skinData
	skinArm := arm
	if !cfg.Skins || arm == nil || len(m.GroupNames) == 0 {
		skinArm = nil
	} else if arm.ParentedToOwnBone {
		// Binding the mesh to the armature it is bone-parented to
		// would create a self-referential cycle.
		log.Warn("mesh is parented to a bone of its own armature, skinning disabled",
			zap.String("mesh", m.Name))
		skinArm = nil
	}
	if skinArm != nil {
		sd = resolveBones(m, skinArm)
	}

	specs, feat := buildAttributes(m, cfg)
	st := buildStreams(m, skinArm, feat, cfg)

	dots, layout := fillDots(m, specs, st, log)

	tris, triMat := triangulateFaces(m, st.positions)

	buckets := map[int][]uint32{}
	if !cfg.Materials {
		buckets[NoMaterial] = tris
	} else {
		for t := 0; t*3 < len(tris); t++ {
			mat := triMat[t]
			buckets[mat] = append(buckets[mat], tris[t*3], tris[t*3+1], tris[t*3+2])
		}
	}
	order := make([]int, 0, len(buckets))
	for mat := range buckets {
		order = append(order, mat)
	}
	sort.Ints(order)
	// no-material sentinel sorts last, not first
	if len(order) > 0 && order[0] == NoMaterial {
		order = append(order[1:], NoMaterial)
	}

	res := &Result{}
	for _, ki := range feat.keys {
		res.TargetNames = append(res.TargetNames, m.ShapeKeys[ki].Name)
	}
	for _, mat := range order {
		p := assemblePrimitive(m, specs, st, dots, layout, buckets[mat], mat, sd, log)
		if p != nil {
			res.Primitives = append(res.Primitives, p)
		}
	}

	if cfg.LooseEdges {
		if p := assembleLooseEdges(m, specs, st, sd); p != nil {
			res.Primitives = append(res.Primitives, p)
		}
	}
	if cfg.LoosePoints {
		if p := assembleLoosePoints(m, specs, st, sd); p != nil {
			res.Primitives = append(res.Primitives, p)
		}
	}

	if sd != nil {
		res.NeedNeutralJoint = sd.needNeutral
		res.JointSets = sd.jointSets
	}
	log.Info("primitives created",
		zap.String("mesh", m.Name), zap.Int("count", len(res.Primitives)))
	return res, nil
}

// rotationOf extracts the rotation part of an affine transform.
func rotationOf(m *geom.Matrix4) *geom.Matrix3 {
	q := mgl32.Mat4ToQuat(mgl32.Mat4(*m)).Normalize()
	r := q.Mat4()
	return &geom.Matrix3{r[0], r[1], r[2], r[4], r[5], r[6], r[8], r[9], r[10]}
}

// buildStreams copies the raw streams and brings them into the output
// convention: skinning-space re-projection when an armature applies,
// morphs reduced to deltas, axes converted to Y-up.
func buildStreams(m *mesh.Mesh, arm *mesh.Armature, feat features, cfg *Settings) *streams {
	st := &streams{}

	st.positions = append([]float32(nil), m.Position...)
	for _, ki := range feat.keys {
		st.morphPos = append(st.morphPos, append([]float32(nil), m.ShapeKeys[ki].Position...))
	}
	if arm != nil {
		loc := m.WorldMatrix()
		geom.ApplyMatrix4Batch(loc, st.positions)
		for _, vs := range st.morphPos {
			geom.ApplyMatrix4Batch(loc, vs)
		}
	}
	// glTF stores deltas in morph targets
	for _, vs := range st.morphPos {
		geom.SubBatch(vs, st.positions)
	}
	if cfg.YUp {
		geom.ZUpToYUp(st.positions)
		for _, vs := range st.morphPos {
			geom.ZUpToYUp(vs)
		}
	}

	if feat.normals {
		st.normals = append([]float32(nil), m.Normal...)
		if feat.morphNormals {
			for _, ki := range feat.keys {
				st.morphNormals = append(st.morphNormals, append([]float32(nil), m.ShapeKeys[ki].Normal...))
			}
		}
		if arm != nil {
			// Normals transform by the inverse transpose of the
			// object-to-armature map, expressed in armature space.
			apply := arm.WorldMatrix().Inverse().Mul(m.WorldMatrix()).To3x3().Inverse().Transposed()
			normalMat := arm.WorldMatrix().To3x3().Mul(apply)
			geom.ApplyMatrix3Batch(normalMat, st.normals)
			geom.NormalizeBatch(st.normals)
			for _, ns := range st.morphNormals {
				geom.ApplyMatrix3Batch(normalMat, ns)
				geom.NormalizeBatch(ns)
			}
		}
		fixZeroNormals(st.normals)
		for _, ns := range st.morphNormals {
			fixZeroNormals(ns)
		}
		for _, ns := range st.morphNormals {
			geom.SubBatch(ns, st.normals)
		}
		if cfg.YUp {
			geom.ZUpToYUp(st.normals)
			for _, ns := range st.morphNormals {
				geom.ZUpToYUp(ns)
			}
		}
	}

	if feat.tangents {
		tan := append([]float32(nil), m.Tangent...)
		signs := append([]float32(nil), m.BitangentSign...)
		if arm != nil {
			apply := arm.WorldMatrix().Inverse().Mul(m.WorldMatrix())
			geom.ApplyMatrix3Batch(rotationOf(apply), tan)
			geom.NormalizeBatch(tan)
			if apply.To3x3().Det() < 0 {
				// handedness flip
				for i := range signs {
					signs[i] = -signs[i]
				}
			}
		}
		if cfg.YUp {
			geom.ZUpToYUp(tan)
		}
		st.tangents = make([]float32, 0, len(signs)*4)
		for i := range signs {
			st.tangents = append(st.tangents, tan[i*3], tan[i*3+1], tan[i*3+2], signs[i])
		}
	}

	return st
}

// fixZeroNormals replaces zero-length normals with the unit up
// vector. Happens with degenerate triangles.
func fixZeroNormals(ns []float32) {
	for i := 0; i+2 < len(ns); i += 3 {
		if ns[i] == 0 && ns[i+1] == 0 && ns[i+2] == 0 {
			ns[i+2] = 1
		}
	}
}

// dotLayout describes the fixed byte layout of one corner record:
// a u32 source vertex index followed by every attribute not flagged
// skipDedup, at the recorded offsets.
type dotLayout struct {
	stride  int
	offsets []int // parallel to the spec list; -1 when not in the record
}

// fillDots builds one composite record per corner. Two corners whose
// records are byte-identical collapse to one output vertex.
func fillDots(m *mesh.Mesh, specs []attrSpec, st *streams, log *zap.Logger) ([]byte, dotLayout) {
	layout := dotLayout{stride: 4, offsets: make([]int, len(specs))}
	for i, spec := range specs {
		if spec.skipDedup {
			layout.offsets[i] = -1
			continue
		}
		layout.offsets[i] = layout.stride
		layout.stride += spec.size
	}

	corners := m.CornerCount()
	dots := make([]byte, layout.stride*corners)
	for c := 0; c < corners; c++ {
		binary.LittleEndian.PutUint32(dots[c*layout.stride:], m.CornerVertex[c])
	}

	for i, spec := range specs {
		off := layout.offsets[i]
		if off < 0 {
			continue
		}
		switch spec.src {
		case srcTexCoord:
			uv := append([]float32(nil), m.UVLayers[spec.layer].UV...)
			geom.FlipV(uv)
			putFloats(dots, layout.stride, off, uv, 2)
		case srcNormal:
			putFloats(dots, layout.stride, off, st.normals, 3)
		case srcMorphNormal:
			putFloats(dots, layout.stride, off, st.morphNormals[spec.morph], 3)
		case srcTangent:
			putFloats(dots, layout.stride, off, st.tangents, 4)
		case srcColor:
			putFloats(dots, layout.stride, off, m.ColorLayers[spec.layer].Color, 4)
		case srcCustom:
			fillCustom(m, &m.Attributes[spec.layer], spec, dots, layout.stride, off)
		}
	}
	return dots, layout
}

// putFloats writes a per-corner float stream into the record slice at
// the given offset, width components per corner.
func putFloats(dots []byte, stride, off int, vals []float32, width int) {
	n := len(vals) / width
	for c := 0; c < n; c++ {
		base := c*stride + off
		for k := 0; k < width; k++ {
			binary.LittleEndian.PutUint32(dots[base+k*4:], math.Float32bits(vals[c*width+k]))
		}
	}
}

// fillCustom dispatches a custom attribute layer into the corner
// records by its domain: corner values copy through, vertex values
// gather through the corner map, face values broadcast to the face's
// corners. Edge-domain layers were already rejected by the registry.
func fillCustom(m *mesh.Mesh, attr *mesh.Attribute, spec attrSpec, dots []byte, stride, off int) {
	switch spec.domain {
	case mesh.DomainCorner:
		for c := 0; c < m.CornerCount(); c++ {
			encodeElement(dots[c*stride+off:], attr, c, spec)
		}
	case mesh.DomainPoint:
		for c := 0; c < m.CornerCount(); c++ {
			encodeElement(dots[c*stride+off:], attr, int(m.CornerVertex[c]), spec)
		}
	case mesh.DomainFace:
		for fi, f := range m.Faces {
			for c := f.Start; c < f.Start+f.Count; c++ {
				encodeElement(dots[c*stride+off:], attr, fi, spec)
			}
		}
	}
}

func encodeElement(dst []byte, attr *mesh.Attribute, elem int, spec attrSpec) {
	switch spec.kind {
	case mesh.KindFloat, mesh.KindFloat2, mesh.KindFloat3, mesh.KindFloat4:
		for k := 0; k < spec.width; k++ {
			binary.LittleEndian.PutUint32(dst[k*4:], math.Float32bits(attr.Float[elem*spec.width+k]))
		}
	case mesh.KindInt:
		binary.LittleEndian.PutUint32(dst, uint32(attr.Int[elem]))
	case mesh.KindInt8:
		dst[0] = byte(attr.Int8[elem])
	case mesh.KindBool:
		if attr.Bool[elem] {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	}
}

// triangulateFaces flattens the faces into a corner-index triangle
// list with the per-triangle material. Quads split along the 0-2
// diagonal; larger n-gons go through ear clipping.
func triangulateFaces(m *mesh.Mesh, positions []float32) ([]uint32, []int) {
	var tris []uint32
	var mats []int
	for _, f := range m.Faces {
		switch {
		case f.Count < 3:
			continue
		case f.Count == 3:
			tris = append(tris, uint32(f.Start), uint32(f.Start+1), uint32(f.Start+2))
			mats = append(mats, f.Material)
		case f.Count == 4:
			tris = append(tris,
				uint32(f.Start), uint32(f.Start+1), uint32(f.Start+2),
				uint32(f.Start), uint32(f.Start+2), uint32(f.Start+3))
			mats = append(mats, f.Material, f.Material)
		default:
			poly := make([]*geom.Vector3, f.Count)
			for i := 0; i < f.Count; i++ {
				v := m.CornerVertex[f.Start+i]
				poly[i] = geom.NewVector3FromSlice(positions[v*3 : v*3+3])
			}
			for _, t := range geom.Triangulate(poly) {
				tris = append(tris,
					uint32(f.Start+t[0]), uint32(f.Start+t[1]), uint32(f.Start+t[2]))
				mats = append(mats, f.Material)
			}
		}
	}
	return tris, mats
}

// assemblePrimitive deduplicates the bucket's corner records in
// first-occurrence order and materializes every attribute into flat
// arrays aligned to the unique records. The inverse mapping from
// corner position to unique record is the glTF index buffer. Empty
// buckets produce nil.
func assemblePrimitive(m *mesh.Mesh, specs []attrSpec, st *streams, dots []byte,
	layout dotLayout, corners []uint32, material int, sd *skinData, log *zap.Logger) *Primitive {

	seen := make(map[string]uint32, len(corners))
	var uniqueCorner []uint32 // first-occurrence corner per unique record
	var vertIdx []uint32      // source vertex per unique record
	indices := make([]uint32, len(corners))
	for i, c := range corners {
		key := string(dots[int(c)*layout.stride : (int(c)+1)*layout.stride])
		u, ok := seen[key]
		if !ok {
			u = uint32(len(uniqueCorner))
			seen[key] = u
			uniqueCorner = append(uniqueCorner, c)
			vertIdx = append(vertIdx, m.CornerVertex[c])
		}
		indices[i] = u
	}
	if len(uniqueCorner) == 0 {
		return nil
	}

	p := &Primitive{Indices: indices, Material: material, Mode: ModeTriangles}
	materializeBase(p, specs, st, dots, layout, uniqueCorner, vertIdx)
	materializeDeferred(p, specs, log)
	if sd != nil {
		sd.appendSkinChannels(p, vertIdx)
	}
	return p
}

// materializeBase fills every non-deferred attribute: skipDedup
// attributes gather per-vertex data through the unique records'
// vertex indices, everything else decodes back out of the records.
func materializeBase(p *Primitive, specs []attrSpec, st *streams, dots []byte,
	layout dotLayout, uniqueCorner, vertIdx []uint32) {

	for i, spec := range specs {
		if spec.afterOthers {
			continue
		}
		var data ValueArray
		switch {
		case spec.src == srcPosition:
			data = ValueArray{Width: 3, F32: gatherFloats(st.positions, vertIdx, 3)}
		case spec.src == srcMorphPosition:
			data = ValueArray{Width: 3, F32: gatherFloats(st.morphPos[spec.morph], vertIdx, 3)}
		default:
			data = decodeSpec(dots, layout.stride, layout.offsets[i], uniqueCorner, spec)
		}
		p.Attributes = append(p.Attributes, AttributeData{Name: spec.name, Data: data})
	}
}

// materializeDeferred runs the second pass for attributes that read
// already-materialized arrays (morph tangents).
func materializeDeferred(p *Primitive, specs []attrSpec, log *zap.Logger) {
	for _, spec := range specs {
		if !spec.afterOthers || spec.src != srcMorphTangent {
			continue
		}
		normals := p.Attr("NORMAL")
		morphNormals := p.Attr(morphNormalName(spec.morph))
		tangents := p.Attr("TANGENT")
		if normals == nil || morphNormals == nil || tangents == nil {
			log.Warn("morph tangent prerequisites missing, skipping", zap.String("attribute", spec.name))
			continue
		}
		deltas := calcMorphTangentDeltas(normals.F32, morphNormals.F32, tangents.F32)
		p.Attributes = append(p.Attributes, AttributeData{
			Name: spec.name, Data: ValueArray{Width: 3, F32: deltas}})
	}
}

func gatherFloats(src []float32, idx []uint32, width int) []float32 {
	out := make([]float32, 0, len(idx)*width)
	for _, i := range idx {
		out = append(out, src[int(i)*width:int(i)*width+width]...)
	}
	return out
}

// decodeSpec reads an attribute back out of the corner records at the
// given unique corners.
func decodeSpec(dots []byte, stride, off int, corners []uint32, spec attrSpec) ValueArray {
	n := len(corners)
	switch spec.kind {
	case mesh.KindFloat, mesh.KindFloat2, mesh.KindFloat3, mesh.KindFloat4:
		out := make([]float32, 0, n*spec.width)
		for _, c := range corners {
			base := int(c)*stride + off
			for k := 0; k < spec.width; k++ {
				out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(dots[base+k*4:])))
			}
		}
		return ValueArray{Width: spec.width, F32: out}
	case mesh.KindInt:
		out := make([]int32, 0, n)
		for _, c := range corners {
			out = append(out, int32(binary.LittleEndian.Uint32(dots[int(c)*stride+off:])))
		}
		return ValueArray{Width: 1, I32: out}
	case mesh.KindInt8:
		out := make([]int8, 0, n)
		for _, c := range corners {
			out = append(out, int8(dots[int(c)*stride+off]))
		}
		return ValueArray{Width: 1, I8: out}
	case mesh.KindBool:
		out := make([]bool, 0, n)
		for _, c := range corners {
			out = append(out, dots[int(c)*stride+off] != 0)
		}
		return ValueArray{Width: 1, B: out}
	}
	return ValueArray{}
}

// assembleLooseEdges exports edges adjoining no face as a single LINES
// primitive over the deduplicated referenced vertices. Only
// edge-eligible attributes apply.
func assembleLooseEdges(m *mesh.Mesh, specs []attrSpec, st *streams, sd *skinData) *Primitive {
	faceEdges := map[uint64]bool{}
	for _, f := range m.Faces {
		for i := 0; i < f.Count; i++ {
			a := m.CornerVertex[f.Start+i]
			b := m.CornerVertex[f.Start+(i+1)%f.Count]
			faceEdges[edgeKey(a, b)] = true
		}
	}

	var vertIdx []uint32
	var indices []uint32
	remap := map[uint32]uint32{}
	for _, e := range m.Edges {
		if faceEdges[edgeKey(e[0], e[1])] {
			continue
		}
		for _, v := range e {
			u, ok := remap[v]
			if !ok {
				u = uint32(len(vertIdx))
				remap[v] = u
				vertIdx = append(vertIdx, v)
			}
			indices = append(indices, u)
		}
	}
	if len(indices) == 0 {
		return nil
	}

	p := &Primitive{Indices: indices, Material: NoMaterial, Mode: ModeLines}
	materializePerVertex(p, specs, st, vertIdx, func(s attrSpec) bool { return s.forEdge })
	if sd != nil {
		sd.appendSkinChannels(p, vertIdx)
	}
	return p
}

// assembleLoosePoints exports vertices touching no edge as a single
// POINTS primitive. Source vertices are already unique, so there is
// no index buffer.
func assembleLoosePoints(m *mesh.Mesh, specs []attrSpec, st *streams, sd *skinData) *Primitive {
	used := make([]bool, m.VertexCount())
	for _, e := range m.Edges {
		used[e[0]] = true
		used[e[1]] = true
	}
	for _, f := range m.Faces {
		for i := 0; i < f.Count; i++ {
			used[m.CornerVertex[f.Start+i]] = true
		}
	}

	var vertIdx []uint32
	for v, u := range used {
		if !u {
			vertIdx = append(vertIdx, uint32(v))
		}
	}
	if len(vertIdx) == 0 {
		return nil
	}

	p := &Primitive{Material: NoMaterial, Mode: ModePoints}
	materializePerVertex(p, specs, st, vertIdx, func(s attrSpec) bool { return s.forPoint })
	if sd != nil {
		sd.appendSkinChannels(p, vertIdx)
	}
	return p
}

// materializePerVertex gathers the eligible per-vertex attributes for
// loose-edge and loose-point primitives.
func materializePerVertex(p *Primitive, specs []attrSpec, st *streams, vertIdx []uint32, eligible func(attrSpec) bool) {
	for _, spec := range specs {
		if !eligible(spec) || spec.afterOthers {
			continue
		}
		switch spec.src {
		case srcPosition:
			p.Attributes = append(p.Attributes, AttributeData{
				Name: spec.name, Data: ValueArray{Width: 3, F32: gatherFloats(st.positions, vertIdx, 3)}})
		case srcMorphPosition:
			p.Attributes = append(p.Attributes, AttributeData{
				Name: spec.name, Data: ValueArray{Width: 3, F32: gatherFloats(st.morphPos[spec.morph], vertIdx, 3)}})
		}
	}
}

func edgeKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}
