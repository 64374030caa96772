package exporter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meshkit/gltfexport/mesh"
)

// source tags where an attribute's values come from; dispatch is on
// this enum, never on the glTF name string.
type source int

const (
	srcPosition source = iota
	srcTexCoord
	srcNormal
	srcTangent
	srcMorphPosition
	srcMorphNormal
	srcMorphTangent
	srcColor
	srcCustom
)

// attrSpec describes one exported channel and its fixed-width layout
// inside a corner record. Specs are immutable once built.
type attrSpec struct {
	name   string
	src    source
	domain mesh.Domain
	kind   mesh.Kind
	width  int // components per element
	size   int // bytes per element in the corner record

	morph int // morph target index for srcMorph*
	layer int // UV / color / custom layer index

	// forEdge/forPoint mark the attribute valid for loose-edge and
	// loose-point primitives.
	forEdge  bool
	forPoint bool
	// skipDedup keeps the attribute out of the corner records: its
	// value is a pure function of the source vertex index and is
	// materialized by gathering after deduplication.
	skipDedup bool
	// afterOthers defers materialization to the second pass, once the
	// arrays it reads (normals, morph normals, tangents) exist.
	afterOthers bool
}

// features is what survived the configuration and metadata checks.
type features struct {
	normals      bool
	tangents     bool
	morphNormals bool
	morphTangent bool
	keys         []int // indices of exported shape keys
}

func kindSize(k mesh.Kind) int {
	switch k {
	case mesh.KindFloat, mesh.KindInt:
		return 4
	case mesh.KindFloat2:
		return 8
	case mesh.KindFloat3:
		return 12
	case mesh.KindFloat4:
		return 16
	case mesh.KindInt8, mesh.KindBool:
		return 1
	}
	return 0
}

// customAttributeName maps a source layer name to its glTF channel
// name. The leading underscore keeps custom layers out of the
// reserved semantic namespace (POSITION, TEXCOORD_x, ...), so a layer
// literally named "NORMAL" cannot clobber the real channel.
func customAttributeName(name string) string {
	return "_" + strings.ToUpper(name)
}

// buildAttributes produces the ordered channel list for one export
// call: POSITION, UV sets, NORMAL, TANGENT, per-morph triples, then
// custom layers. Channels whose prerequisites are missing are dropped
// here with a diagnostic, so the reduction engine only ever sees
// exportable specs.
func buildAttributes(m *mesh.Mesh, cfg *Settings) ([]attrSpec, features) {
	log := cfg.logger()

	var feat features
	feat.normals = cfg.Normals && len(m.Normal) > 0

	if feat.normals && cfg.Tangents {
		if m.ActiveUV >= 0 && m.ActiveUV < len(m.UVLayers) && len(m.Tangent) > 0 && len(m.BitangentSign) > 0 {
			feat.tangents = true
		} else {
			log.Warn("tangents disabled: mesh has no active UV layer or no tangent data",
				zap.String("mesh", m.Name))
		}
	}

	if cfg.Morph {
		for i, key := range m.ShapeKeys {
			if key.Mute || key.SelfRelative {
				continue
			}
			feat.keys = append(feat.keys, i)
		}
	}
	feat.morphNormals = feat.normals && cfg.MorphNormal
	feat.morphTangent = feat.morphNormals && feat.tangents && cfg.MorphTangent

	var specs []attrSpec

	specs = append(specs, attrSpec{
		name: "POSITION", src: srcPosition,
		domain: mesh.DomainPoint, kind: mesh.KindFloat3, width: 3, size: 12,
		forEdge: true, forPoint: true, skipDedup: true,
	})

	if cfg.TexCoords {
		for i := range m.UVLayers {
			specs = append(specs, attrSpec{
				name: fmt.Sprintf("TEXCOORD_%d", i), src: srcTexCoord,
				domain: mesh.DomainCorner, kind: mesh.KindFloat2, width: 2, size: 8,
				layer: i,
			})
		}
	}

	if feat.normals {
		specs = append(specs, attrSpec{
			name: "NORMAL", src: srcNormal,
			domain: mesh.DomainCorner, kind: mesh.KindFloat3, width: 3, size: 12,
		})
	}

	if feat.tangents {
		specs = append(specs, attrSpec{
			name: "TANGENT", src: srcTangent,
			domain: mesh.DomainCorner, kind: mesh.KindFloat4, width: 4, size: 16,
		})
	}

	for morphIdx := range feat.keys {
		specs = append(specs, attrSpec{
			name: fmt.Sprintf("MORPH_POSITION_%d", morphIdx), src: srcMorphPosition,
			domain: mesh.DomainPoint, kind: mesh.KindFloat3, width: 3, size: 12,
			morph: morphIdx, forEdge: true, forPoint: true, skipDedup: true,
		})
		if feat.morphNormals {
			specs = append(specs, attrSpec{
				name: fmt.Sprintf("MORPH_NORMAL_%d", morphIdx), src: srcMorphNormal,
				domain: mesh.DomainCorner, kind: mesh.KindFloat3, width: 3, size: 12,
				morph: morphIdx,
			})
		}
		if feat.morphTangent {
			specs = append(specs, attrSpec{
				name: fmt.Sprintf("MORPH_TANGENT_%d", morphIdx), src: srcMorphTangent,
				domain: mesh.DomainCorner, kind: mesh.KindFloat3, width: 3, size: 12,
				morph: morphIdx, skipDedup: true, afterOthers: true,
			})
		}
	}

	for i := range m.ColorLayers {
		if i == m.RenderColor {
			if !cfg.Colors {
				continue
			}
			specs = append(specs, attrSpec{
				name: "COLOR_0", src: srcColor,
				domain: mesh.DomainCorner, kind: mesh.KindFloat4, width: 4, size: 16,
				layer: i,
			})
		} else {
			specs = append(specs, attrSpec{
				name: customAttributeName(m.ColorLayers[i].Name), src: srcColor,
				domain: mesh.DomainCorner, kind: mesh.KindFloat4, width: 4, size: 16,
				layer: i,
			})
		}
	}

	for i, attr := range m.Attributes {
		size := kindSize(attr.Kind)
		if size == 0 {
			log.Error("unsupported attribute type, skipping",
				zap.String("mesh", m.Name), zap.String("attribute", attr.Name),
				zap.Stringer("type", attr.Kind))
			continue
		}
		if attr.Domain == mesh.DomainEdge {
			// No dispatch rule maps edge data onto corner records yet.
			log.Error("edge domain attributes are not supported, skipping",
				zap.String("mesh", m.Name), zap.String("attribute", attr.Name))
			continue
		}
		specs = append(specs, attrSpec{
			name: customAttributeName(attr.Name), src: srcCustom,
			domain: attr.Domain, kind: attr.Kind, width: attr.Kind.Width(), size: size,
			layer: i,
		})
	}

	return specs, feat
}
