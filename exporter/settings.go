// Package exporter converts a mesh snapshot into glTF primitive
// records: it collapses per-corner attribute streams into glTF's
// per-vertex model, deduplicates vertices, buckets triangles by
// material and handles loose edges and points.
package exporter

import "go.uber.org/zap"

// Settings controls one export call. The struct is immutable for the
// duration of the call; pass a fresh one to change behavior.
type Settings struct {
	Normals      bool
	Tangents     bool
	TexCoords    bool
	Colors       bool
	Morph        bool
	MorphNormal  bool
	MorphTangent bool
	Skins        bool
	LooseEdges   bool
	LoosePoints  bool

	// Materials enables bucketing triangles by material index. When
	// false all triangles land in a single unmaterialed primitive.
	Materials bool

	// YUp converts output to glTF's right-handed Y-up convention.
	YUp bool

	// Logger receives diagnostics for recoverable faults. Nil means
	// no logging.
	Logger *zap.Logger
}

// DefaultSettings enables every channel and the Y-up conversion.
func DefaultSettings() *Settings {
	return &Settings{
		Normals:      true,
		Tangents:     true,
		TexCoords:    true,
		Colors:       true,
		Morph:        true,
		MorphNormal:  true,
		MorphTangent: true,
		Skins:        true,
		LooseEdges:   true,
		LoosePoints:  true,
		Materials:    true,
		YUp:          true,
	}
}

func (s *Settings) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
