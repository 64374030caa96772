package geom

import (
	"math"
	"testing"
)

func TestZUpToYUp(t *testing.T) {
	v := []Element{1, 2, 3}
	ZUpToYUp(v)
	if v[0] != 1 || v[1] != 3 || v[2] != -2 {
		t.Error("(1,2,3) should map to (1,3,-2), got", v)
	}

	// Not an involution: applying twice flips Y.
	ZUpToYUp(v)
	if v[0] != 1 || v[1] != -2 || v[2] != -3 {
		t.Error("double conversion should not be identity, got", v)
	}
}

func TestApplyMatrix4Batch(t *testing.T) {
	m := NewTranslateMatrix4(1, 2, 3).Mul(NewScaleMatrix4(2, 2, 2))
	batch := []Element{1, 0, 0, 0, 1, 0, 0.5, 0.5, 0.5}
	single := make([]Element, len(batch))
	for i := 0; i+2 < len(batch); i += 3 {
		m.ApplyTo(NewVector3(batch[i], batch[i+1], batch[i+2])).ToArray(single[i : i+3])
	}
	ApplyMatrix4Batch(m, batch)
	for i := range batch {
		if batch[i] != single[i] {
			t.Error("batch apply differs from per-vector apply at", i, batch[i], single[i])
		}
	}
}

func TestApplyMatrix3Batch(t *testing.T) {
	m := NewScaleMatrix4(2, 3, 4).To3x3()
	batch := []Element{1, 1, 1, 0.5, -1, 2}
	single := make([]Element, len(batch))
	for i := 0; i+2 < len(batch); i += 3 {
		m.ApplyTo(NewVector3(batch[i], batch[i+1], batch[i+2])).ToArray(single[i : i+3])
	}
	ApplyMatrix3Batch(m, batch)
	for i := range batch {
		if batch[i] != single[i] {
			t.Error("batch apply differs from per-vector apply at", i, batch[i], single[i])
		}
	}
	if batch[0] != 2 || batch[1] != 3 || batch[2] != 4 {
		t.Error("linear map", batch[:3])
	}
}

func TestNormalizeBatch(t *testing.T) {
	v := []Element{3, 0, 4, 0, 0, 0, 0, 2, 0}
	NormalizeBatch(v)
	if math.Abs(float64(v[0]-0.6)) > 1e-6 || math.Abs(float64(v[2]-0.8)) > 1e-6 {
		t.Error("normalize", v[:3])
	}
	if v[3] != 0 || v[4] != 0 || v[5] != 0 {
		t.Error("zero vector must stay zero", v[3:6])
	}
	if v[7] != 1 {
		t.Error("unit", v[6:9])
	}
}

func TestFlipV(t *testing.T) {
	uv := []Element{0.25, 0.25, 0, 1}
	FlipV(uv)
	if uv[0] != 0.25 || uv[1] != 0.75 || uv[2] != 0 || uv[3] != 0 {
		t.Error("flip v", uv)
	}
}

func TestMatrix3Inverse(t *testing.T) {
	m := NewScaleMatrix4(2, 4, 8).To3x3()
	inv := m.Inverse()
	r := inv.Mul(m)
	id := NewMatrix3()
	for i := range r {
		if math.Abs(float64(r[i]-id[i])) > 1e-6 {
			t.Error("inv*m != identity", r)
			break
		}
	}
	if m.Det() != 64 {
		t.Error("det", m.Det())
	}
}
