package strak

import (
	"github.com/brunoga/deep"

	"strakmachine/model"
	"strakmachine/strakerr"
)

// Edit is a committed change of one op-point from the review GUI. The
// mode of an op-point is never changed by an edit.
type Edit struct {
	Index     int
	Value     float64
	Target    float64
	Weighting *float64
}

// Apply returns a copy of points with e applied. A weighting equal to the
// default is stored as none.
func Apply(points []model.OpPoint, e Edit) ([]model.OpPoint, error) {
	if e.Index < 0 || e.Index >= len(points) {
		return nil, strakerr.New(strakerr.InvalidInputFile, e.Index, "no op-point with index %d", e.Index)
	}
	out, err := deep.Copy(points)
	if err != nil {
		return nil, err
	}
	op := &out[e.Index]
	op.Value = e.Value
	op.Target = e.Target
	op.Weighting = model.NormalWeighting(e.Weighting)
	op.Missing = false
	return out, nil
}

// Columns is the column-wise form in which the GUI sends a complete list.
type Columns struct {
	Modes      []model.Mode `json:"op_mode"`
	Values     []float64    `json:"op_point"`
	Targets    []float64    `json:"target_value"`
	Weightings []*float64   `json:"weighting"`
}

func (c Columns) Validate() error {
	n := len(c.Modes)
	for _, l := range []int{len(c.Values), len(c.Targets), len(c.Weightings)} {
		if l != n {
			return strakerr.New(strakerr.InvalidInputFile, l, "op-point columns differ in length (%d op_mode)", n)
		}
	}
	return nil
}

func ToColumns(points []model.OpPoint) Columns {
	c := Columns{
		Modes:      make([]model.Mode, len(points)),
		Values:     make([]float64, len(points)),
		Targets:    make([]float64, len(points)),
		Weightings: make([]*float64, len(points)),
	}
	for i, op := range points {
		c.Modes[i], c.Values[i], c.Targets[i], c.Weightings[i] = op.Mode, op.Value, op.Target, op.Weighting
	}
	return c
}

// ApplyColumns writes c onto a copy of points. Lists must have the same
// length and modes must match.
func ApplyColumns(points []model.OpPoint, c Columns) ([]model.OpPoint, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c.Modes) != len(points) {
		return nil, strakerr.New(strakerr.InvalidInputFile, len(c.Modes), "expected %d op-points", len(points))
	}
	out := points
	for i := range points {
		if c.Modes[i] != points[i].Mode {
			return nil, strakerr.New(strakerr.InvalidInputFile, i, "mode of op-point %s cannot change", points[i].Name)
		}
		var err error
		if out, err = Apply(out, Edit{Index: i, Value: c.Values[i], Target: c.Targets[i], Weighting: c.Weightings[i]}); err != nil {
			return nil, err
		}
	}
	return out, nil
}
