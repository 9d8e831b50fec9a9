package model

import (
	"encoding/json"
	"fmt"
)

type Mode int

const (
	SpecCL Mode = iota // op_point is CL, target is CD
	SpecAL             // op_point is alpha, target is CL
)

func (m Mode) String() string {
	if m == SpecAL {
		return "spec-al"
	}
	return "spec-cl"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "spec-cl":
		return SpecCL, nil
	case "spec-al":
		return SpecAL, nil
	default:
		return 0, fmt.Errorf("%q: unknown op-point mode", s)
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var err error
	*m, err = ParseMode(s)
	return err
}

// Reserved op-point names.
const (
	NamePreClmax      = "preClmax"
	NameMaxGlide      = "maxGlide"
	NamePreMaxSpeed   = "preMaxSpeed"
	NameMaxSpeed      = "maxSpeed"
	NameCL0           = "CL0"
	NameAlpha0        = "alpha0"
	NameAlphaMaxGlide = "alphaMaxGlide"
	NameAlphaMaxLift  = "alphaMaxLift"
)

// AnchorOrder is the order in which the anchors appear along the CL axis.
var AnchorOrder = []string{NameCL0, NameMaxSpeed, NamePreMaxSpeed, NameMaxGlide, NamePreClmax}

// OpPoint is one optimizer constraint. Re is nil for points that inherit
// the airfoil Re (T2 constraint); a set Re makes it a T1 constraint.
type OpPoint struct {
	Name      string   `json:"name"`
	Mode      Mode     `json:"mode"`
	Value     float64  `json:"op_point"`
	Target    float64  `json:"target_value"`
	Weighting *float64 `json:"weighting,omitempty"`
	Re        *float64 `json:"reynolds,omitempty"`

	// Missing is set when no target could be looked up in the reference
	// polar. Such points are emitted without a target.
	Missing bool `json:"missing,omitempty"`
}

// UnmarshalJSON also accepts the older dict form which used "type",
// "value" and "target" as keys.
func (o *OpPoint) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	alias := func(keys ...string) json.RawMessage {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				return v
			}
		}
		return nil
	}

	*o = OpPoint{}
	if v := alias("name"); v != nil {
		if err := json.Unmarshal(v, &o.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if v := alias("mode", "type"); v != nil {
		if err := json.Unmarshal(v, &o.Mode); err != nil {
			return fmt.Errorf("mode: %w", err)
		}
	}
	if v := alias("op_point", "value"); v != nil {
		if err := json.Unmarshal(v, &o.Value); err != nil {
			return fmt.Errorf("op_point: %w", err)
		}
	}
	if v := alias("target_value", "target"); v != nil {
		if err := json.Unmarshal(v, &o.Target); err != nil {
			return fmt.Errorf("target_value: %w", err)
		}
	}
	for key, dst := range map[string]**float64{"weighting": &o.Weighting, "reynolds": &o.Re} {
		if v := alias(key); v != nil && string(v) != "null" {
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = &f
		}
	}
	o.Weighting = NormalWeighting(o.Weighting)
	if v := alias("missing"); v != nil {
		if err := json.Unmarshal(v, &o.Missing); err != nil {
			return fmt.Errorf("missing: %w", err)
		}
	}
	return nil
}

func Float(f float64) *float64 {
	return &f
}

// DefaultWeighting is the optimizer's weighting of an op-point that has
// none.
const DefaultWeighting = 1.0

// NormalWeighting maps an explicit default weighting to nil, the only form
// an input file can carry back.
func NormalWeighting(w *float64) *float64 {
	if w == nil || *w == DefaultWeighting {
		return nil
	}
	return Float(*w)
}

func IndexOf(points []OpPoint, name string) int {
	for i, op := range points {
		if op.Name == name {
			return i
		}
	}
	return -1
}
