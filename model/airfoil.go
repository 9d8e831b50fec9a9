package model

import (
	"encoding/json"
	"fmt"
)

type AirfoilType int

const (
	Opt   AirfoilType = iota // produced by the optimizer
	User                     // user supplied .dat file
	Blend                    // blended from its neighbours
)

func (t AirfoilType) String() string {
	switch t {
	case User:
		return "user"
	case Blend:
		return "blend"
	default:
		return "opt"
	}
}

func ParseAirfoilType(s string) (AirfoilType, error) {
	switch s {
	case "opt":
		return Opt, nil
	case "user":
		return User, nil
	case "blend":
		return Blend, nil
	default:
		return 0, fmt.Errorf("%q: unknown airfoil type", s)
	}
}

func (t AirfoilType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *AirfoilType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var err error
	*t, err = ParseAirfoilType(s)
	return err
}

// GeoTargets are optional geometry targets of one airfoil, as fractions
// of the chord.
type GeoTargets struct {
	Thickness  *float64
	ThicknessX *float64
	Camber     *float64
	CamberX    *float64
}

func (g GeoTargets) Empty() bool {
	return g.Thickness == nil && g.ThicknessX == nil && g.Camber == nil && g.CamberX == nil
}

// Airfoil is one spanwise station of the strak.
type Airfoil struct {
	Index     int
	Name      string
	Type      AirfoilType
	UserFile  string // path of the .dat file for user airfoils
	Re        float64
	Chord     *float64 // position along the half span
	FlapGroup int
	Geo       GeoTargets
}
