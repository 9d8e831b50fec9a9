// Package params loads and saves the human-authored strak parameter
// document. The document is JSON; key order and unknown keys survive a
// load/save cycle.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/orderedmap"
	log "github.com/sirupsen/logrus"

	"strakmachine/model"
	"strakmachine/strak"
	"strakmachine/strakerr"
	"strakmachine/util"
)

// GeoParams are per airfoil geometry targets in percent of the chord. A
// null entry means no target for that airfoil.
type GeoParams struct {
	Thickness         []*float64 `json:"thickness,omitempty"`
	ThicknessPosition []*float64 `json:"thicknessPosition,omitempty"`
	Camber            []*float64 `json:"camber,omitempty"`
	CamberPosition    []*float64 `json:"camberPosition,omitempty"`
}

type Params struct {
	SeedFoilName string    `json:"seedFoilName" validate:"required"`
	Reynolds     []float64 `json:"reynolds" validate:"required,min=1,dive,gt=0"`
	AirfoilNames []string  `json:"airfoilNames" validate:"required,min=1,dive,required"`

	AirfoilTypes []string `json:"airfoilTypes" validate:"omitempty,dive,oneof=user blend opt"`
	UserAirfoils []string `json:"userAirfoils"`

	Quality             string    `json:"quality"`
	MaxReynoldsFactor   float64   `json:"maxReynoldsFactor" validate:"gt=0"`
	AdditionalOpPoints  []float64 `json:"additionalOpPoints"`
	NumOpPoints         int       `json:"numOpPoints"`
	NCrit               float64   `json:"NCrit" validate:"gt=0"`
	CLMin               float64   `json:"CL_min"`
	CLPreMaxSpeed       float64   `json:"CL_preMaxSpeed"`
	CLMerge             float64   `json:"CL_merge"`
	MaxLiftDistance     float64   `json:"maxLiftDistance" validate:"gte=0"`
	AlphaResolution     float64   `json:"alphaResolution" validate:"gt=0"`
	AdaptInitialPerturb bool      `json:"adaptInitialPerturb"`
	WeightingSpecAl     *float64  `json:"weightingSpecAl,omitempty"`

	SmoothSeedfoil   bool      `json:"smoothSeedfoil"`
	SmoothStrakFoils bool      `json:"smoothStrakFoils"`
	PolarReynolds    []float64 `json:"polar_Reynolds,omitempty"`
	PolarNCrit       *float64  `json:"polar_Ncrit,omitempty"`
	ChordLengths     []float64 `json:"chordLengths,omitempty"`
	FlapGroups       []int     `json:"flapGroups,omitempty"`
	GeoParams        *GeoParams `json:"geoParams,omitempty"`

	// GUI edits, airfoil name -> op-point list
	OpPointOverrides map[string][]model.OpPoint `json:"opPointOverrides,omitempty"`

	doc     *orderedmap.OrderedMap
	quality strak.Quality
}

var mandatory = []string{"seedFoilName", "reynolds", "airfoilNames"}

var validate = validator.New()

func defaults() *Params {
	return &Params{
		Quality:             string(strak.QualityDefault),
		MaxReynoldsFactor:   15,
		AdditionalOpPoints:  []float64{0.014, 0.042},
		NumOpPoints:         17,
		NCrit:               9.0,
		CLMin:               -0.1,
		CLPreMaxSpeed:       0.2,
		CLMerge:             0.05,
		MaxLiftDistance:     0.03,
		AlphaResolution:     0.001,
		AdaptInitialPerturb: true,
	}
}

func LoadFile(path string) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, strakerr.Wrap(strakerr.BadConfig, path, err, "cannot read parameter file")
	}
	p, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func Decode(b []byte) (*Params, error) {
	doc := orderedmap.New()
	doc.SetEscapeHTML(false)
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, strakerr.Wrap(strakerr.BadConfig, nil, err, "parameter document is not valid JSON")
	}
	for _, key := range mandatory {
		if _, ok := doc.Get(key); !ok {
			return nil, strakerr.New(strakerr.BadConfig, key, "mandatory parameter missing")
		}
	}

	p := defaults()
	if err := json.Unmarshal(b, p); err != nil {
		return nil, strakerr.Wrap(strakerr.BadConfig, nil, err, "parameter document")
	}
	p.doc = doc
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Params) check() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return strakerr.New(strakerr.BadConfig, fe.Value(), "parameter %s fails %s", fe.Namespace(), fe.Tag())
		}
		return strakerr.Wrap(strakerr.BadConfig, nil, err, "parameters")
	}

	for i := 1; i < len(p.Reynolds); i++ {
		if p.Reynolds[i] >= p.Reynolds[i-1] {
			return strakerr.New(strakerr.BadConfig, p.Reynolds[i], "reynolds must be strictly decreasing from root to tip")
		}
	}
	if len(p.AirfoilNames) != len(p.Reynolds) {
		return strakerr.New(strakerr.BadConfig, len(p.AirfoilNames), "airfoilNames must have one entry per reynolds value (%d)", len(p.Reynolds))
	}
	if len(p.AirfoilTypes) != 0 && len(p.AirfoilTypes) != len(p.Reynolds) {
		return strakerr.New(strakerr.BadConfig, len(p.AirfoilTypes), "airfoilTypes must have one entry per airfoil")
	}
	if p.NumOpPoints < strak.MinOpPoints {
		log.WithFields(log.Fields{"numOpPoints": p.NumOpPoints}).Warn("numOpPoints too small, clamped")
		p.NumOpPoints = strak.MinOpPoints
	}
	p.quality = strak.ParseQuality(p.Quality)
	return nil
}

// QualityPreset is the validated quality; unknown values map to default.
func (p *Params) QualityPreset() strak.Quality {
	if p.quality == "" {
		return strak.ParseQuality(p.Quality)
	}
	return p.quality
}

func (p *Params) NumAirfoils() int {
	return len(p.Reynolds)
}

// Type returns the airfoil type of airfoil i. Without airfoilTypes the root
// is a user airfoil and every other one is optimized.
func (p *Params) Type(i int) model.AirfoilType {
	if i < len(p.AirfoilTypes) {
		t, err := model.ParseAirfoilType(p.AirfoilTypes[i])
		if err == nil {
			return t
		}
	}
	if i == 0 {
		return model.User
	}
	return model.Opt
}

// UserFile returns the coordinate file of a user airfoil, relative paths
// resolved against baseDir. The root falls back to <seedFoilName>.dat.
func (p *Params) UserFile(i int, baseDir string) string {
	var f string
	if i < len(p.UserAirfoils) {
		f = p.UserAirfoils[i]
	}
	if f == "" && i == 0 {
		f = p.SeedFoilName + ".dat"
	}
	if f == "" || filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(baseDir, f)
}

func percent(vs []*float64, i int) *float64 {
	if i >= len(vs) || vs[i] == nil {
		return nil
	}
	return model.Float(*vs[i] / 100)
}

// Airfoils expands the parallel lists into one record per airfoil.
func (p *Params) Airfoils(baseDir string) []model.Airfoil {
	out := make([]model.Airfoil, len(p.Reynolds))
	for i := range out {
		a := model.Airfoil{
			Index: i,
			Name:  p.AirfoilNames[i],
			Type:  p.Type(i),
			Re:    p.Reynolds[i],
		}
		if a.Type == model.User {
			a.UserFile = p.UserFile(i, baseDir)
		}
		if i < len(p.ChordLengths) {
			a.Chord = model.Float(p.ChordLengths[i])
		}
		if i < len(p.FlapGroups) {
			a.FlapGroup = p.FlapGroups[i]
		}
		if g := p.GeoParams; g != nil {
			a.Geo = model.GeoTargets{
				Thickness:  percent(g.Thickness, i),
				ThicknessX: percent(g.ThicknessPosition, i),
				Camber:     percent(g.Camber, i),
				CamberX:    percent(g.CamberPosition, i),
			}
		}
		out[i] = a
	}
	return out
}

// MaxRe is the Reynolds number of the T1 constraints. It derives from the
// root Re so the low-lift op-points of every airfoil share one Re.
func (p *Params) MaxRe() float64 {
	return p.Reynolds[0] * p.MaxReynoldsFactor
}

// T1Re is the Re of the T1 analysis polar of airfoil i.
func (p *Params) T1Re(i int) float64 {
	return p.Reynolds[i] * p.MaxReynoldsFactor
}

func (p *Params) Override(airfoil string) ([]model.OpPoint, bool) {
	ops, ok := p.OpPointOverrides[airfoil]
	return ops, ok && len(ops) > 0
}

func (p *Params) SetOverride(airfoil string, ops []model.OpPoint) {
	if p.OpPointOverrides == nil {
		p.OpPointOverrides = map[string][]model.OpPoint{}
	}
	p.OpPointOverrides[airfoil] = ops
}

func (p *Params) ResetOverride(airfoil string) {
	delete(p.OpPointOverrides, airfoil)
}

// Encode writes the document: recognized keys stay at their position,
// new keys are appended and unknown keys are kept untouched.
func (p *Params) Encode(w io.Writer) error {
	doc := p.doc
	if doc == nil {
		doc = orderedmap.New()
		doc.SetEscapeHTML(false)
	}

	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	known := orderedmap.New()
	if err := json.Unmarshal(b, known); err != nil {
		return err
	}
	for _, key := range []string{"weightingSpecAl", "polar_Reynolds", "polar_Ncrit", "chordLengths", "flapGroups", "geoParams", "opPointOverrides"} {
		if _, ok := known.Get(key); !ok {
			doc.Delete(key)
		}
	}
	for _, key := range known.Keys() {
		v, _ := known.Get(key)
		if key == "opPointOverrides" {
			v = p.orderedOverrides()
		}
		doc.Set(key, v)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, out, "", "    "); err != nil {
		return err
	}
	indented.WriteByte('\n')
	_, err = indented.WriteTo(w)
	return err
}

// orderedOverrides lists overrides in airfoil order so saves are stable.
func (p *Params) orderedOverrides() *orderedmap.OrderedMap {
	om := orderedmap.New()
	for _, name := range p.AirfoilNames {
		if ops, ok := p.OpPointOverrides[name]; ok && len(ops) > 0 {
			om.Set(name, ops)
		}
	}
	var rest []string
	for name, ops := range p.OpPointOverrides {
		if _, ok := om.Get(name); !ok && len(ops) > 0 {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		om.Set(name, p.OpPointOverrides[name])
	}
	return om
}

// SaveFile replaces path atomically.
func (p *Params) SaveFile(path string) error {
	if err := util.WriteFileAtomic(path, p.Encode); err != nil {
		return err
	}
	log.WithFields(log.Fields{"file": path}).Info("parameters saved")
	return nil
}
