// Package inputfile maps an op-point list and the per-pass globals onto the
// namelist document consumed by the optimizer.
package inputfile

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"strakmachine/model"
	"strakmachine/namelist"
	"strakmachine/strakerr"
)

// group and key names of the optimizer schema
const (
	grpOptions   = "optimization_options"
	grpOpConds   = "operating_conditions"
	grpPSO       = "particle_swarm_options"
	grpXfoil     = "xfoil_run_options"
	grpCurvature = "curvature"
	grpGeo       = "geometry_targets"

	keyNOpPoint   = "noppoint"
	keyOpMode     = "op_mode"
	keyOpPoint    = "op_point"
	keyOptType    = "optimization_type"
	keyTarget     = "target_value"
	keyWeighting  = "weighting"
	keyReynolds   = "reynolds"
	keyPerturb    = "initial_perturb"
	keyShape      = "shape_functions"
	keyMaxIt      = "pso_maxit"
	keyNCrit      = "ncrit"
	keyRevTop     = "max_curv_reverse_top"
	keyRevBot     = "max_curv_reverse_bot"
	keyNGeo       = "ngeo_targets"
	keyTargetType = "target_type"
	keyTargetGeo  = "target_geo"
)

// optimization types
const (
	TargetDrag = "target-drag"
	TargetLift = "target-lift"
	MinDrag    = "min-drag"
	MaxLift    = "max-lift"
)

// decimals per field
const (
	precCL      = 5
	precCD      = 6
	precAlpha   = 5
	precPerturb = 6
	precGeo     = 4 // fraction of chord, i.e. two decimals in percent
)

// DefaultWeighting is written for op-points without a weighting and read
// back as "no weighting".
const DefaultWeighting = model.DefaultWeighting

// File is the in-memory form of one optimizer input file. The template
// document carries every key that is not generated here.
type File struct {
	OpPoints       []model.OpPoint
	NCrit          float64
	InitialPerturb float64
	MaxIterations  int
	ShapeFunctions string
	MaxReverseTop  int
	MaxReverseBot  int
	Geo            model.GeoTargets

	doc *namelist.Document
}

// New starts an input file from template, taking all globals from it.
func New(template *namelist.Document) (*File, error) {
	f := &File{doc: template.Clone()}
	if err := f.readGlobals(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) readGlobals() error {
	opts, err := f.doc.MustGroup(grpOptions)
	if err != nil {
		return err
	}
	if f.InitialPerturb, err = opts.Float(keyPerturb); err != nil {
		return err
	}
	if f.ShapeFunctions, err = opts.String(keyShape); err != nil {
		return err
	}

	pso, err := f.doc.MustGroup(grpPSO)
	if err != nil {
		return err
	}
	if f.MaxIterations, err = pso.Int(keyMaxIt); err != nil {
		return err
	}

	xfoil, err := f.doc.MustGroup(grpXfoil)
	if err != nil {
		return err
	}
	if f.NCrit, err = xfoil.Float(keyNCrit); err != nil {
		return err
	}

	curv, err := f.doc.MustGroup(grpCurvature)
	if err != nil {
		return err
	}
	if f.MaxReverseTop, err = curv.Int(keyRevTop); err != nil {
		return err
	}
	if f.MaxReverseBot, err = curv.Int(keyRevBot); err != nil {
		return err
	}
	return nil
}

func optimizationType(op model.OpPoint) string {
	switch {
	case op.Mode == model.SpecCL && op.Missing:
		return MinDrag
	case op.Mode == model.SpecCL:
		return TargetDrag
	case op.Missing:
		return MaxLift
	default:
		return TargetLift
	}
}

func formatOpPoint(op model.OpPoint) (value, target string) {
	if op.Mode == model.SpecAL {
		return namelist.Real(op.Value, precAlpha), namelist.Real(op.Target, precCL)
	}
	return namelist.Real(op.Value, precCL), namelist.Real(op.Target, precCD)
}

// Document renders f onto a copy of its template.
func (f *File) Document() *namelist.Document {
	doc := f.doc.Clone()

	opts := doc.Ensure(grpOptions)
	opts.Set(keyPerturb, namelist.Real(f.InitialPerturb, precPerturb))
	opts.Set(keyShape, namelist.Quote(f.ShapeFunctions))
	doc.Ensure(grpPSO).Set(keyMaxIt, namelist.Int(f.MaxIterations))
	doc.Ensure(grpXfoil).Set(keyNCrit, namelist.ShortReal(f.NCrit))
	curv := doc.Ensure(grpCurvature)
	curv.Set(keyRevTop, namelist.Int(f.MaxReverseTop))
	curv.Set(keyRevBot, namelist.Int(f.MaxReverseBot))

	oc := doc.Ensure(grpOpConds)
	for _, key := range []string{keyOpMode, keyOpPoint, keyOptType, keyTarget, keyWeighting, keyReynolds} {
		oc.Delete(key)
	}
	oc.Set(keyNOpPoint, namelist.Int(len(f.OpPoints)))
	for i, op := range f.OpPoints {
		idx := i + 1
		value, target := formatOpPoint(op)
		oc.SetIndexed(keyOpMode, idx, namelist.Quote(op.Mode.String()))
		oc.SetIndexed(keyOpPoint, idx, value).Comment = op.Name
		oc.SetIndexed(keyOptType, idx, namelist.Quote(optimizationType(op)))
		oc.SetIndexed(keyTarget, idx, target)
		w := DefaultWeighting
		if op.Weighting != nil {
			w = *op.Weighting
		}
		oc.SetIndexed(keyWeighting, idx, namelist.ShortReal(w))
		if op.Re != nil {
			oc.SetIndexed(keyReynolds, idx, namelist.ShortReal(*op.Re))
		}
	}

	geo := doc.Ensure(grpGeo)
	geo.Delete(keyTargetType)
	geo.Delete(keyTargetGeo)
	n := 0
	for _, t := range []struct {
		name string
		v    *float64
	}{{"Thickness", f.Geo.Thickness}, {"Camber", f.Geo.Camber}} {
		if t.v == nil {
			continue
		}
		n++
		geo.SetIndexed(keyTargetType, n, namelist.Quote(t.name))
		geo.SetIndexed(keyTargetGeo, n, namelist.Real(*t.v, precGeo))
	}
	geo.Set(keyNGeo, namelist.Int(n))
	return doc
}

// WriteFile serializes the whole document, then replaces path.
func (f *File) WriteFile(path string) error {
	if err := f.Document().WriteFile(path); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"file":      path,
		"opPoints":  len(f.OpPoints),
		"perturb":   f.InitialPerturb,
		"iteration": f.MaxIterations,
	}).Debug("input file written")
	return nil
}

// ReadFile loads an input file written by WriteFile. Missing keys fail with
// MissingKey, op-point arrays of unequal length with InvalidInputFile.
func ReadFile(path string) (*File, error) {
	doc, err := namelist.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func Decode(doc *namelist.Document) (*File, error) {
	f := &File{doc: doc.Clone()}
	if err := f.readGlobals(); err != nil {
		return nil, err
	}
	if err := f.readOpPoints(); err != nil {
		return nil, err
	}
	if err := f.readGeo(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) readOpPoints() error {
	oc, err := f.doc.MustGroup(grpOpConds)
	if err != nil {
		return err
	}
	n, err := oc.Int(keyNOpPoint)
	if err != nil {
		return err
	}
	arrays := map[string][]*namelist.Entry{}
	for _, key := range []string{keyOpMode, keyOpPoint, keyOptType, keyTarget, keyWeighting} {
		a := oc.Array(key)
		if len(a) != n {
			return strakerr.New(strakerr.InvalidInputFile, len(a), "%s has %d entries, noppoint is %d", key, len(a), n)
		}
		for i, e := range a {
			if e.Index != i+1 {
				return strakerr.New(strakerr.InvalidInputFile, e.Index, "%s: unexpected index", key)
			}
		}
		arrays[key] = a
	}
	res := map[int]float64{}
	for _, e := range oc.Array(keyReynolds) {
		if e.Index < 1 || e.Index > n {
			return strakerr.New(strakerr.InvalidInputFile, e.Index, "reynolds index outside 1..%d", n)
		}
		if res[e.Index], err = namelist.ParseFloat(e.Value); err != nil {
			return err
		}
	}

	f.OpPoints = make([]model.OpPoint, n)
	for i := range f.OpPoints {
		op := &f.OpPoints[i]
		if op.Mode, err = model.ParseMode(namelist.Unquote(arrays[keyOpMode][i].Value)); err != nil {
			return strakerr.Wrap(strakerr.InvalidInputFile, i+1, err, "op_mode")
		}
		if op.Value, err = namelist.ParseFloat(arrays[keyOpPoint][i].Value); err != nil {
			return err
		}
		if op.Target, err = namelist.ParseFloat(arrays[keyTarget][i].Value); err != nil {
			return err
		}
		w, err := namelist.ParseFloat(arrays[keyWeighting][i].Value)
		if err != nil {
			return err
		}
		if w != DefaultWeighting {
			op.Weighting = model.Float(w)
		}
		if re, ok := res[i+1]; ok {
			op.Re = model.Float(re)
		}
		switch t := namelist.Unquote(arrays[keyOptType][i].Value); t {
		case MinDrag, MaxLift:
			op.Missing = true
		case TargetDrag, TargetLift:
		default:
			log.WithFields(log.Fields{"index": i + 1, "type": t}).Warn("unknown optimization type")
		}
		op.Name = arrays[keyOpPoint][i].Comment
		if op.Name == "" {
			op.Name = fmt.Sprintf("op_%d", i+1)
		}
	}
	return nil
}

func (f *File) readGeo() error {
	geo := f.doc.Group(grpGeo)
	if geo == nil {
		return nil
	}
	types, values := geo.Array(keyTargetType), geo.Array(keyTargetGeo)
	if len(types) != len(values) {
		return strakerr.New(strakerr.InvalidInputFile, len(values), "target_type and target_geo differ in length")
	}
	for i, t := range types {
		v, err := namelist.ParseFloat(values[i].Value)
		if err != nil {
			return err
		}
		switch strings.ToLower(namelist.Unquote(t.Value)) {
		case "thickness":
			f.Geo.Thickness = model.Float(v)
		case "camber":
			f.Geo.Camber = model.Float(v)
		}
	}
	return nil
}
