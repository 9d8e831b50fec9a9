// Package pipeline runs the strak per airfoil: root polar, reference polar,
// targets, op-point layout, input files, target polar and optimizer passes.
// Everything runs sequentially, root first.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunoga/deep"
	log "github.com/sirupsen/logrus"

	"strakmachine/inputfile"
	"strakmachine/model"
	"strakmachine/namelist"
	"strakmachine/params"
	"strakmachine/polar"
	"strakmachine/strak"
	"strakmachine/strakerr"
	"strakmachine/util"
	"strakmachine/worker"
)

type Options struct {
	BuildDir string
	// parameter file; edits are saved here and relative user airfoil
	// paths are resolved against its directory
	ParamsFile  string
	PolarWorker string
	Optimizer   string
	Probe       worker.Range
	// nil selects the built-in optimizer template
	Template *namelist.Document
}

type Pipeline struct {
	opts   Options
	runner worker.Runner
	params *params.Params
	worker *worker.Worker

	airfoils []model.Airfoil
	root     *polar.Polar
	rootDat  string
}

// Result is the op-point state of one airfoil.
type Result struct {
	Airfoil   model.Airfoil
	SeedFile  string
	Reference *polar.Polar
	Targets   *strak.Targets
	OpPoints  []model.OpPoint
	// op-points come from a GUI edit instead of the layout
	Edited   bool
	Warnings []string
}

func New(p *params.Params, runner worker.Runner, opts Options) (*Pipeline, error) {
	if opts.Template == nil {
		tmpl, err := inputfile.Template("")
		if err != nil {
			return nil, err
		}
		opts.Template = tmpl
	}
	pl := &Pipeline{opts: opts, runner: runner}
	if err := pl.Reload(p); err != nil {
		return nil, err
	}
	return pl, nil
}

// Reload switches to new parameters. Cached polar files stay valid, the
// root polar is analyzed again on next use.
func (pl *Pipeline) Reload(p *params.Params) error {
	w, err := worker.New(pl.workerConfig(p, p.NCrit), pl.runner)
	if err != nil {
		return err
	}
	pl.params = p
	pl.worker = w
	pl.airfoils = p.Airfoils(filepath.Dir(pl.opts.ParamsFile))
	pl.root = nil
	pl.rootDat = ""
	if p.SmoothSeedfoil || p.SmoothStrakFoils {
		log.WithFields(log.Fields{"seed": p.SmoothSeedfoil, "strak": p.SmoothStrakFoils}).Warn("no smoother configured, smoothing flags ignored")
	}
	return nil
}

func (pl *Pipeline) workerConfig(p *params.Params, ncrit float64) worker.Config {
	return worker.Config{
		Tool:            pl.opts.PolarWorker,
		BuildDir:        pl.opts.BuildDir,
		NCrit:           ncrit,
		MaxReFactor:     p.MaxReynoldsFactor,
		CLMerge:         p.CLMerge,
		AlphaResolution: p.AlphaResolution,
		Probe:           pl.opts.Probe,
	}
}

func (pl *Pipeline) Params() *params.Params {
	return pl.params
}

func (pl *Pipeline) Airfoils() []model.Airfoil {
	return pl.airfoils
}

func (pl *Pipeline) Worker() *worker.Worker {
	return pl.worker
}

// Index returns the position of the airfoil called name.
func (pl *Pipeline) Index(name string) (int, error) {
	for i, a := range pl.airfoils {
		if a.Name == name {
			return i, nil
		}
	}
	return -1, strakerr.New(strakerr.BadConfig, name, "unknown airfoil")
}

func (pl *Pipeline) analyzeOptions() polar.AnalyzeOptions {
	return polar.AnalyzeOptions{
		CLMin:           pl.params.CLMin,
		CLPreMaxSpeed:   pl.params.CLPreMaxSpeed,
		MaxLiftDistance: pl.params.MaxLiftDistance,
	}
}

// AirfoilsDir holds the final coordinate files.
func AirfoilsDir(buildDir string) string {
	return filepath.Join(buildDir, "airfoils")
}

func DatFile(buildDir, airfoil string) string {
	return filepath.Join(AirfoilsDir(buildDir), airfoil+".dat")
}

// InputFileName names the optimizer input file of one pass, counted from 0.
func InputFileName(airfoil string, pass int) string {
	return fmt.Sprintf("iOpt_%s_pass%d.txt", airfoil, pass+1)
}

// Root returns the analyzed polar of the root airfoil at its own Re. The
// first call copies the root coordinates into the build directory and
// tightens the alpha range of all later polar generations.
func (pl *Pipeline) Root(ctx context.Context) (*polar.Polar, error) {
	if pl.root != nil {
		return pl.root, nil
	}
	a := pl.airfoils[0]
	src := pl.params.UserFile(0, filepath.Dir(pl.opts.ParamsFile))
	dat := DatFile(pl.opts.BuildDir, a.Name)
	if err := pl.installUserFile(src, dat); err != nil {
		return nil, strakerr.WithAirfoil(err, 0)
	}

	root, err := pl.worker.Polar(ctx, dat, a.Re)
	if err != nil {
		return nil, strakerr.WithAirfoil(err, 0)
	}
	if _, err := root.Analyze(pl.analyzeOptions()); err != nil {
		return nil, strakerr.WithAirfoil(err, 0)
	}
	if err := pl.worker.Tighten(root); err != nil {
		return nil, strakerr.WithAirfoil(err, 0)
	}
	pl.root, pl.rootDat = root, dat
	log.WithFields(log.Fields{
		"airfoil":  a.Name,
		"re":       a.Re,
		"maxGlide": root.PointAt(root.Features.MaxGlide).CL,
		"alphaCL0": root.Features.AlphaCL0,
	}).Info("root polar analyzed")
	return root, nil
}

func (pl *Pipeline) installUserFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if !util.FileExists(src) {
		if util.FileExists(dst) {
			return nil
		}
		return strakerr.New(strakerr.BadConfig, src, "user airfoil file not found")
	}
	return util.CopyFile(src, dst)
}

// SeedFile is the coordinate file whose polar is the reference of airfoil
// i: the finished airfoil i-1 if it exists, the root airfoil otherwise.
func (pl *Pipeline) SeedFile(i int) string {
	if i > 0 {
		prev := DatFile(pl.opts.BuildDir, pl.airfoils[i-1].Name)
		if util.FileExists(prev) {
			return prev
		}
	}
	return pl.rootDat
}

// Reference returns the analyzed polar of the seed of airfoil i at Re_i.
func (pl *Pipeline) Reference(ctx context.Context, i int) (*polar.Polar, string, error) {
	if _, err := pl.Root(ctx); err != nil {
		return nil, "", err
	}
	seed := pl.SeedFile(i)
	ref, err := pl.worker.Polar(ctx, seed, pl.airfoils[i].Re)
	if err != nil {
		return nil, "", err
	}
	if err := analyzeReference(ref, pl.analyzeOptions()); err != nil {
		return nil, "", err
	}
	return ref, seed, nil
}

// analyzeReference analyzes ref where it can. A reference that does not
// reach CL = 0 or the configured CLs still serves; the targets it misses are
// flagged by the layout.
func analyzeReference(ref *polar.Polar, opts polar.AnalyzeOptions) error {
	_, err := ref.Analyze(opts)
	switch {
	case err == nil:
		return nil
	case strakerr.Is(err, strakerr.NoZeroCrossing), strakerr.Is(err, strakerr.OutOfRange):
		log.WithFields(log.Fields{"airfoil": ref.AirfoilName, "re": ref.Re, "err": err}).Warn("reference polar only partly covers the strak")
		return nil
	default:
		return err
	}
}

// Prepare computes the op-points of airfoil i. A stored GUI edit replaces
// the layout.
func (pl *Pipeline) Prepare(ctx context.Context, i int) (*Result, error) {
	a := pl.airfoils[i]
	if a.Type == model.Blend {
		return nil, strakerr.WithAirfoil(strakerr.New(strakerr.BadConfig, a.Name, "blend airfoils have no op-points"), i)
	}
	ref, seed, err := pl.Reference(ctx, i)
	if err != nil {
		return nil, strakerr.WithAirfoil(err, i)
	}
	r := &Result{Airfoil: a, SeedFile: seed, Reference: ref}

	if ops, ok := pl.params.Override(a.Name); ok {
		if r.OpPoints, err = deep.Copy(ops); err != nil {
			return nil, err
		}
		r.Edited = true
		log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "opPoints": len(ops)}).Info("using edited op-points")
		return r, nil
	}

	if r.Targets, err = strak.Synthesize(pl.root, ref, pl.params.MaxLiftDistance); err != nil {
		return nil, strakerr.WithAirfoil(err, i)
	}
	r.OpPoints, err = strak.Layout(r.Targets, ref, strak.LayoutOptions{
		NumOpPoints:     pl.params.NumOpPoints,
		CLMerge:         pl.params.CLMerge,
		MaxRe:           pl.params.MaxRe(),
		Additional:      pl.params.AdditionalOpPoints,
		WeightingSpecAl: pl.params.WeightingSpecAl,
	})
	if err != nil {
		return nil, strakerr.WithAirfoil(err, i)
	}
	for _, op := range r.OpPoints {
		if op.Missing {
			r.Warnings = append(r.Warnings, fmt.Sprintf("no target for %s at %.5f", op.Name, op.Value))
		}
	}
	log.WithFields(log.Fields{
		"airfoil":  a.Name,
		"re":       a.Re,
		"seed":     worker.AirfoilName(seed),
		"opPoints": len(r.OpPoints),
	}).Info("op-points laid out")
	return r, nil
}

// Load returns the op-points of airfoil i for review. An existing input
// file is read back; a broken one is regenerated.
func (pl *Pipeline) Load(ctx context.Context, i int) (*Result, error) {
	a := pl.airfoils[i]
	if _, ok := pl.params.Override(a.Name); !ok {
		path := filepath.Join(pl.opts.BuildDir, InputFileName(a.Name, 0))
		if util.FileExists(path) {
			f, err := inputfile.ReadFile(path)
			switch {
			case err == nil:
				return &Result{Airfoil: a, SeedFile: pl.SeedFile(i), OpPoints: f.OpPoints}, nil
			case strakerr.Is(err, strakerr.MissingKey), strakerr.Is(err, strakerr.InvalidInputFile):
				log.WithFields(log.Fields{"airfoil": a.Name, "file": path, "err": err}).Warn("input file unusable, regenerating")
			default:
				return nil, strakerr.WithAirfoil(err, i)
			}
		}
	}

	r, err := pl.Prepare(ctx, i)
	if err != nil {
		return nil, err
	}
	if _, err := pl.Emit(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Emit writes the input files of every pass and the target polar.
func (pl *Pipeline) Emit(ctx context.Context, r *Result) ([]string, error) {
	inputs, err := pl.WriteInputFiles(r)
	if err != nil {
		return nil, strakerr.WithAirfoil(err, r.Airfoil.Index)
	}
	if _, err := pl.WriteTargetPolar(ctx, r); err != nil {
		return nil, strakerr.WithAirfoil(err, r.Airfoil.Index)
	}
	return inputs, nil
}

// WriteInputFiles writes one optimizer input file per quality pass and
// returns their paths.
func (pl *Pipeline) WriteInputFiles(r *Result) ([]string, error) {
	a := r.Airfoil
	base, err := inputfile.New(pl.opts.Template)
	if err != nil {
		return nil, err
	}
	initial := strak.InitialPerturb(a.Index, a.Re, pl.airfoils[0].Re, base.InitialPerturb, pl.params.AdaptInitialPerturb)

	var paths []string
	for k, pass := range pl.params.QualityPreset().Passes() {
		f, err := inputfile.New(pl.opts.Template)
		if err != nil {
			return nil, err
		}
		f.OpPoints = r.OpPoints
		f.NCrit = pl.params.NCrit
		f.InitialPerturb = strak.PassPerturb(initial, k)
		f.MaxIterations = pass.MaxIterations
		f.ShapeFunctions = pass.ShapeFunctions
		f.Geo = a.Geo

		path := filepath.Join(pl.opts.BuildDir, InputFileName(a.Name, k))
		if err := f.WriteFile(path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "files": len(paths)}).Info("input files written")
	return paths, nil
}

// TargetPolarFile is where the target polar of airfoil a is written.
func (pl *Pipeline) TargetPolarFile(a model.Airfoil) string {
	return filepath.Join(worker.PolarDir(pl.opts.BuildDir, a.Name), worker.TargetPolarFileName(a.Re))
}

func (pl *Pipeline) WriteTargetPolar(ctx context.Context, r *Result) (string, error) {
	root, err := pl.Root(ctx)
	if err != nil {
		return "", err
	}
	a := r.Airfoil
	path := pl.TargetPolarFile(a)
	if err := strak.WriteTargetPolar(path, a.Name, a.Re, pl.params.NCrit, r.OpPoints, root); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "file": path}).Info("target polar written")
	return path, nil
}

// Edit applies a GUI edit to airfoil i, stores the result as override in
// the parameter file and rewrites the outputs.
func (pl *Pipeline) Edit(ctx context.Context, i int, e strak.Edit) (*Result, error) {
	r, err := pl.Load(ctx, i)
	if err != nil {
		return nil, err
	}
	ops, err := strak.Apply(r.OpPoints, e)
	if err != nil {
		return nil, strakerr.WithAirfoil(err, i)
	}
	return pl.Store(ctx, i, ops)
}

// Store replaces the op-points of airfoil i as an edit.
func (pl *Pipeline) Store(ctx context.Context, i int, ops []model.OpPoint) (*Result, error) {
	a := pl.airfoils[i]
	pl.params.SetOverride(a.Name, ops)
	if err := pl.saveParams(); err != nil {
		return nil, err
	}
	r, err := pl.Prepare(ctx, i)
	if err != nil {
		return nil, err
	}
	if _, err := pl.Emit(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Reset drops the edit of airfoil i and lays its op-points out again.
func (pl *Pipeline) Reset(ctx context.Context, i int) (*Result, error) {
	pl.params.ResetOverride(pl.airfoils[i].Name)
	if err := pl.saveParams(); err != nil {
		return nil, err
	}
	r, err := pl.Prepare(ctx, i)
	if err != nil {
		return nil, err
	}
	if _, err := pl.Emit(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (pl *Pipeline) saveParams() error {
	if pl.opts.ParamsFile == "" {
		return nil
	}
	return pl.params.SaveFile(pl.opts.ParamsFile)
}

// TargetPolarText renders the target polar of r as the GUI imports it.
func (pl *Pipeline) TargetPolarText(ctx context.Context, r *Result) (string, error) {
	b, err := os.ReadFile(pl.TargetPolarFile(r.Airfoil))
	if err == nil {
		return string(b), nil
	}
	path, err := pl.WriteTargetPolar(ctx, r)
	if err != nil {
		return "", err
	}
	b, err = os.ReadFile(path)
	return string(b), err
}
