package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"strakmachine/namelist"
	"strakmachine/polar"
	"strakmachine/strakerr"
	"strakmachine/util"
)

// Range is an alpha sweep of the analysis tool.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

type Config struct {
	Tool     string
	BuildDir string
	NCrit    float64
	// T1 polars are computed at Re * MaxReFactor
	MaxReFactor     float64
	CLMerge         float64
	AlphaResolution float64
	// wide range used until Tighten is called
	Probe Range
}

const memEntries = 64

// Worker turns "merged polar of airfoil X at Re R" into cached files,
// running the analysis tool only on a cache miss. Presence of a file is
// the cache key.
type Worker struct {
	cfg    Config
	runner Runner

	rangeT1 Range
	rangeT2 Range

	mem *lru.Cache[string, *polar.Polar]
}

func New(cfg Config, runner Runner) (*Worker, error) {
	mem, err := lru.New[string, *polar.Polar](memEntries)
	if err != nil {
		return nil, err
	}
	return &Worker{
		cfg:     cfg,
		runner:  runner,
		rangeT1: cfg.Probe,
		rangeT2: cfg.Probe,
		mem:     mem,
	}, nil
}

// Tighten narrows the alpha sweeps of later generations to the region
// the analyzed root polar actually uses.
func (w *Worker) Tighten(root *polar.Polar) error {
	f := root.Features
	if f == nil {
		return strakerr.New(strakerr.BadConfig, root.AirfoilName, "root polar must be analyzed before tightening")
	}
	alphaMerge, err := root.AlphaFromCL(w.cfg.CLMerge)
	if err != nil {
		return err
	}
	alphaMin, alphaMaxLift := root.Alpha[f.Min], root.Alpha[f.MaxLift]
	d := alphaMaxLift - alphaMin
	w.rangeT1 = Range{Min: alphaMin - 0.05*d, Max: alphaMerge + 0.08*d, Step: w.cfg.Probe.Step}
	w.rangeT2 = Range{Min: alphaMerge - 0.05*d, Max: alphaMaxLift + 0.08*d, Step: w.cfg.Probe.Step}
	log.WithFields(log.Fields{
		"T1": fmt.Sprintf("%.2f..%.2f", w.rangeT1.Min, w.rangeT1.Max),
		"T2": fmt.Sprintf("%.2f..%.2f", w.rangeT2.Min, w.rangeT2.Max),
	}).Info("alpha range tightened")
	return nil
}

func (w *Worker) Ranges() (t1, t2 Range) {
	return w.rangeT1, w.rangeT2
}

func (w *Worker) dir(airfoil string) string {
	return PolarDir(w.cfg.BuildDir, airfoil)
}

// missing returns the Reynolds numbers among res whose T1 or T2 polar is
// not on disk yet.
func (w *Worker) missing(airfoil string, res []float64) (t1, t2 []float64) {
	dir := w.dir(airfoil)
	for _, re := range res {
		if !util.FileExists(filepath.Join(dir, T1FileName(re*w.cfg.MaxReFactor, w.cfg.NCrit))) {
			t1 = append(t1, re*w.cfg.MaxReFactor)
		}
		if !util.FileExists(filepath.Join(dir, T2FileName(re, w.cfg.NCrit))) {
			t2 = append(t2, re)
		}
	}
	return t1, t2
}

// Generate computes the T1 and T2 polars of datFile for every Re in res
// that is not cached yet. The tool computes all Re of a kind in one run.
func (w *Worker) Generate(ctx context.Context, datFile string, res []float64) error {
	airfoil := AirfoilName(datFile)
	t1, t2 := w.missing(airfoil, res)
	for _, job := range []struct {
		typ polar.Type
		res []float64
		rng Range
	}{
		{polar.T1, t1, w.rangeT1},
		{polar.T2, t2, w.rangeT2},
	} {
		if len(job.res) == 0 {
			continue
		}
		if err := w.run(ctx, datFile, job.typ, job.res, job.rng); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) run(ctx context.Context, datFile string, typ polar.Type, res []float64, rng Range) error {
	airfoil := AirfoilName(datFile)
	doc := namelist.New()
	g := doc.Ensure("polar_generation")
	g.Set("type_of_polar", namelist.Int(int(typ)))
	g.Set("op_mode", namelist.Quote("spec-al"))
	g.Set("op_point_range", namelist.Join([]string{
		namelist.Real(rng.Min, 3), namelist.Real(rng.Max, 3), namelist.Real(rng.Step, 3),
	}))
	items := make([]string, len(res))
	for i, re := range res {
		items[i] = namelist.Real(re, 0)
	}
	g.Set("polar_reynolds", namelist.Join(items))
	doc.Ensure("xfoil_run_options").Set("ncrit", namelist.ShortReal(w.cfg.NCrit))

	input := filepath.Join(w.dir(airfoil), fmt.Sprintf("iPolars_%s.txt", typ))
	if err := doc.WriteFile(input); err != nil {
		return err
	}
	abs, err := filepath.Abs(datFile)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"airfoil": airfoil,
		"type":    typ.String(),
		"re":      res,
	}).Info("generating polars")
	out, err := w.runner.Run(ctx, w.cfg.BuildDir, w.cfg.Tool, "-i", input, "-w", "polar", "-a", abs)
	if err != nil {
		return strakerr.Wrap(strakerr.AnalysisFailed, airfoil, err, "%s polar generation: %s", typ, truncate(out))
	}
	return nil
}

func truncate(out []byte) string {
	const max = 400
	if len(out) > max {
		return string(out[len(out)-max:])
	}
	return string(out)
}

// Polar returns the merged polar of datFile at re, resampled to the
// configured alpha resolution. The returned polar is shared and must not
// be modified except by Analyze.
func (w *Worker) Polar(ctx context.Context, datFile string, re float64) (*polar.Polar, error) {
	airfoil := AirfoilName(datFile)
	key := airfoil + "@" + ReString(re)
	if p, ok := w.mem.Get(key); ok {
		return p, nil
	}

	cachePath := filepath.Join(w.dir(airfoil), ResampledFileName(re))
	if util.FileExists(cachePath) {
		p, err := loadResampled(cachePath)
		if err == nil {
			w.mem.Add(key, p)
			return p, nil
		}
		log.WithFields(log.Fields{"file": cachePath, "err": err}).Warn("dropping unreadable polar cache")
	}

	merged, err := w.merged(ctx, datFile, re)
	if err != nil {
		return nil, err
	}
	p, err := merged.Resample(w.cfg.AlphaResolution)
	if err != nil {
		return nil, err
	}
	if err := storeResampled(cachePath, p); err != nil {
		return nil, err
	}
	w.mem.Add(key, p)
	return p, nil
}

// merged reads the merged polar file or builds it from T1 and T2.
func (w *Worker) merged(ctx context.Context, datFile string, re float64) (*polar.Polar, error) {
	airfoil := AirfoilName(datFile)
	dir := w.dir(airfoil)
	path := filepath.Join(dir, MergedFileName(re))
	if util.FileExists(path) {
		return polar.ParseFile(path)
	}

	if err := w.Generate(ctx, datFile, []float64{re}); err != nil {
		return nil, err
	}
	t1, err := polar.ParseFile(filepath.Join(dir, T1FileName(re*w.cfg.MaxReFactor, w.cfg.NCrit)))
	if err != nil {
		return nil, err
	}
	t2, err := polar.ParseFile(filepath.Join(dir, T2FileName(re, w.cfg.NCrit)))
	if err != nil {
		return nil, err
	}
	m, err := polar.Merge(t1, t2, w.cfg.CLMerge)
	if err != nil {
		return nil, err
	}
	m.AirfoilName = airfoil
	if err := m.WriteFile(path); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"airfoil": airfoil, "re": re, "file": path}).Info("merged polar written")
	return m, nil
}

// Forget drops every cached polar of airfoil, on disk and in memory. Used
// when the airfoil's coordinates have changed.
func (w *Worker) Forget(airfoil string) error {
	for _, key := range w.mem.Keys() {
		if strings.HasPrefix(key, airfoil+"@") {
			w.mem.Remove(key)
		}
	}
	return os.RemoveAll(w.dir(airfoil))
}
