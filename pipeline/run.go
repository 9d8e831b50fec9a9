package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"strakmachine/model"
	"strakmachine/polar"
	"strakmachine/strakerr"
	"strakmachine/util"
	"strakmachine/worker"
)

type Stage int

const (
	// polar generation only
	StagePolars Stage = iota
	// everything except the optimizer
	StageTargets
	StageAll
)

func (s Stage) String() string {
	switch s {
	case StagePolars:
		return "polars"
	case StageTargets:
		return "targets"
	case StageAll:
		return "all"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Run processes all airfoils root first. With StageAll every optimized
// airfoil becomes the seed of the next one.
func (pl *Pipeline) Run(ctx context.Context, stage Stage) error {
	if err := pl.Polars(ctx); err != nil {
		return err
	}
	if stage == StagePolars {
		return nil
	}

	for i, a := range pl.airfoils {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case a.Type == model.Blend:
			log.WithFields(log.Fields{"airfoil": a.Name}).Info("blend airfoil, left to the geometry tools")
			continue
		case a.Type == model.User && i > 0:
			if err := pl.installUserFile(a.UserFile, DatFile(pl.opts.BuildDir, a.Name)); err != nil {
				return strakerr.WithAirfoil(err, i)
			}
		}

		r, err := pl.Prepare(ctx, i)
		if err != nil {
			return err
		}
		inputs, err := pl.Emit(ctx, r)
		if err != nil {
			return err
		}
		if stage == StageAll && a.Type == model.Opt {
			if i == 0 {
				log.WithFields(log.Fields{"airfoil": a.Name}).Info("root airfoil is the strak seed, not optimized")
				continue
			}
			if _, err := pl.Optimize(ctx, r, inputs); err != nil {
				return strakerr.WithAirfoil(err, i)
			}
		}
	}

	if stage == StageAll {
		return pl.ReferencePolars(ctx)
	}
	return nil
}

// Polars generates the root polars at every Re of the strak in one run of
// the analysis tool per polar type.
func (pl *Pipeline) Polars(ctx context.Context) error {
	if _, err := pl.Root(ctx); err != nil {
		return err
	}
	if err := pl.worker.Generate(ctx, pl.rootDat, pl.params.Reynolds); err != nil {
		return strakerr.WithAirfoil(err, 0)
	}
	for i, re := range pl.params.Reynolds {
		if _, err := pl.worker.Polar(ctx, pl.rootDat, re); err != nil {
			return strakerr.WithAirfoil(err, i)
		}
	}
	return nil
}

// Optimize runs the optimizer passes of r. Pass k starts from the result
// of pass k-1; with several competitors the one closest to the targets
// wins. The final airfoil is copied to the airfoils directory.
func (pl *Pipeline) Optimize(ctx context.Context, r *Result, inputs []string) (string, error) {
	a := r.Airfoil
	passes := pl.params.QualityPreset().Passes()
	if len(inputs) != len(passes) {
		return "", strakerr.New(strakerr.InvalidInputFile, len(inputs), "%d input files for %d passes", len(inputs), len(passes))
	}

	seed, err := filepath.Abs(r.SeedFile)
	if err != nil {
		return "", err
	}
	for k, pass := range passes {
		input, err := filepath.Abs(inputs[k])
		if err != nil {
			return "", err
		}
		passName := fmt.Sprintf("%s_pass%d", a.Name, k+1)

		var candidates []string
		for c := 0; c < pass.Competitors; c++ {
			out := passName
			if pass.Competitors > 1 {
				out = fmt.Sprintf("%s_c%d", passName, c+1)
			}
			dat, err := pl.runOptimizer(ctx, a, input, seed, out)
			if err != nil {
				return "", err
			}
			candidates = append(candidates, dat)
		}

		best := candidates[0]
		if len(candidates) > 1 {
			if best, err = pl.selectCompetitor(ctx, r, candidates); err != nil {
				return "", err
			}
			passDat := filepath.Join(pl.opts.BuildDir, passName+".dat")
			if err := util.CopyFile(best, passDat); err != nil {
				return "", err
			}
			best = passDat
		}
		log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "pass": k + 1, "result": best}).Info("optimizer pass done")
		seed = best
	}

	final := DatFile(pl.opts.BuildDir, a.Name)
	if err := util.CopyFile(seed, final); err != nil {
		return "", err
	}
	// polars computed for an earlier version of this airfoil are stale
	if err := pl.worker.Forget(a.Name); err != nil {
		return "", err
	}
	if _, err := pl.WriteTargetPolar(ctx, r); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "file": final}).Info("airfoil finished")
	return final, nil
}

func (pl *Pipeline) runOptimizer(ctx context.Context, a model.Airfoil, input, seed, out string) (string, error) {
	log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "out": out}).Info("running optimizer")
	output, err := pl.runner.Run(ctx, pl.opts.BuildDir, pl.opts.Optimizer,
		"-i", input, "-r", fmt.Sprintf("%.0f", a.Re), "-a", seed, "-o", out)
	if err != nil {
		return "", strakerr.Wrap(strakerr.OptimizerFailed, out, err, "optimizer: %s", tail(output))
	}
	dat := filepath.Join(pl.opts.BuildDir, out+".dat")
	if !util.FileExists(dat) {
		return "", strakerr.New(strakerr.OptimizerFailed, dat, "optimizer produced no airfoil")
	}
	return dat, nil
}

func tail(out []byte) string {
	const max = 400
	if len(out) > max {
		return string(out[len(out)-max:])
	}
	return string(out)
}

// selectCompetitor returns the candidate whose polar deviates least from
// the spec-cl targets of r.
func (pl *Pipeline) selectCompetitor(ctx context.Context, r *Result, candidates []string) (string, error) {
	best, bestDev := "", math.Inf(1)
	for _, dat := range candidates {
		p, err := pl.worker.Polar(ctx, dat, r.Airfoil.Re)
		if err != nil {
			return "", err
		}
		dev := Deviation(p, r.OpPoints)
		log.WithFields(log.Fields{"airfoil": r.Airfoil.Name, "candidate": worker.AirfoilName(dat), "deviation": dev}).Debug("competitor evaluated")
		if dev < bestDev {
			best, bestDev = dat, dev
		}
		if err := pl.worker.Forget(worker.AirfoilName(dat)); err != nil {
			return "", err
		}
	}
	if best == "" {
		return "", strakerr.New(strakerr.OptimizerFailed, r.Airfoil.Name, "no competitor covers the targets")
	}
	return best, nil
}

// Deviation sums |CD - target| over the spec-cl op-points. Op-points the
// polar does not reach count as infinite.
func Deviation(p *polar.Polar, ops []model.OpPoint) float64 {
	var sum float64
	for _, op := range ops {
		if op.Mode != model.SpecCL || op.Missing {
			continue
		}
		cd, err := p.CDFromCL(op.Value)
		if err != nil {
			return math.Inf(1)
		}
		sum += math.Abs(cd - op.Target)
	}
	return sum
}

// ReferencePolars computes the polar_Reynolds polars of every finished
// airfoil for the comparison diagrams.
func (pl *Pipeline) ReferencePolars(ctx context.Context) error {
	res := pl.params.PolarReynolds
	if len(res) == 0 {
		return nil
	}
	ncrit := pl.params.NCrit
	if pl.params.PolarNCrit != nil {
		ncrit = *pl.params.PolarNCrit
	}
	w, err := worker.New(pl.workerConfig(pl.params, ncrit), pl.runner)
	if err != nil {
		return err
	}
	if pl.root != nil {
		if err := w.Tighten(pl.root); err != nil {
			return err
		}
	}
	for i, a := range pl.airfoils {
		dat := DatFile(pl.opts.BuildDir, a.Name)
		if !util.FileExists(dat) {
			continue
		}
		if err := w.Generate(ctx, dat, res); err != nil {
			return strakerr.WithAirfoil(err, i)
		}
	}
	log.WithFields(log.Fields{"re": res, "ncrit": ncrit}).Info("reference polars generated")
	return nil
}
