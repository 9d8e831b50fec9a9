// Package workertest fakes the external polar worker and optimizer for
// tests of the packages driving them.
package workertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"strakmachine/namelist"
	"strakmachine/polar"
	"strakmachine/worker"
)

const (
	PolarTool = "xfoil_worker"
	OptTool   = "xoptfoil-jx"
)

// Tools implements worker.Runner. The polar tool writes Synth polars for
// every requested Re; the optimizer copies its seed airfoil to the output.
type Tools struct {
	mu        sync.Mutex
	PolarRuns int
	OptRuns   [][]string
	OptFail   bool
}

var _ worker.Runner = (*Tools)(nil)

func (f *Tools) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags := map[string]string{}
	for i := 0; i < len(args)-1; i += 2 {
		flags[args[i]] = args[i+1]
	}
	switch name {
	case PolarTool:
		f.PolarRuns++
		return nil, writePolars(dir, flags["-i"], flags["-a"])
	case OptTool:
		f.OptRuns = append(f.OptRuns, args)
		if f.OptFail {
			return []byte("particle swarm diverged"), errors.New("exit status 2")
		}
		b, err := os.ReadFile(flags["-a"])
		if err != nil {
			return nil, err
		}
		return nil, os.WriteFile(filepath.Join(dir, flags["-o"]+".dat"), b, 0644)
	}
	return nil, fmt.Errorf("unexpected tool %s", name)
}

func writePolars(dir, input, dat string) error {
	doc, err := namelist.ReadFile(input)
	if err != nil {
		return err
	}
	g := doc.Group("polar_generation")
	typ, err := g.Int("type_of_polar")
	if err != nil {
		return err
	}
	res, _ := g.Get("polar_reynolds")
	ncrit, err := doc.Group("xfoil_run_options").Float("ncrit")
	if err != nil {
		return err
	}
	airfoil := worker.AirfoilName(dat)
	for _, s := range namelist.Split(res) {
		re, err := namelist.ParseFloat(s)
		if err != nil {
			return err
		}
		file := worker.T1FileName(re, ncrit)
		if polar.Type(typ) == polar.T2 {
			file = worker.T2FileName(re, ncrit)
		}
		p := Synth(airfoil, polar.Type(typ), re, ncrit)
		if err := p.WriteFile(filepath.Join(worker.PolarDir(dir, airfoil), file)); err != nil {
			return err
		}
	}
	return nil
}

// Synth is a linear lift curve with stall above 9 degrees and a drag
// parabola that grows as Re drops.
func Synth(name string, typ polar.Type, re, ncrit float64) *polar.Polar {
	p := polar.New(name, typ, re, ncrit)
	scale := 1 + 20000/re
	for k := 0; k <= 180; k++ {
		a := -6 + 0.1*float64(k)
		cl := 0.1 * (a + 1)
		cd := 0.006 + 0.01*(cl-0.1)*(cl-0.1)
		if a > 9 {
			cl = 1.0 - 0.05*(a-9)
			cd += 0.01 * (a - 9)
		}
		cd *= scale
		p.Add(polar.Row{Alpha: a, CL: cl, CD: cd, CDp: cd / 2, Cm: -0.05, TopXtr: 0.6, BotXtr: 0.9})
	}
	return p
}

// Setup writes the root airfoil and the parameter document into a fresh
// ressources directory below dir and returns the parameter file path.
func Setup(dir, doc string) (string, error) {
	res := filepath.Join(dir, "ressources")
	if err := os.MkdirAll(res, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(res, "JX-GT-15.dat"), []byte("JX-GT-15\n1.0 0.0\n0.0 0.0\n1.0 0.0\n"), 0644); err != nil {
		return "", err
	}
	path := filepath.Join(res, "strak_machineParams.txt")
	return path, os.WriteFile(path, []byte(doc), 0644)
}
