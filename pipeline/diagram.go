package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"strakmachine/diagram"
	"strakmachine/polar"
	"strakmachine/strak"
	"strakmachine/strakerr"
	"strakmachine/util"
	"strakmachine/worker"
)

func DiagramFile(buildDir, airfoil string) string {
	return filepath.Join(buildDir, airfoil+"_diagram.png")
}

// Diagram draws the reference, target and (once the airfoil exists) the
// achieved polar of airfoil i.
func (pl *Pipeline) Diagram(ctx context.Context, i int) (string, error) {
	r, err := pl.Load(ctx, i)
	if err != nil {
		return "", err
	}
	root, err := pl.Root(ctx)
	if err != nil {
		return "", err
	}
	a := r.Airfoil
	ref := r.Reference
	if ref == nil {
		if ref, _, err = pl.Reference(ctx, i); err != nil {
			return "", strakerr.WithAirfoil(err, i)
		}
	}
	target, err := strak.TargetPolar(a.Name, a.Re, pl.params.NCrit, r.OpPoints, root)
	if err != nil {
		return "", strakerr.WithAirfoil(err, i)
	}

	var achieved *polar.Polar
	if dat := DatFile(pl.opts.BuildDir, a.Name); i > 0 && util.FileExists(dat) && dat != r.SeedFile {
		if achieved, err = pl.worker.Polar(ctx, dat, a.Re); err != nil {
			return "", strakerr.WithAirfoil(err, i)
		}
	}

	path := DiagramFile(pl.opts.BuildDir, a.Name)
	title := fmt.Sprintf("%s, Re %s k", a.Name, worker.ReString(a.Re))
	err = diagram.Save(path, title,
		diagram.Curve{Label: "reference " + ref.AirfoilName, Polar: ref},
		diagram.Curve{Label: "target", Polar: target, Markers: true},
		diagram.Curve{Label: "achieved", Polar: achieved},
	)
	if err != nil {
		return "", strakerr.WithAirfoil(err, i)
	}
	log.WithFields(log.Fields{"airfoil": a.Name, "re": a.Re, "file": path}).Info("diagram written")
	return path, nil
}
