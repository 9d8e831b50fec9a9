package strak

import (
	log "github.com/sirupsen/logrus"

	"strakmachine/model"
	"strakmachine/polar"
	"strakmachine/strakerr"
)

// TargetPolar projects the spec-cl op-points onto a polar that can be
// overlaid on computed polars. Alpha of each row comes from the root polar.
func TargetPolar(name string, re, ncrit float64, points []model.OpPoint, root *polar.Polar) (*polar.Polar, error) {
	p := polar.New(name, polar.T2, re, ncrit)
	for _, op := range points {
		if op.Mode != model.SpecCL || op.Missing {
			continue
		}
		alpha, err := root.AlphaFromCL(op.Value)
		if strakerr.Is(err, strakerr.OutOfRange) {
			log.WithFields(log.Fields{"airfoil": name, "opPoint": op.Name}).Debug("op-point outside root polar, not drawn")
			continue
		}
		if err != nil {
			return nil, err
		}
		if !p.Add(polar.Row{Alpha: alpha, CL: op.Value, CD: op.Target}) {
			log.WithFields(log.Fields{"airfoil": name, "opPoint": op.Name}).Debug("duplicate alpha in target polar")
		}
	}
	return p, nil
}

// WriteTargetPolar writes the target polar with the terminating zero row.
func WriteTargetPolar(path, name string, re, ncrit float64, points []model.OpPoint, root *polar.Polar) error {
	p, err := TargetPolar(name, re, ncrit, points, root)
	if err != nil {
		return err
	}
	return p.WriteTerminatedFile(path)
}
