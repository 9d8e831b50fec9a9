package polar

import (
	"fmt"
	"io"

	"strakmachine/util"
)

const (
	header  = "  alpha    CL        CD       CDp       Cm     Top_Xtr  Bot_Xtr"
	dashes  = " ------- -------- --------- --------- -------- -------- --------"
	rowFmt  = " %7.3f %8.4f %9.5f %9.5f %8.4f %8.4f %8.4f\n"
	version = "       XFOIL         Version 6.99"
)

// Write emits p in XFOIL text format. Re is written as a multiple of
// 1e3 so that Reynolds numbers survive the round trip to 1.
func (p *Polar) Write(w io.Writer) error {
	return p.write(w, false)
}

// WriteTerminated appends an all-zero row after the data. Viewers that
// drop the last row of an imported polar rely on it.
func (p *Polar) WriteTerminated(w io.Writer) error {
	return p.write(w, true)
}

func (p *Polar) write(w io.Writer, sentinel bool) error {
	var typeLine string
	switch p.Type {
	case T2:
		typeLine = " 2 2 Reynolds number ~ 1/sqrt(CL)   Mach number ~ 1/sqrt(CL)"
	case Merged:
		typeLine = fmt.Sprintf(" 1 1 Reynolds number fixed          Mach number fixed\n Merged polar, CL_merge = %8.4f", p.MergeCL)
	default:
		typeLine = " 1 1 Reynolds number fixed          Mach number fixed"
	}

	_, err := fmt.Fprintf(w, "\n%s\n\n Calculated polar for: %s\n\n%s\n\n"+
		" xtrf =   1.000 (top)        1.000 (bottom)\n"+
		" Mach = %7.3f     Re = %9.3f e 3     Ncrit = %7.3f\n\n%s\n%s\n",
		version, p.AirfoilName, typeLine, p.Mach, p.Re/1e3, p.NCrit, header, dashes)
	if err != nil {
		return err
	}
	for i := range p.Alpha {
		if _, err := fmt.Fprintf(w, rowFmt, p.Alpha[i], p.CL[i], p.CD[i], p.CDp[i], p.Cm[i], p.TopXtr[i], p.BotXtr[i]); err != nil {
			return err
		}
	}
	if sentinel {
		_, err = fmt.Fprintf(w, rowFmt, 0., 0., 0., 0., 0., 0., 0.)
	}
	return err
}

// WriteFile replaces path atomically.
func (p *Polar) WriteFile(path string) error {
	return util.WriteFileAtomic(path, p.Write)
}

func (p *Polar) WriteTerminatedFile(path string) error {
	return util.WriteFileAtomic(path, p.WriteTerminated)
}
