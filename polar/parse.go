package polar

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"strakmachine/strakerr"
)

var (
	reName   = regexp.MustCompile(`Calculated polar for:\s*(.*)$`)
	reRe     = regexp.MustCompile(`Re\s*=\s*([-+\d.]+)\s*e\s*([-+]?\d+)`)
	reMach   = regexp.MustCompile(`Mach\s*=\s*([-+\d.]+)`)
	reNCrit  = regexp.MustCompile(`Ncrit\s*=\s*([-+\d.]+)`)
	reType   = regexp.MustCompile(`^\s*([123])\s+[123]\s+Reynolds`)
	reMerged = regexp.MustCompile(`Merged polar, CL_merge\s*=\s*([-+\d.]+)`)
)

// Parse reads a polar in XFOIL text format.
func Parse(r io.Reader) (*Polar, error) {
	p := New("", T1, 0, 0)

	sc := bufio.NewScanner(r)
	inData := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if !inData {
			var err error
			if m := reName.FindStringSubmatch(line); m != nil {
				p.AirfoilName = strings.TrimSpace(m[1])
			}
			if m := reType.FindStringSubmatch(line); m != nil {
				t, _ := strconv.Atoi(m[1])
				p.Type = Type(t)
			}
			if m := reMerged.FindStringSubmatch(line); m != nil {
				p.Type = Merged
				if p.MergeCL, err = headerFloat(m[1], "CL_merge", line, lineNo); err != nil {
					return nil, err
				}
			}
			if m := reRe.FindStringSubmatch(line); m != nil {
				mant, err1 := strconv.ParseFloat(m[1], 64)
				exp, err2 := strconv.Atoi(m[2])
				if err1 != nil || err2 != nil {
					return nil, strakerr.New(strakerr.MalformedPolar, line, "line %d: bad Reynolds number", lineNo)
				}
				p.Re = mant * pow10(exp)
			}
			if m := reMach.FindStringSubmatch(line); m != nil {
				if p.Mach, err = headerFloat(m[1], "Mach", line, lineNo); err != nil {
					return nil, err
				}
			}
			if m := reNCrit.FindStringSubmatch(line); m != nil {
				if p.NCrit, err = headerFloat(m[1], "Ncrit", line, lineNo); err != nil {
					return nil, err
				}
			}
			if strings.HasPrefix(strings.TrimSpace(line), "-------") {
				inData = true
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 7 {
			return nil, strakerr.New(strakerr.MalformedPolar, line, "line %d: expected 7 columns, got %d", lineNo, len(fields))
		}
		var v [7]float64
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, strakerr.Wrap(strakerr.MalformedPolar, fields[i], err, "line %d", lineNo)
			}
			v[i] = f
		}
		row := Row{Alpha: v[0], CL: v[1], CD: v[2], CDp: v[3], Cm: v[4], TopXtr: v[5], BotXtr: v[6]}
		if row == (Row{}) {
			// terminating sentinel of target polars
			continue
		}
		p.Add(row)
	}
	if err := sc.Err(); err != nil {
		return nil, strakerr.Wrap(strakerr.MalformedPolar, nil, err, "read")
	}
	if !inData {
		return nil, strakerr.New(strakerr.MalformedPolar, nil, "no data section found")
	}
	if p.Type == Merged {
		p.recomputeSwitchIdx()
	}
	return p, nil
}

func headerFloat(s, what, line string, lineNo int) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, strakerr.Wrap(strakerr.MalformedPolar, line, err, "line %d: bad %s", lineNo, what)
	}
	return f, nil
}

func ParseFile(path string) (*Polar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		if e, ok := err.(*strakerr.Error); ok && e.Value == nil {
			e.Value = path
		}
		return nil, err
	}
	return p, nil
}

func pow10(e int) float64 {
	r := 1.0
	for ; e > 0; e-- {
		r *= 10
	}
	for ; e < 0; e++ {
		r /= 10
	}
	return r
}
