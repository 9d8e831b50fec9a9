package namelist

import (
	"strconv"
	"strings"

	"strakmachine/strakerr"
)

// Real formats v with a fixed number of decimals.
func Real(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// ShortReal formats v with the fewest digits that round-trip, always
// keeping a decimal point so Fortran reads it as a real.
func ShortReal(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func Int(v int) string {
	return strconv.Itoa(v)
}

func Bool(v bool) string {
	if v {
		return ".true."
	}
	return ".false."
}

func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		q := string(s[0])
		return strings.ReplaceAll(s[1:len(s)-1], q+q, q)
	}
	return s
}

// ParseFloat accepts Fortran exponents ("1.5d3") as well as Go syntax.
func ParseFloat(s string) (float64, error) {
	t := strings.TrimSpace(s)
	t = strings.Map(func(r rune) rune {
		if r == 'd' || r == 'D' {
			return 'e'
		}
		return r
	}, t)
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, strakerr.Wrap(strakerr.InvalidInputFile, s, err, "not a real")
	}
	return v, nil
}

func ParseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, strakerr.Wrap(strakerr.InvalidInputFile, s, err, "not an integer")
	}
	return v, nil
}

func ParseBool(s string) (bool, error) {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))
	switch t {
	case "true", "t":
		return true, nil
	case "false", "f":
		return false, nil
	}
	return false, strakerr.New(strakerr.InvalidInputFile, s, "not a logical")
}

// Split returns the comma separated items of a list literal. Commas
// inside quotes do not split.
func Split(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == ',':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		out = append(out, last)
	}
	return out
}

// Join is the inverse of Split.
func Join(items []string) string {
	return strings.Join(items, ", ")
}
