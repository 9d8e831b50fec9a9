package worker

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ReString encodes a Reynolds number in thousands with three decimals,
// 148600 -> "148.600".
func ReString(re float64) string {
	return fmt.Sprintf("%.3f", re/1000)
}

// PolarDir is the cache directory of one airfoil.
func PolarDir(buildDir, airfoil string) string {
	return filepath.Join(buildDir, airfoil+"_polars")
}

func T1FileName(re, ncrit float64) string {
	return fmt.Sprintf("T1_Re%s_M0.00_N%.1f.txt", ReString(re), ncrit)
}

func T2FileName(re, ncrit float64) string {
	return fmt.Sprintf("T2_Re%s_M0.00_N%.1f.txt", ReString(re), ncrit)
}

func MergedFileName(re float64) string {
	return fmt.Sprintf("merged_polar_%s.txt", ReString(re))
}

func ResampledFileName(re float64) string {
	return fmt.Sprintf("resampled_%s.msgpack.zst", ReString(re))
}

func TargetPolarFileName(re float64) string {
	return fmt.Sprintf("target_polar_%s.txt", ReString(re))
}

// AirfoilName is the name of a coordinate file without directory and
// extension.
func AirfoilName(datFile string) string {
	base := filepath.Base(datFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
