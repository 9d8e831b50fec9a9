package polar

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strakmachine/strakerr"
)

// small polar used by the lookup and merge scenarios
func scenarioPolar() *Polar {
	p := New("SD7003", T1, 150000, 9)
	alpha := []float64{-2, 0, 2, 4, 6}
	cl := []float64{-0.1, 0.0, 0.2, 0.5, 0.9}
	cd := []float64{0.0110, 0.0090, 0.0085, 0.0095, 0.0120}
	for i := range alpha {
		p.Add(Row{Alpha: alpha[i], CL: cl[i], CD: cd[i], CDp: cd[i] / 2, Cm: -0.05, TopXtr: 0.8, BotXtr: 0.9})
	}
	return p
}

// polar with a drag bucket, used for feature location
func bucketPolar() *Polar {
	p := New("JX-GT-15", Merged, 150000, 9)
	cl := []float64{-0.30, -0.20, -0.10, 0.00, 0.10, 0.20, 0.30, 0.40, 0.50, 0.60, 0.70, 0.80, 0.90, 0.95, 0.92}
	cd := []float64{0.0140, 0.0120, 0.0100, 0.0090, 0.0085, 0.0080, 0.0082, 0.0086, 0.0090, 0.0095, 0.0102, 0.0110, 0.0125, 0.0150, 0.0200}
	// insert in reverse order, the way a two-sided alpha sweep delivers rows
	for i := len(cl) - 1; i >= 0; i-- {
		p.Add(Row{Alpha: float64(i - 4), CL: cl[i], CD: cd[i], CDp: cd[i] / 2, Cm: -0.06, TopXtr: 0.7, BotXtr: 0.95})
	}
	return p
}

func TestAddKeepsAlphaSorted(t *testing.T) {
	p := bucketPolar()
	require.Equal(t, 15, p.Len())
	for i := 0; i < p.Len()-1; i++ {
		assert.Less(t, p.Alpha[i], p.Alpha[i+1])
	}
	for i := range p.CL {
		assert.InDelta(t, p.CL[i]/p.CD[i], p.Glide[i], 1e-12)
	}

	assert.False(t, p.Add(Row{Alpha: 0, CL: 1, CD: 1}), "duplicate alpha must be rejected")
	assert.Equal(t, 15, p.Len())
}

func TestAnalyze(t *testing.T) {
	p := bucketPolar()
	f, err := p.Analyze(AnalyzeOptions{CLMin: -0.1, CLPreMaxSpeed: 0.3, MaxLiftDistance: 0.05})
	require.NoError(t, err)

	assert.Equal(t, 11, f.MaxGlide)
	assert.Equal(t, 5, f.MaxSpeed, "first local CD minimum left of maxGlide")
	assert.Equal(t, 2, f.Min)
	assert.Equal(t, 6, f.PreMaxSpeed)
	assert.Equal(t, 13, f.MaxLift)
	assert.InDelta(t, 0.90, f.PreMaxLiftCL, 1e-12)
	assert.Equal(t, 12, f.PreMaxLift)
	assert.InDelta(t, -1.0, f.AlphaCL0, 1e-12)
	assert.Same(t, f, p.Features)
}

func TestAnalyzeZeroCrossingInterpolated(t *testing.T) {
	p := New("x", T1, 1e5, 9)
	p.Add(Row{Alpha: -1, CL: -0.05, CD: 0.01})
	p.Add(Row{Alpha: 1, CL: 0.15, CD: 0.01})
	p.Add(Row{Alpha: 3, CL: 0.35, CD: 0.012})
	f, err := p.Analyze(AnalyzeOptions{CLMin: -0.05, CLPreMaxSpeed: 0.1, MaxLiftDistance: 0.01})
	require.NoError(t, err)
	assert.InDelta(t, -0.5, f.AlphaCL0, 1e-12)
}

func TestAnalyzeNoZeroCrossing(t *testing.T) {
	p := New("x", T1, 1e5, 9)
	p.Add(Row{Alpha: 1, CL: 0.15, CD: 0.01})
	p.Add(Row{Alpha: 3, CL: 0.35, CD: 0.012})
	_, err := p.Analyze(AnalyzeOptions{CLMin: 0.1, CLPreMaxSpeed: 0.2, MaxLiftDistance: 0.01})
	require.Error(t, err)
	assert.True(t, strakerr.Is(err, strakerr.NoZeroCrossing))
}

func TestLookupInterpolates(t *testing.T) {
	p := scenarioPolar()

	cd, err := p.CDFromCL(0.3)
	require.NoError(t, err)
	assert.InDelta(t, 0.0085+(0.0095-0.0085)/3, cd, 1e-12)

	cl, err := p.CLFromAlpha(3)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, cl, 1e-12)

	alpha, err := p.AlphaFromCL(0.35)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, alpha, 1e-12)

	cd, err = p.CDFromAlpha(-1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0100, cd, 1e-12)

	// exact row hits
	cd, err = p.CDFromCL(0.9)
	require.NoError(t, err)
	assert.InDelta(t, 0.0120, cd, 1e-12)
}

func TestLookupOutOfRange(t *testing.T) {
	p := scenarioPolar()
	for _, tc := range []struct {
		name string
		f    func() (float64, error)
	}{
		{"CD from CL above", func() (float64, error) { return p.CDFromCL(1.5) }},
		{"CD from CL below", func() (float64, error) { return p.CDFromCL(-0.2) }},
		{"CL from alpha", func() (float64, error) { return p.CLFromAlpha(7) }},
		{"alpha from CL", func() (float64, error) { return p.AlphaFromCL(-1) }},
		{"CL from CD", func() (float64, error) { return p.CLFromCD(0.5) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.f()
			require.Error(t, err)
			assert.True(t, strakerr.Is(err, strakerr.OutOfRange))
		})
	}
}

func TestCLFromCD(t *testing.T) {
	p := scenarioPolar()
	f, err := p.Analyze(AnalyzeOptions{CLMin: -0.1, CLPreMaxSpeed: 0.2, MaxLiftDistance: 0.1})
	require.NoError(t, err)
	require.Equal(t, 2, f.MaxSpeed)

	// 0.0090 also occurs below the bucket; the upper branch wins
	cl, err := p.CLFromCD(0.0090)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, cl, 1e-12)
}

func TestWriteParseRoundTrip(t *testing.T) {
	p := bucketPolar()
	p.MergeCL = 0.05
	p.recomputeSwitchIdx()

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))
	q, err := Parse(&buf)
	require.NoError(t, err)

	assert.Equal(t, "JX-GT-15", q.AirfoilName)
	assert.Equal(t, Merged, q.Type)
	assert.InDelta(t, 150000, q.Re, 1e-6)
	assert.InDelta(t, 9.0, q.NCrit, 1e-9)
	assert.InDelta(t, 0.05, q.MergeCL, 1e-9)
	assert.Equal(t, p.SwitchIdx, q.SwitchIdx)
	require.Equal(t, p.Len(), q.Len())
	for i := 0; i < p.Len(); i++ {
		assert.InDelta(t, p.Alpha[i], q.Alpha[i], 1e-9)
		assert.InDelta(t, p.CL[i], q.CL[i], 1e-9)
		assert.InDelta(t, p.CD[i], q.CD[i], 1e-9)
		assert.InDelta(t, p.CDp[i], q.CDp[i], 1e-5)
		assert.InDelta(t, p.Cm[i], q.Cm[i], 1e-9)
	}
}

func TestWriteFileAndTypes(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range []Type{T1, T2} {
		p := scenarioPolar()
		p.Type = typ
		path := filepath.Join(dir, typ.String()+".txt")
		require.NoError(t, p.WriteFile(path))
		q, err := ParseFile(path)
		require.NoError(t, err)
		assert.Equal(t, typ, q.Type)
	}
}

func TestParseSkipsSentinel(t *testing.T) {
	p := scenarioPolar()
	var buf bytes.Buffer
	require.NoError(t, p.WriteTerminated(&buf))
	assert.True(t, strings.HasSuffix(buf.String(), "   0.000   0.0000   0.00000   0.00000   0.0000   0.0000   0.0000\n"))

	q, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Len(), q.Len())
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader(" Calculated polar for: x\n Re = 0.1 e 6\n"))
	require.Error(t, err)
	assert.True(t, strakerr.Is(err, strakerr.MalformedPolar))

	_, err = Parse(strings.NewReader(" ------- --------\n  1.0  0.2  0.01\n"))
	require.Error(t, err)
	assert.True(t, strakerr.Is(err, strakerr.MalformedPolar))

	_, err = Parse(strings.NewReader(" ------- --------\n  1.0  0.2  0.01 abc 0 0 0\n"))
	require.Error(t, err)
	assert.True(t, strakerr.Is(err, strakerr.MalformedPolar))
}

func TestParseMalformedHeaderValues(t *testing.T) {
	for what, header := range map[string]string{
		"Ncrit":    " Mach =   0.000     Re =     0.150 e 6     Ncrit =   9.0.0\n",
		"Mach":     " Mach =   0..1     Re =     0.150 e 6     Ncrit =   9.000\n",
		"CL_merge": " Merged polar, CL_merge = 0.0.5\n",
	} {
		text := " Calculated polar for: x\n" + header + " ------- --------\n   1.0 0.3 0.009 0.003 -0.05 0.7 0.9\n"
		_, err := Parse(strings.NewReader(text))
		require.Error(t, err, what)
		assert.True(t, strakerr.Is(err, strakerr.MalformedPolar), what)
		assert.Contains(t, err.Error(), what)
	}
}

func TestParseXfoilHeader(t *testing.T) {
	const text = `
       XFOIL         Version 6.96

 Calculated polar for: RG15

 2 2 Reynolds number ~ 1/sqrt(CL)   Mach number ~ 1/sqrt(CL)

 xtrf =   1.000 (top)        1.000 (bottom)
 Mach =   0.000     Re =     0.150 e 6     Ncrit =   9.000

  alpha    CL        CD       CDp       Cm     Top_Xtr  Bot_Xtr
 ------- -------- --------- --------- -------- -------- --------
   1.000   0.3000   0.00900   0.00300  -0.0500   0.7000   0.9000
  -1.000   0.1000   0.00950   0.00310  -0.0500   0.7100   0.9000
`
	p, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "RG15", p.AirfoilName)
	assert.Equal(t, T2, p.Type)
	assert.InDelta(t, 150000, p.Re, 1e-6)
	assert.Equal(t, []float64{-1, 1}, p.Alpha)
}

func TestMergeWithItselfIsIdentity(t *testing.T) {
	p := scenarioPolar()
	m, err := Merge(p, p, 0.2)
	require.NoError(t, err)
	assert.Equal(t, Merged, m.Type)
	assert.Equal(t, 2, m.SwitchIdx)

	var want, got bytes.Buffer
	require.NoError(t, p.Write(&want))
	require.NoError(t, m.Write(&got))
	assert.Equal(t, dataSection(want.String()), dataSection(got.String()))

	q, err := Parse(&got)
	require.NoError(t, err)
	assert.Equal(t, 2, q.SwitchIdx)
}

func dataSection(s string) string {
	return s[strings.Index(s, dashes):]
}

func TestMergeTakesLowerHalfFromT1(t *testing.T) {
	t1 := scenarioPolar()
	t2 := scenarioPolar()
	for i := range t2.CD {
		t2.CD[i] += 0.001
	}
	m, err := Merge(t1, t2, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SwitchIdx)
	assert.Equal(t, []float64{-2, 0, 2, 4, 6}, m.Alpha)
	assert.Equal(t, t1.CD[:2], m.CD[:2])
	assert.Equal(t, t2.CD[2:], m.CD[2:])
}

func TestResample(t *testing.T) {
	p := bucketPolar()
	p.MergeCL = 0.05
	const step = 0.01
	r, err := p.Resample(step)
	require.NoError(t, err)

	minDiff := math.Inf(1)
	for i := 0; i < r.Len()-1; i++ {
		minDiff = math.Min(minDiff, r.Alpha[i+1]-r.Alpha[i])
	}
	assert.InDelta(t, step, minDiff, 1e-10)
	assert.InDelta(t, p.Alpha[p.Len()-1], r.Alpha[r.Len()-1], 1e-9)

	// switch index is the last row at or below CL_merge
	assert.LessOrEqual(t, r.CL[r.SwitchIdx], 0.05)
	assert.Greater(t, r.CL[r.SwitchIdx+1], 0.05)

	cl, err := r.CLFromAlpha(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, cl, 1e-9)

	again, err := r.Resample(step)
	require.NoError(t, err)
	assert.Equal(t, r.Alpha, again.Alpha)
	assert.Equal(t, r.CL, again.CL)
	assert.Equal(t, r.CD, again.CD)
}
