package params

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strakmachine/model"
	"strakmachine/strak"
	"strakmachine/strakerr"
)

const doc = `{
    "seedFoilName": "JX-GT-15",
    "comment": "authored by hand",
    "reynolds": [150000, 100000, 70000],
    "airfoilNames": ["JX-GT-15", "JX-GT-12", "JX-GT-10"],
    "quality": "high",
    "numOpPoints": 15,
    "CL_min": -0.05,
    "geoParams": {
        "thickness": [null, 8.25, 7.5],
        "camber": [null, null, 1.8]
    },
    "opPointOverrides": {
        "JX-GT-10": [
            {"name": "op_1", "type": "spec-cl", "value": 0.1, "target": 0.0071},
            {"name": "alpha0", "mode": "spec-al", "op_point": -1.5, "target_value": 0, "reynolds": 1050000, "weighting": 2}
        ]
    },
    "viewer": {"zoom": 1.5, "colors": ["red", "blue"]}
}
`

func TestDecodeDefaults(t *testing.T) {
	p, err := Decode([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 3, p.NumAirfoils())
	assert.Equal(t, strak.QualityHigh, p.QualityPreset())
	assert.Equal(t, 15, p.NumOpPoints)
	assert.Equal(t, -0.05, p.CLMin)
	// defaults for absent keys
	assert.Equal(t, 15.0, p.MaxReynoldsFactor)
	assert.Equal(t, []float64{0.014, 0.042}, p.AdditionalOpPoints)
	assert.Equal(t, 9.0, p.NCrit)
	assert.Equal(t, 0.05, p.CLMerge)
	assert.Equal(t, 0.001, p.AlphaResolution)
	assert.True(t, p.AdaptInitialPerturb)
	assert.Nil(t, p.WeightingSpecAl)

	assert.Equal(t, model.User, p.Type(0))
	assert.Equal(t, model.Opt, p.Type(2))
	assert.Equal(t, p.Reynolds[0]*15, p.MaxRe())
	assert.Equal(t, 1050000.0, p.T1Re(2))
}

func TestAirfoils(t *testing.T) {
	p, err := Decode([]byte(doc))
	require.NoError(t, err)

	afs := p.Airfoils("/work/ressources")
	require.Len(t, afs, 3)
	assert.Equal(t, filepath.Join("/work/ressources", "JX-GT-15.dat"), afs[0].UserFile)
	assert.Empty(t, afs[1].UserFile)
	assert.True(t, afs[0].Geo.Empty())
	require.NotNil(t, afs[1].Geo.Thickness)
	assert.InDelta(t, 0.0825, *afs[1].Geo.Thickness, 1e-12)
	assert.Nil(t, afs[1].Geo.Camber)
	assert.InDelta(t, 0.018, *afs[2].Geo.Camber, 1e-12)
	assert.Equal(t, 70000.0, afs[2].Re)
}

func TestLegacyOverrides(t *testing.T) {
	p, err := Decode([]byte(doc))
	require.NoError(t, err)

	ops, ok := p.Override("JX-GT-10")
	require.True(t, ok)
	require.Len(t, ops, 2)
	assert.Equal(t, model.SpecCL, ops[0].Mode)
	assert.Equal(t, 0.1, ops[0].Value)
	assert.Equal(t, 0.0071, ops[0].Target)
	assert.Equal(t, model.SpecAL, ops[1].Mode)
	assert.Equal(t, 1050000.0, *ops[1].Re)
	assert.Equal(t, 2.0, *ops[1].Weighting)

	_, ok = p.Override("JX-GT-12")
	assert.False(t, ok)
}

func TestMandatoryKeys(t *testing.T) {
	for _, key := range mandatory {
		t.Run(key, func(t *testing.T) {
			broken := strings.Replace(doc, `"`+key+`"`, `"x_`+key+`"`, 1)
			_, err := Decode([]byte(broken))
			require.Error(t, err)
			assert.True(t, strakerr.Is(err, strakerr.BadConfig))
		})
	}
}

func TestBadConfig(t *testing.T) {
	cases := map[string]string{
		"increasing reynolds": `{"seedFoilName": "a", "reynolds": [100000, 150000], "airfoilNames": ["a", "b"]}`,
		"name count":          `{"seedFoilName": "a", "reynolds": [150000, 100000], "airfoilNames": ["a"]}`,
		"negative reynolds":   `{"seedFoilName": "a", "reynolds": [-1], "airfoilNames": ["a"]}`,
		"bad type":            `{"seedFoilName": "a", "reynolds": [150000], "airfoilNames": ["a"], "airfoilTypes": ["morph"]}`,
		"not json":            `{"seedFoilName": `,
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(c))
			assert.True(t, strakerr.Is(err, strakerr.BadConfig), "%v", err)
		})
	}
}

func TestClampAndUnknownQuality(t *testing.T) {
	p, err := Decode([]byte(`{"seedFoilName": "a", "reynolds": [150000], "airfoilNames": ["a"], "numOpPoints": 3, "quality": "ultra"}`))
	require.NoError(t, err)
	assert.Equal(t, strak.MinOpPoints, p.NumOpPoints)
	assert.Equal(t, strak.QualityDefault, p.QualityPreset())
	assert.Equal(t, "ultra", p.Quality)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, err := Decode([]byte(doc))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "strak_machineParams.txt")
	require.NoError(t, p.SaveFile(path))
	back, err := LoadFile(path)
	require.NoError(t, err)

	back.doc, p.doc = nil, nil
	assert.Equal(t, p, back)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	// authored order first, unknown keys kept
	assert.Less(t, strings.Index(text, `"seedFoilName"`), strings.Index(text, `"comment"`))
	assert.Less(t, strings.Index(text, `"comment"`), strings.Index(text, `"reynolds"`))
	assert.Contains(t, text, `"authored by hand"`)
	assert.Contains(t, text, `"colors"`)
}

func TestOverridesSaved(t *testing.T) {
	p, err := Decode([]byte(doc))
	require.NoError(t, err)

	p.SetOverride("JX-GT-12", []model.OpPoint{{Name: "op_1", Mode: model.SpecCL, Value: 0.2, Target: 0.008}})
	p.ResetOverride("JX-GT-10")

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	back, err := Decode(buf.Bytes())
	require.NoError(t, err)

	_, ok := back.Override("JX-GT-10")
	assert.False(t, ok)
	ops, ok := back.Override("JX-GT-12")
	require.True(t, ok)
	assert.Equal(t, 0.008, ops[0].Target)

	p.ResetOverride("JX-GT-12")
	buf.Reset()
	require.NoError(t, p.Encode(&buf))
	assert.NotContains(t, buf.String(), "opPointOverrides")
}
