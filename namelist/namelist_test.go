package namelist

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strakmachine/strakerr"
)

const sample = `
! input for the polar worker
&polar_generation
  type_of_polar = 1
  op_point_range = -5.0, 12.0, 0.25   ! alpha range
  polar_reynolds = 150000, 100000,
  airfoil_name = 'JX, GT-15'
/

text between groups is ignored
&xfoil_run_options
  ncrit = 9.0d0
  viscous_mode = .true.
  op_point(2) = 0.2
  op_point(1) = 0.1
/
`

func TestRead(t *testing.T) {
	doc, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, doc.Groups, 2)

	g := doc.Group("polar_generation")
	require.NotNil(t, g)
	n, err := g.Int("type_of_polar")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, ok := g.Get("op_point_range")
	require.True(t, ok)
	assert.Equal(t, []string{"-5.0", "12.0", "0.25"}, Split(v))
	assert.Equal(t, "alpha range", g.find("op_point_range", 0).Comment)

	v, _ = g.Get("polar_reynolds")
	assert.Equal(t, []string{"150000", "100000"}, Split(v))

	name, err := g.String("airfoil_name")
	require.NoError(t, err)
	assert.Equal(t, "JX, GT-15", name)

	x := doc.Group("xfoil_run_options")
	ncrit, err := x.Float("ncrit")
	require.NoError(t, err)
	assert.Equal(t, 9.0, ncrit)
	visc, err := x.Bool("viscous_mode")
	require.NoError(t, err)
	assert.True(t, visc)

	arr := x.Array("op_point")
	require.Len(t, arr, 2)
	assert.Equal(t, "0.1", arr[0].Value)
	assert.Equal(t, 2, arr[1].Index)
}

func TestMissingKey(t *testing.T) {
	doc, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = doc.Group("xfoil_run_options").Float("xtript")
	assert.True(t, strakerr.Is(err, strakerr.MissingKey))

	_, err = doc.MustGroup("curvature")
	assert.True(t, strakerr.Is(err, strakerr.MissingKey))
}

func TestUnterminatedGroup(t *testing.T) {
	_, err := Read(strings.NewReader("&curvature\n  auto_curvature = .true.\n"))
	assert.True(t, strakerr.Is(err, strakerr.InvalidInputFile))
}

func TestWriteReadRoundTrip(t *testing.T) {
	doc := New()
	g := doc.Ensure("operating_conditions")
	g.Set("noppoint", Int(2))
	g.SetIndexed("op_mode", 1, Quote("spec-cl"))
	e := g.SetIndexed("op_point", 1, Real(0.05, 5))
	e.Comment = "maxSpeed"
	g.SetIndexed("op_mode", 2, Quote("spec-al"))
	g.SetIndexed("op_point", 2, Real(-1.25, 5))
	doc.Ensure("curvature").Set("check_curvature", Bool(false))

	path := filepath.Join(t.TempDir(), "in.nml")
	require.NoError(t, doc.WriteFile(path))

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.String(), back.String())
	assert.Equal(t, "maxSpeed", back.Group("operating_conditions").Array("op_point")[0].Comment)
}

func TestCommentLinesSurviveRewrite(t *testing.T) {
	const text = `! optimizer template
! shared by all airfoils
&optimization_options
  ! search
  search_type = 'global'
  initial_perturb = 0.0025   ! halves per pass
/
`
	doc, err := Read(strings.NewReader(text))
	require.NoError(t, err)
	g := doc.Group("optimization_options")
	assert.Equal(t, []string{"optimizer template", "shared by all airfoils"}, g.Comments)

	g.Set("initial_perturb", Real(0.00125, 6))
	out := doc.Clone().String()
	assert.Contains(t, out, "! optimizer template\n! shared by all airfoils\n&optimization_options\n  ! search\n  search_type = 'global'\n")
	assert.Contains(t, out, "! halves per pass")

	back, err := Read(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, out, back.String())
	v, err := back.Group("optimization_options").Float("initial_perturb")
	require.NoError(t, err)
	assert.Equal(t, 0.00125, v)
}

func TestCloneIsIndependent(t *testing.T) {
	doc, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	c := doc.Clone()
	c.Group("xfoil_run_options").Set("ncrit", "7.0")
	c.Group("xfoil_run_options").Delete("op_point")

	v, _ := doc.Group("xfoil_run_options").Get("ncrit")
	assert.Equal(t, "9.0d0", v)
	assert.Len(t, doc.Group("xfoil_run_options").Array("op_point"), 2)
	assert.Empty(t, c.Group("xfoil_run_options").Array("op_point"))
}

func TestLiterals(t *testing.T) {
	assert.Equal(t, "1.0", ShortReal(1))
	assert.Equal(t, "0.25", ShortReal(0.25))
	assert.Equal(t, "'it''s'", Quote("it's"))
	assert.Equal(t, "it's", Unquote("'it''s'"))

	v, err := ParseFloat("2.5D-3")
	require.NoError(t, err)
	assert.InDelta(t, 0.0025, v, 1e-15)

	_, err = ParseFloat("abc")
	assert.True(t, strakerr.Is(err, strakerr.InvalidInputFile))

	b, err := ParseBool(".F.")
	require.NoError(t, err)
	assert.False(t, b)
}
