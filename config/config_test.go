package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strakmachine/strakerr"
)

func TestDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.ini"))
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.BuildDir)
	assert.Equal(t, "xfoil_worker", cfg.PolarWorker)
	assert.Equal(t, "xoptfoil-jx", cfg.Optimizer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 0.25, cfg.AlphaStep)
	assert.Empty(t, cfg.Template)
}

func TestShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, "ressources/strak_machineParams.txt", cfg.Params)
	assert.Equal(t, -20.0, cfg.AlphaMin)
	assert.Equal(t, 20.0, cfg.AlphaMax)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("[tools]\ntimeout = 30\n[polar]\nalpha_min = -5\nalpha_max = 15\n"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Timeout)
	assert.Equal(t, -5.0, cfg.AlphaMin)
	assert.Equal(t, "build", cfg.BuildDir)
}

func TestInvalid(t *testing.T) {
	cases := map[string]string{
		"range":   "[polar]\nalpha_min = 10\nalpha_max = 5\n",
		"step":    "[polar]\nalpha_step = 0\n",
		"level":   "[log]\nlevel = loud\n",
		"timeout": "[tools]\ntimeout = -1\n",
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(c))
			assert.True(t, strakerr.Is(err, strakerr.BadConfig), "%v", err)
		})
	}
}

func TestUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strak.ini")
	require.NoError(t, os.WriteFile(path, []byte("[paths\nbuild_dir = x\n"), 0644))
	_, err := Load(path)
	assert.True(t, strakerr.Is(err, strakerr.BadConfig))
}
