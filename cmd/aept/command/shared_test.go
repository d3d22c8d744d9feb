package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/aptconfig"
)

func TestOptOrDefaultFallsBackWhenOptionUnset(t *testing.T) {
	t.Parallel()

	cfg := &aptconfig.Config{Options: map[string]string{"lists_dir": "/custom/lists"}}

	require.Equal(t, "/custom/lists", optOrDefault(cfg, "lists_dir", "/default"))
	require.Equal(t, "/default", optOrDefault(cfg, "missing", "/default"))
}

func TestLoadEnvAppliesConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, dir)

	e, err := loadEnv(nil)
	require.NoError(t, err)
	defer e.Close()

	require.Equal(t, dir+"/status", e.ec.Paths.StatusFile)
	require.Equal(t, dir+"/cache", e.ec.Paths.CacheDir)
}
