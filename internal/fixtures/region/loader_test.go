package region_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amirasaad/fxengine/internal/fixtures/region"
	"github.com/amirasaad/fxengine/pkg/money"
	pkgregion "github.com/amirasaad/fxengine/pkg/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegionsJSON_Embedded(t *testing.T) {
	cfg, err := region.LoadRegionsJSON("")
	require.NoError(t, err)

	table, err := pkgregion.NewTable(cfg, nil)
	require.NoError(t, err)

	de, err := table.Lookup("de")
	require.NoError(t, err)
	assert.Equal(t, money.EUR, de.Preferred)
	assert.Equal(t, "de-DE", de.Locale)
	assert.Equal(t, "GLOBAL", table.Default().Code)
}

func TestLoadRegionsJSON_Errors(t *testing.T) {
	_, err := region.LoadRegionsJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "regions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"default": `), 0o600))
	_, err = region.LoadRegionsJSON(path)
	assert.Error(t, err)
}
