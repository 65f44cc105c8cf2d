package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwandaorbitguard/orbit-guard/core"
)

func TestLoadReferenceTLEs(t *testing.T) {
	in := `[{"id":" iss ","line1":"` + issLine1 + `","line2":"` + issLine2 + `","country":"International"}]`
	refs, err := LoadReferenceTLEs(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "iss", refs[0].ID)
	assert.Equal(t, "iss", refs[0].Name)
	assert.Equal(t, "International", refs[0].Country)
}

func TestLoadReferenceTLEsRejectsBadEntries(t *testing.T) {
	in := `[
		{"id":"","line1":"` + issLine1 + `","line2":"` + issLine2 + `"},
		{"id":"a","line1":"` + issLine1 + `","line2":"` + issLine2 + `"},
		{"id":"a","line1":"` + issLine1 + `","line2":"` + issLine2 + `"},
		{"id":"b","line1":"garbage","line2":"garbage"}
	]`
	_, err := LoadReferenceTLEs(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
	assert.Contains(t, err.Error(), `duplicate id "a"`)
	assert.ErrorIs(t, err, core.ErrInvalidTLE)

	_, err = LoadReferenceTLEs(strings.NewReader("{"))
	require.Error(t, err)
}

func TestLoadReferenceTLEFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.json")
	body := `[{"id":"iss","name":"ISS (ZARYA)","line1":"` + issLine1 + `","line2":"` + issLine2 + `"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	refs, err := LoadReferenceTLEFile(path)
	require.NoError(t, err)
	s := newTestScene(t, Config{Satellites: 1}, WithReferenceTLEs(refs...))
	_, err = s.Catalog().Satellite("iss")
	require.NoError(t, err)

	_, err = LoadReferenceTLEFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
