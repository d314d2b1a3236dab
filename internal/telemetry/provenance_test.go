package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendProvenanceAppendsLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "provenance.log")

	require.NoError(t, AppendProvenance(path, 1000, 42, "deadbeef", "cafebabe"))
	require.NoError(t, AppendProvenance(path, 2000, 42, "deadbeef", "cafebabe"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1000 42 deadbeef cafebabe", lines[0])
}
