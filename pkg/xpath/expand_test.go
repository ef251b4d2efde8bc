package xpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := Expand("~/videotexture.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "videotexture.yaml"), p)

	t.Setenv("VIDEOTEXTURE_TEST_DIR", "/tmp/vt")
	p, err = Expand("$VIDEOTEXTURE_TEST_DIR/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/vt/config.yaml", p)

	p, err = Expand("relative/path")
	require.NoError(t, err)
	assert.Equal(t, "relative/path", p)
}
