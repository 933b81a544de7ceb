//go:build matprofile

package imageio

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestLoad_FailureAllocatesNothing(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))

	before := gocv.MatProfile.Count()
	_, err := Load(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	_, err = Load(garbage)
	assert.Error(t, err)
	_, err = FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Equal(t, before, gocv.MatProfile.Count())
}
