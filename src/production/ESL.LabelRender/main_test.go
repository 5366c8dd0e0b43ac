package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WritesPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "preview.png")
	var stdout bytes.Buffer

	err := run([]string{"--name", "Basmati Rice 5kg", "-p", "499.00", "-o", out, "--caption", "FRESH MART"}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestRun_RejectsStrayArguments(t *testing.T) {
	err := run([]string{"-o", filepath.Join(t.TempDir(), "x.png"), "extra"}, &bytes.Buffer{})
	assert.EqualError(t, err, "unexpected argument: extra")
}

func TestRun_Help(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"--help"}, &stdout))
	assert.Contains(t, stdout.String(), "--publish")
}
