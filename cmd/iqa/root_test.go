package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a w x h image whose pixels come from fn.
func writePNG(t *testing.T, path string, w, h int, fn func(x, y int) uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := fn(x, y)
			img.Set(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func gradient(x, y int) uint8 { return uint8((x*7 + y*3) % 256) }

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompareIdenticalImages(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 24, 20, gradient)
	writePNG(t, b, 24, 20, gradient)

	out, err := run(t, "psnr", "--ref", a, "--img", b)
	require.NoError(t, err)
	assert.Equal(t, "psnr 100.000000\n", out)

	out, err = run(t, "ssim", "--ref", a, "--img", b, "--gray")
	require.NoError(t, err)
	assert.Equal(t, "ssim 1.000000\n", out)
}

func TestCompareShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 24, 20, gradient)
	writePNG(t, b, 12, 10, gradient)

	_, err := run(t, "psnr", "--ref", a, "--img", b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same dimensions")

	out, err := run(t, "psnr", "--ref", a, "--img", b, "--match-size")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "psnr "))
}

func TestCompareUsesConfigBorder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 20, 20, gradient)
	// Differences only in the outer 2-pixel frame.
	writePNG(t, b, 20, 20, func(x, y int) uint8 {
		if x < 2 || y < 2 || x >= 18 || y >= 18 {
			return 0
		}
		return gradient(x, y)
	})
	cfg := filepath.Join(dir, "iqa.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("border: 2\nlog_level: debug\n"), 0o644))

	out, err := run(t, "--config", cfg, "psnr", "--ref", a, "--img", b)
	require.NoError(t, err)
	assert.Equal(t, "psnr 100.000000\n", out)

	out, err = run(t, "--config", cfg, "psnr", "--ref", a, "--img", b, "--border", "0")
	require.NoError(t, err)
	assert.NotEqual(t, "psnr 100.000000\n", out)
}

func TestSequenceAndSummarize(t *testing.T) {
	frames := t.TempDir()
	for i := 1; i <= 3; i++ {
		writePNG(t, filepath.Join(frames, "frame-"+string(rune('0'+i))+".png"), 16, 16, gradient)
	}

	out, err := run(t, "sequence", "--dir", frames)
	require.NoError(t, err)
	assert.Equal(t, "psnr 100.000000\nssim 1.000000\n", out)

	ckpt := t.TempDir()
	db := filepath.Join(t.TempDir(), "history.db")
	_, err = run(t, "summarize", "--dir", frames, "--checkpoint-dir", ckpt,
		"--mode", "train", "--step", "12", "--loss", "1,2,3", "--history-db", db)
	require.NoError(t, err)

	loss, err := os.ReadFile(filepath.Join(ckpt, "train_loss.txt"))
	require.NoError(t, err)
	assert.Equal(t, "12 2.0\n", string(loss))
	psnr, err := os.ReadFile(filepath.Join(ckpt, "train_psnr.txt"))
	require.NoError(t, err)
	assert.Equal(t, "12 100\n", string(psnr))
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestRootRejectsBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "sequence", "--dir", t.TempDir())
	assert.Error(t, err)
}
