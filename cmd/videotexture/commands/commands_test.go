package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/config"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

func testCtx(t *testing.T) context.Context {
	l := xlogrus.Default().WithLevel(logger.LevelTrace)
	return logger.CtxWithLogger(context.Background(), l)
}

func TestFrameToImage(t *testing.T) {
	rgba := types.NewTargetSpec(2, 1, types.PixelFormatRGBA)
	img, err := frameToImage(rgba, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	r, g, b, a := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{5, 6, 7, 8}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})

	bgra := types.NewTargetSpec(1, 1, types.PixelFormatBGRA)
	img, err = frameToImage(bgra, []byte{10, 20, 30, 255})
	require.NoError(t, err)
	r, g, b, _ = img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{30, 20, 10}, []uint32{r >> 8, g >> 8, b >> 8})

	rgb := types.NewTargetSpec(1, 1, types.PixelFormatRGB)
	img, err = frameToImage(rgb, []byte{10, 20, 30})
	require.NoError(t, err)
	r, g, b, a = img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})

	lum := types.NewTargetSpec(2, 2, types.PixelFormatLuminance)
	img, err = frameToImage(lum, []byte{0, 50, 100, 150})
	require.NoError(t, err)
	r, _, _, _ = img.At(0, 1).RGBA()
	assert.Equal(t, uint32(100), r>>8)

	_, err = frameToImage(rgba, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestSnapshotterEveryNth(t *testing.T) {
	ctx := testCtx(t)
	dir := t.TempDir()

	target := types.NewTargetSpec(4, 2, types.PixelFormatRGBA)
	frame := make([]byte, target.FrameByteSize)
	for i := range frame {
		frame[i] = 0xff
	}

	s := newSnapshotter("screen", dir, 2, 90)
	for range 5 {
		s.Upload(ctx, target, frame)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "screen-00000002.webp", entries[0].Name())
	assert.Equal(t, "screen-00000004.webp", entries[1].Name())

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()
	img, err := webp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
}

func TestSnapshotterDisabled(t *testing.T) {
	ctx := testCtx(t)
	target := types.NewTargetSpec(1, 1, types.PixelFormatRGBA)
	s := newSnapshotter("screen", "", 1, 90)
	s.Upload(ctx, target, make([]byte, 4))
	assert.Equal(t, uint64(1), s.uploaded)
}

func TestLoadConfigMissingFile(t *testing.T) {
	ctx := testCtx(t)
	cmd := &cobra.Command{}
	cmd.Flags().String("config-path", filepath.Join(t.TempDir(), "absent.yaml"), "")
	cmd.SetContext(ctx)

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig().Pipeline.ManifestURL, cfg.Pipeline.ManifestURL)
}

func TestLoadConfigFromFile(t *testing.T) {
	ctx := testCtx(t)
	cfgPath := filepath.Join(t.TempDir(), "videotexture.yaml")

	sample := config.NewSampleConfig()
	sample.Pipeline.Loop = true
	require.NoError(t, config.WriteConfigToPath(ctx, cfgPath, sample))

	cmd := &cobra.Command{}
	cmd.Flags().String("config-path", cfgPath, "")
	cmd.SetContext(ctx)

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.Pipeline.Loop)
	require.Len(t, cfg.AudioSources, 1)
	assert.Equal(t, types.SourceID("speaker"), cfg.AudioSources[0].ID)
}

func TestRunPipelineUntilEnd(t *testing.T) {
	ctx := testCtx(t)
	ctx, cancelFn := context.WithTimeout(ctx, 20*time.Second)
	defer cancelFn()

	cfg := config.NewConfig()
	cfg.Pipeline.ManifestURL = "testsrc://?width=64&height=36&fps=30&duration=300ms"
	cfg.Textures[0].Width = 32
	cfg.Textures[0].Height = 18
	cfg.StatsInterval = 0
	cfg.Consumer.SnapshotDir = t.TempDir()
	cfg.Consumer.SnapshotEvery = 1
	require.NoError(t, cfg.Validate())

	err := runPipeline(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, ctx.Err())
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, 20*time.Millisecond, frameInterval(50))
	assert.Equal(t, frameInterval(60), frameInterval(0))
}
