package checkpoint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atomic-gpt-explorer/checkpoint"
	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := config.Model{NEmbd: 4, NHead: 2, NLayer: 2, BlockSize: 8}
	const vp = 16
	w := model.NewWeights(cfg, vp)

	path := filepath.Join(t.TempDir(), "ckpt.bin")
	require.NoError(t, checkpoint.Save(path, cfg, vp, w))

	gotCfg, gotVp, gotW, err := checkpoint.Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg, gotCfg)
	assert.Equal(t, vp, gotVp)
	assert.Equal(t, w.Wte, gotW.Wte)
	assert.Equal(t, w.Qkvw[0], gotW.Qkvw[0])
	assert.Equal(t, w.Fcprojw[1], gotW.Fcprojw[1])
	assert.Equal(t, w.Lnfw, gotW.Lnfw)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 32), 0o644))

	_, _, _, err := checkpoint.Load(path)
	assert.Error(t, err)
}
