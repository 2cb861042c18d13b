// Package checkpoint persists and restores model weights and the
// hyperparameters needed to reconstruct their shapes.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
)

// magic identifies a checkpoint file produced by this package.
const magic uint32 = 0x47505432 // "GPT2"

// version is the checkpoint format version. Bump it whenever the header
// layout or tensor order changes.
const version uint32 = 1

// Save writes cfg and every tensor of w to path: a fixed little-endian
// header (magic, version, the Model config fields, Vp) followed by each
// tensor's raw float32 bytes in Weights.Tensors' order.
func Save(path string, cfg config.Model, vp int, w *model.Weights) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	header := []uint32{
		magic,
		version,
		uint32(cfg.NEmbd),
		uint32(cfg.NHead),
		uint32(cfg.NLayer),
		uint32(cfg.BlockSize),
		uint32(vp),
	}
	for _, h := range header {
		if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
			return fmt.Errorf("checkpoint: write header: %w", err)
		}
	}

	for _, t := range w.Tensors() {
		if err := writeFloats(bw, t.Data); err != nil {
			return fmt.Errorf("checkpoint: write tensor %s: %w", t.Name, err)
		}
	}

	return bw.Flush()
}

// Load reads a checkpoint written by Save, returning the reconstructed
// config, padded vocabulary size, and weights.
func Load(path string) (config.Model, int, *model.Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.Model{}, 0, nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header := make([]uint32, 7)
	for i := range header {
		if err := binary.Read(br, binary.LittleEndian, &header[i]); err != nil {
			return config.Model{}, 0, nil, fmt.Errorf("checkpoint: read header: %w", err)
		}
	}
	if header[0] != magic {
		return config.Model{}, 0, nil, fmt.Errorf("checkpoint: bad magic %x", header[0])
	}
	if header[1] != version {
		return config.Model{}, 0, nil, fmt.Errorf("checkpoint: unsupported version %d", header[1])
	}

	cfg := config.Model{
		NEmbd:     int(header[2]),
		NHead:     int(header[3]),
		NLayer:    int(header[4]),
		BlockSize: int(header[5]),
	}
	vp := int(header[6])

	w := model.NewWeights(cfg, vp)
	for _, t := range w.Tensors() {
		if err := readFloats(br, t.Data); err != nil {
			return config.Model{}, 0, nil, fmt.Errorf("checkpoint: read tensor %s: %w", t.Name, err)
		}
	}

	return cfg, vp, w, nil
}

func writeFloats(w io.Writer, data []float32) error {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}

func readFloats(r io.Reader, data []float32) error {
	buf := make([]byte, 4*len(data))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return nil
}
