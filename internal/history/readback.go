package history

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"fluxkit/internal/flux"
)

const readbackMagic = "FXRB"

var errReadbackCorrupt = errors.New("readback snapshot is corrupt")

// readbackCodec packs flux captures into zstd-compressed snapshots.
type readbackCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newReadbackCodec() (*readbackCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &readbackCodec{enc: enc, dec: dec}, nil
}

func (c *readbackCodec) close() {
	_ = c.enc.Close()
	c.dec.Close()
}

// encode writes a magic prefix, the sample rate as little-endian float64
// bits, a terminate-at-index byte, the index list as a uvarint count of
// little-endian float64 values, and the intervals as a uvarint count of
// uvarints, then compresses the result.
func (c *readbackCodec) encode(f *flux.Flux) []byte {
	raw := make([]byte, 0, 16+len(f.IndexList)*8+len(f.Intervals)*3)
	raw = append(raw, readbackMagic...)
	raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(float64(f.SampleRate)))
	if f.TerminateAtIndex {
		raw = append(raw, 1)
	} else {
		raw = append(raw, 0)
	}
	raw = binary.AppendUvarint(raw, uint64(len(f.IndexList)))
	for _, idx := range f.IndexList {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(idx))
	}
	raw = binary.AppendUvarint(raw, uint64(len(f.Intervals)))
	for _, x := range f.Intervals {
		raw = binary.AppendUvarint(raw, uint64(x))
	}
	return c.enc.EncodeAll(raw, nil)
}

func (c *readbackCodec) decode(blob []byte) (*flux.Flux, error) {
	raw, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress readback: %w", err)
	}
	if len(raw) < len(readbackMagic)+9 || string(raw[:len(readbackMagic)]) != readbackMagic {
		return nil, errReadbackCorrupt
	}
	raw = raw[len(readbackMagic):]
	f := &flux.Flux{
		SampleRate:       flux.TickRate(math.Float64frombits(binary.LittleEndian.Uint64(raw))),
		TerminateAtIndex: raw[8] == 1,
	}
	raw = raw[9:]

	n, raw, err := uvarint(raw)
	if err != nil || n > uint64(len(raw)/8) {
		return nil, errReadbackCorrupt
	}
	f.IndexList = make([]float64, n)
	for i := range f.IndexList {
		f.IndexList[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw))
		raw = raw[8:]
	}

	n, raw, err = uvarint(raw)
	if err != nil || n > uint64(len(raw)) {
		return nil, errReadbackCorrupt
	}
	f.Intervals = make([]uint32, n)
	for i := range f.Intervals {
		var v uint64
		if v, raw, err = uvarint(raw); err != nil || v > math.MaxUint32 {
			return nil, errReadbackCorrupt
		}
		f.Intervals[i] = uint32(v)
	}
	if len(raw) != 0 {
		return nil, errReadbackCorrupt
	}
	return f, nil
}

func uvarint(b []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, errReadbackCorrupt
	}
	return v, b[n:], nil
}
