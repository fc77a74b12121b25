package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/roach88/propmig/internal/wire"
)

// MaxPayloadSize bounds a decompressed record payload.
const MaxPayloadSize = 256 << 20

// EncodeAll and DecodeAll are safe for concurrent use, so one encoder and
// one decoder serve every store.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	if encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true)); err != nil {
		panic(fmt.Sprintf("create zstd encoder: %v", err))
	}
	if decoder, err = newDecoder(MaxPayloadSize); err != nil {
		panic(fmt.Sprintf("create zstd decoder: %v", err))
	}
}

func newDecoder(limit uint64) (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
}

func compress(payload []byte) []byte {
	return encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
}

func decompress(data []byte) ([]byte, error) {
	return decompressWith(decoder, data)
}

func decompressWith(d *zstd.Decoder, data []byte) ([]byte, error) {
	out, err := d.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return out, nil
}

// marshalRecord encodes a record for the key-value backends: class,
// version, update time in Unix nanoseconds, then the compressed payload.
// The ID is the key and is not repeated.
func marshalRecord(rec *Record) []byte {
	w := wire.NewWriter("record")
	w.WriteString(rec.Class)
	w.WriteUint64(rec.Version)
	w.WriteInt64(rec.UpdatedAt.UnixNano())
	packed := compress(rec.Payload)
	w.WriteInt32(int32(len(packed)))
	w.WriteBytes(packed)
	return w.Bytes()
}

// unmarshalRecord decodes a value written by marshalRecord. data may be
// reused by the backend after return.
func unmarshalRecord(id uuid.UUID, data []byte) (*Record, error) {
	r := wire.NewReader(data, id.String())
	rec := &Record{ID: id}
	var err error
	if rec.Class, err = r.ReadString(); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	if rec.Version, err = r.ReadUint64(); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	nanos, err := r.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	rec.UpdatedAt = time.Unix(0, nanos).UTC()

	n, err := r.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	packed, err := r.ReadBytes(n)
	if err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	if rec.Payload, err = decompress(packed); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return rec, nil
}
