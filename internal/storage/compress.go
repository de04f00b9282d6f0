package storage

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Encoders and decoders are safe for concurrent EncodeAll/DecodeAll.
var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

func compressText(s string) ([]byte, error) {
	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return enc.EncodeAll([]byte(s), nil), nil
}

func decompressText(b []byte) (string, error) {
	_, dec, err := codec()
	if err != nil {
		return "", fmt.Errorf("zstd: %w", err)
	}
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return "", fmt.Errorf("zstd decode: %w", err)
	}
	return string(out), nil
}
