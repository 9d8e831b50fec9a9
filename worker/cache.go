package worker

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"strakmachine/polar"
	"strakmachine/util"
)

func storeResampled(path string, p *polar.Polar) error {
	return util.WriteFileAtomic(path, func(w io.Writer) error {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := msgpack.NewEncoder(zw).Encode(p); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}

func loadResampled(path string) (*polar.Polar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var p polar.Polar
	if err := msgpack.NewDecoder(zr).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
