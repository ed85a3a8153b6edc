package lerc1

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// LERC v1 blobs embedded in raster containers are optionally wrapped in
// a zlib stream; readers sniff the signature and inflate when it is
// absent. EncodeDeflated and DecodeAny implement that convention.

// IsEncoded reports whether data starts with the LERC v1 signature.
func IsEncoded(data []byte) bool {
	return len(data) >= len(signature) && string(data[:len(signature)]) == signature
}

// Pool for zlib writers to reduce allocations on repeated encodes.
type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// EncodeDeflated encodes the image and wraps the stream in zlib. The
// wrapped form trades a little CPU for smaller blobs when the tile
// payloads still carry redundancy (raw float tiles in particular).
func (img *Image) EncodeDeflated(maxZError float64, valuesOnly bool) ([]byte, error) {
	raw, err := img.Encode(maxZError, valuesOnly)
	if err != nil {
		return nil, err
	}

	item := zlibWriterPool.Get().(*zlibWriterPoolItem)
	item.buf.Reset()
	item.writer.Reset(item.buf)

	if _, err := item.writer.Write(raw); err != nil {
		item.writer.Close()
		zlibWriterPool.Put(item)
		return nil, err
	}
	if err := item.writer.Close(); err != nil {
		zlibWriterPool.Put(item)
		return nil, err
	}

	result := make([]byte, item.buf.Len())
	copy(result, item.buf.Bytes())
	zlibWriterPool.Put(item)
	return result, nil
}

// inflateLimit bounds how far DecodeAny will inflate a wrapped stream: a
// maximally sized image stored as raw float tiles, plus headers. Anything
// larger cannot be a valid stream and is cut off before it can exhaust
// memory.
const inflateLimit = int64(headerSize + 2*partHeaderSize + 5*maxPixels + 1<<16)

// DecodeAny decodes a stream that may or may not be zlib-wrapped. A bare
// stream is decoded directly; otherwise the data is inflated first and
// must then carry the signature.
func DecodeAny(data []byte, maxZError float64) (*Image, error) {
	if IsEncoded(data) {
		return Decode(data, maxZError)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrBadSignature
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, inflateLimit))
	if err != nil {
		return nil, ErrCorrupted
	}
	if !IsEncoded(raw) {
		return nil, ErrBadSignature
	}
	return Decode(raw, maxZError)
}
