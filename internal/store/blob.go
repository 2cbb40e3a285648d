package store

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Revision payloads use an lz4 block with a small header, the same framing
// Firefox uses for its session files: 8-byte magic, 4-byte LE uncompressed
// size, then the block. When lz4 cannot shrink the payload the raw bytes are
// stored and the header size equals the body length.
var payloadMagic = []byte("swtb1\x00\x00\x00")

const headerSize = 12 // 8 magic + 4 size

// CompressPayload frames and compresses a JSON payload for storage.
func CompressPayload(src []byte) ([]byte, error) {
	buf := make([]byte, headerSize+lz4.CompressBlockBound(len(src)))
	copy(buf, payloadMagic)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(src)))

	var c lz4.Compressor
	n, err := c.CompressBlock(src, buf[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		// incompressible; store raw
		buf = append(buf[:headerSize], src...)
		return buf, nil
	}
	return buf[:headerSize+n], nil
}

// DecompressPayload undoes CompressPayload.
func DecompressPayload(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("payload too short (%d bytes)", len(data))
	}
	for i := range payloadMagic {
		if data[i] != payloadMagic[i] {
			return nil, fmt.Errorf("invalid payload magic")
		}
	}
	size := binary.LittleEndian.Uint32(data[8:12])

	body := data[headerSize:]
	if uint32(len(body)) == size {
		// stored raw
		out := make([]byte, size)
		copy(out, body)
		return out, nil
	}

	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(body, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return dst[:n], nil
}
