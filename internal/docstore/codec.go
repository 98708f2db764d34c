package docstore

import (
	"github.com/pierrec/lz4/v4"

	minierrors "github.com/Aman-CERP/minisearch/internal/errors"
)

// compressBody LZ4-block-compresses content. An empty input compresses to
// an empty block. Inputs too short or too incompressible for LZ4 to find
// any match (CompressBlock reports this as n == 0, not an error) are
// stored as a single literal run instead — still a well-formed LZ4 block,
// since every LZ4 block's final sequence is permitted to be pure literals.
func compressBody(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(content)))
	var c lz4.Compressor
	n, err := c.CompressBlock(content, dst)
	if err != nil {
		return nil, minierrors.CompressionError("lz4 compress", err)
	}
	if n == 0 {
		return literalBlock(content), nil
	}
	return dst[:n], nil
}

// literalBlock encodes src as a single LZ4 literal-run sequence: a token
// byte (high nibble the literal length, extended past 15 with 255-valued
// continuation bytes, low nibble zero since there is no match) followed by
// the literal bytes themselves.
func literalBlock(src []byte) []byte {
	length := len(src)
	out := make([]byte, 0, length+length/255+2)
	if length < 15 {
		out = append(out, byte(length<<4))
	} else {
		out = append(out, 0xF0)
		rem := length - 15
		for rem >= 255 {
			out = append(out, 255)
			rem -= 255
		}
		out = append(out, byte(rem))
	}
	return append(out, src...)
}

// decompressBody decompresses an LZ4 block back to uncompressedLen bytes.
func decompressBody(block []byte, uncompressedLen int) ([]byte, error) {
	if uncompressedLen == 0 {
		return nil, nil
	}
	dst := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(block, dst)
	if err != nil {
		return nil, minierrors.CompressionError("lz4 decompress", err)
	}
	return dst[:n], nil
}
