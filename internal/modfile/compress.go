// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// compress encodes data for on-disk storage under the given compressor.
//
// The format distinguishes GZIP from PACK200_GZIP because the JDK's
// original pack200 transform is a jar-aware, instruction-level repacking
// step before the gzip pass; no such transform exists in the Go ecosystem,
// so this package stores PACK200_GZIP content with the same gzip framing as
// GZIP. The compressor tag is still preserved and enforced by the section
// typing rules, so CLASSES sections round-trip correctly even though their
// bytes are not bit-for-bit identical to a real JDK-produced file.
func compress(c Compressor, data []byte) ([]byte, error) {
	switch c {
	case NoCompression:
		return data, nil
	case Gzip, Pack200Gzip:
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return nil, fmt.Errorf("compressing content: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("compressing content: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compressor %d", c)
	}
}

func decompress(c Compressor, data []byte) ([]byte, error) {
	switch c {
	case NoCompression:
		return data, nil
	case Gzip, Pack200Gzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompressing content: %w", err)
		}
		defer gz.Close()
		out, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("decompressing content: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compressor %d", c)
	}
}
