package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// readLimited reads r to the end. A body longer than limit fails with
// ErrBodyTooLarge instead of being cut short.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

// decodeBody reverses the Content-Encoding chain. Encodings are applied in
// header order, so they are undone right to left. limit bounds every
// decoded stage.
func decodeBody(body []byte, contentEncoding string, limit int64) ([]byte, error) {
	if contentEncoding == "" || len(body) == 0 {
		return body, nil
	}

	encodings := strings.Split(contentEncoding, ",")
	for i := len(encodings) - 1; i >= 0; i-- {
		enc := strings.ToLower(strings.TrimSpace(encodings[i]))

		var reader io.Reader
		switch enc {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			gz, err := gzip.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("gzip: %w", err)
			}
			defer gz.Close()
			reader = gz
		case "deflate":
			// servers disagree on whether deflate means zlib-wrapped or raw
			if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
				defer zr.Close()
				reader = zr
			} else {
				fr := flate.NewReader(bytes.NewReader(body))
				defer fr.Close()
				reader = fr
			}
		case "br":
			reader = brotli.NewReader(bytes.NewReader(body))
		default:
			return nil, fmt.Errorf("unsupported content encoding %q", enc)
		}

		decoded, err := readLimited(reader, limit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", enc, err)
		}
		body = decoded
	}
	return body, nil
}
