package challenge

import (
	"bytes"
	"io"
	"log"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
)

// DecompressResponse detects and decompresses colly response bodies that are
// compressed with gzip, Brotli, zstd or deflate. It modifies the response body in-place.
// Call it first thing in an OnResponse callback.
func DecompressResponse(r *colly.Response, logPrefix string) (bool, error) {
	if r == nil || len(r.Body) == 0 {
		return false, nil
	}
	if logPrefix == "" {
		logPrefix = "[Challenge]"
	}

	encoding := ""
	if r.Headers != nil {
		encoding = r.Headers.Get("Content-Encoding")
	}

	originalSize := len(r.Body)
	body, decompressed, err := DecompressResponseBody(r.Body, encoding)
	if err != nil {
		return false, err
	}
	if decompressed {
		r.Body = body
		log.Printf("%s Decompressed response: %d bytes -> %d bytes", logPrefix, originalSize, len(body))
	}
	return decompressed, nil
}

// DecompressResponseBody returns the decompressed body without touching the caller's slice.
// Gzip and zstd are recognised by magic bytes, Brotli and deflate need the Content-Encoding
// header (Brotli also by a first-byte heuristic). Uncompressed input is returned unchanged.
func DecompressResponseBody(body []byte, contentEncoding string) ([]byte, bool, error) {
	if len(body) == 0 {
		return body, false, nil
	}
	contentEncoding = strings.ToLower(strings.TrimSpace(contentEncoding))

	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		defer reader.Close()

		out, err := io.ReadAll(reader)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}

	if bytes.HasPrefix(body, zstdMagic) || contentEncoding == "zstd" {
		decoder, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		defer decoder.Close()

		out, err := io.ReadAll(decoder)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}

	if contentEncoding == "deflate" {
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		out, err := io.ReadAll(reader)
		if err != nil {
			// some servers send zlib framed data or nothing at all
			return body, false, nil
		}
		return out, true, nil
	}

	looksBrotli := body[0] >= 0x80 && body[0] <= 0x8f && !bytes.HasPrefix(body, pngMagic)
	if contentEncoding == "br" || looksBrotli {
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			if contentEncoding == "br" {
				return nil, false, err
			}
			// heuristic miss, treat as plain
			return body, false, nil
		}
		return out, true, nil
	}

	return body, false, nil
}
