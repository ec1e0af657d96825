package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gazo/parser"

	"github.com/klauspost/compress/zip"
)

// DefaultZipName is offered in the save dialog
const DefaultZipName = "processed_images.zip"

// ErrNoImages is returned when there is nothing to export
var ErrNoImages = errors.New("no processed images to export")

// WriteZip writes images to w as a zip archive, one image_N.jpg entry per image
func WriteZip(w io.Writer, images []*parser.ProcessedImage) error {
	if len(images) == 0 {
		return ErrNoImages
	}

	zw := zip.NewWriter(w)
	now := time.Now()
	seen := make(map[string]struct{}, len(images))

	for _, img := range images {
		if img == nil || len(img.JPEG) == 0 {
			continue
		}
		name := img.FileName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate archive entry %s", name)
		}
		seen[name] = struct{}{}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := entry.Write(img.JPEG); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}

	if len(seen) == 0 {
		zw.Close()
		return ErrNoImages
	}
	return zw.Close()
}

// ZipBytes builds the archive in memory
func ZipBytes(images []*parser.ProcessedImage) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteZip(&buf, images); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveZip writes the archive to path. The file only appears once the archive is complete.
func SaveZip(path string, images []*parser.ProcessedImage) error {
	data, err := ZipBytes(images)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write zip: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalise zip: %w", err)
	}

	log.Printf("[Export] Saved %d images to %s (%d bytes)", len(images), path, len(data))
	return nil
}

// SaveZipInDir writes the archive into dir as <query>.zip, numbering the name
// instead of replacing an existing archive. It returns the path written.
func SaveZipInDir(dir, query string, images []*parser.ProcessedImage) (string, error) {
	if len(images) == 0 {
		return "", ErrNoImages
	}

	dir, err := parser.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	stem := strings.TrimSuffix(DefaultZipName, ".zip")
	if strings.TrimSpace(query) != "" {
		stem = parser.SanitizeFileName(query)
	}
	path, err := parser.NextFreeName(dir, stem, ".zip")
	if err != nil {
		return "", err
	}
	return path, SaveZip(path, images)
}
