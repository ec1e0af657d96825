package export

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gazo/parser"
)

// SaveDir writes each image into dir as <prefix>_<N>.jpg and returns the paths.
// Existing files are never overwritten; a numeric suffix is added instead.
func SaveDir(dir, prefix string, images []*parser.ProcessedImage) ([]string, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	dir, err := parser.ExpandPath(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	stem := "image"
	if prefix != "" {
		stem = parser.SanitizeFileName(prefix)
	}

	paths := make([]string, 0, len(images))
	for _, img := range images {
		if img == nil || len(img.JPEG) == 0 {
			continue
		}
		target, err := parser.NextFreeName(dir, stem+"_"+strconv.Itoa(img.Index), ".jpg")
		if err != nil {
			return paths, err
		}
		if err := os.WriteFile(target, img.JPEG, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", target, err)
		}
		paths = append(paths, target)
	}

	log.Printf("[Export] Saved %d images to %s", len(paths), dir)
	return paths, nil
}
