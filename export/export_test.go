package export

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gazo/config"
	"gazo/parser"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processed(n int) []*parser.ProcessedImage {
	out := make([]*parser.ProcessedImage, n)
	for i := range out {
		out[i] = &parser.ProcessedImage{
			Index:     i + 1,
			SourceURL: "https://cdn.example.com/photo.jpg",
			JPEG:      []byte{0xFF, 0xD8, 0xFF, byte(i)},
		}
	}
	return out
}

func TestWriteZip(t *testing.T) {
	data, err := ZipBytes(processed(3))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	for i, f := range zr.File {
		assert.Equal(t, []string{"image_1.jpg", "image_2.jpg", "image_3.jpg"}[i], f.Name)
		assert.Equal(t, zip.Deflate, f.Method)

		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, byte(i)}, body)
	}
}

func TestWriteZipRejectsEmptyAndDuplicates(t *testing.T) {
	_, err := ZipBytes(nil)
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = ZipBytes([]*parser.ProcessedImage{{Index: 1}})
	assert.ErrorIs(t, err, ErrNoImages)

	images := processed(2)
	images[1].Index = 1
	_, err = ZipBytes(images)
	assert.ErrorContains(t, err, "duplicate")
}

func TestSaveZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", DefaultZipName)
	require.NoError(t, SaveZip(path, processed(2)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveZipInDirNumbersExistingArchives(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	first, err := SaveZipInDir(dir, "Lakes", processed(2))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lakes.zip"), first)

	second, err := SaveZipInDir(dir, "Lakes", processed(1))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lakes_2.zip"), second)

	unnamed, err := SaveZipInDir(dir, "  ", processed(1))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultZipName), unnamed)

	_, err = SaveZipInDir(dir, "empty", nil)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestSaveDirNeverOverwrites(t *testing.T) {
	dir := t.TempDir()

	paths, err := SaveDir(dir, "Mountain Lake", processed(2))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.True(t, strings.HasPrefix(filepath.Base(p), "mountain"), p)
		assert.Equal(t, ".jpg", filepath.Ext(p))
	}

	again, err := SaveDir(dir, "Mountain Lake", processed(2))
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.NotEqual(t, paths[0], again[0])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	plain, err := SaveDir(t.TempDir(), "", processed(1))
	require.NoError(t, err)
	assert.Equal(t, "image_1.jpg", filepath.Base(plain[0]))

	_, err = SaveDir(dir, "x", nil)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestBucketUploaderNotConfigured(t *testing.T) {
	_, err := NewBucketUploader(config.S3Settings{Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
}

func TestBucketUploaderObjectKey(t *testing.T) {
	u, err := NewBucketUploader(config.S3Settings{Endpoint: "http://localhost:9000/", Bucket: "images", Prefix: "/gazo/"})
	require.NoError(t, err)

	img := &parser.ProcessedImage{Index: 4}
	assert.Equal(t, "gazo/sunset/image_4.jpg", u.ObjectKey("Sunset", img))
	assert.Equal(t, "gazo/image_4.jpg", u.ObjectKey("", img))
}

func TestBucketUploaderUpload(t *testing.T) {
	var mu sync.Mutex
	var puts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			io.Copy(io.Discard, r.Body)
			mu.Lock()
			puts = append(puts, r.URL.Path)
			mu.Unlock()
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := NewBucketUploader(config.S3Settings{
		Endpoint:  srv.URL,
		Bucket:    "images",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)

	keys, err := u.Upload(context.Background(), "cats", processed(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"cats/image_1.jpg", "cats/image_2.jpg"}, keys)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/images/cats/image_1.jpg", "/images/cats/image_2.jpg"}, puts)
}
