package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir)
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), UploadInput{
		Filename:    "render.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("png-bytes")),
		Size:        9,
	})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(res.Key))
	assert.Equal(t, ".png", filepath.Ext(res.Key))

	data, err := os.ReadFile(res.Key)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, u.Delete(context.Background(), res.Key))
	_, err = os.Stat(res.Key)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, u.Delete(context.Background(), res.Key), "deleting twice is harmless")
}

func TestLocalDeleteRejectsForeignPaths(t *testing.T) {
	u, err := NewLocalUploader(t.TempDir())
	require.NoError(t, err)
	require.Error(t, u.Delete(context.Background(), "/etc/passwd"))
}

func TestLocalUploadRequiresBody(t *testing.T) {
	u, err := NewLocalUploader(t.TempDir())
	require.NoError(t, err)
	_, err = u.Upload(context.Background(), UploadInput{Filename: "x.png"})
	require.Error(t, err)
}

func TestDisabledUploader(t *testing.T) {
	_, err := Disabled().Upload(context.Background(), UploadInput{})
	assert.ErrorIs(t, err, ErrUploaderDisabled)
	assert.ErrorIs(t, Disabled().Delete(context.Background(), "k"), ErrUploaderDisabled)
}

func TestNewUploaderWithoutBucketIsDisabled(t *testing.T) {
	u, err := NewUploader(context.Background(), Config{})
	require.NoError(t, err)
	_, err = u.Upload(context.Background(), UploadInput{Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrUploaderDisabled)
}
