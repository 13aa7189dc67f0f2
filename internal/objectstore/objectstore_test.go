package objectstore

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s, err := New(t.TempDir(), "http://localhost:8080/storage/", []byte("object-secret-0123456789"),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return s, &now
}

func TestPutOpenDelete(t *testing.T) {
	s, _ := newTestStore(t)

	key, err := s.Put(FivesPic, "shelf.jpg", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "5s-photos/shelf.jpg", key)

	f, err := s.Open(FivesPic, "shelf.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	require.NoError(t, s.Delete(FivesPic, "shelf.jpg"))
	_, err = s.Open(FivesPic, "shelf.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNamesAndBuckets(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Put("secrets", "a", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnknownBucket)

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		_, err := s.Put(Avatars, name, strings.NewReader(""))
		assert.ErrorIs(t, err, ErrBadName, name)
	}

	assert.True(t, IsPublic(FivesPic))
	assert.False(t, IsPublic(Avatars))
}

func TestURLs(t *testing.T) {
	s, now := newTestStore(t)

	pub, err := s.PublicURL(FivesPic, "bin 1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/5s-photos/bin%201.jpg", pub)

	signed, err := s.SignedURL(Avatars, "u1.jpg", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/storage/avatars/u1.jpg", u.Path)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	assert.NoError(t, s.VerifyToken(Avatars, "u1.jpg", token))
	assert.ErrorIs(t, s.VerifyToken(Avatars, "u2.jpg", token), ErrBadSignature)
	assert.ErrorIs(t, s.VerifyToken(FivesPic, "u1.jpg", token), ErrBadSignature)
	assert.ErrorIs(t, s.VerifyToken(Avatars, "u1.jpg", "garbage"), ErrBadSignature)

	*now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.VerifyToken(Avatars, "u1.jpg", token), ErrBadSignature)
}

func TestNormalizePhoto(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3200, 800))
	for x := 0; x < 3200; x += 7 {
		src.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, err := NormalizePhoto(&in)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)

	small := image.NewRGBA(image.Rect(0, 0, 40, 30))
	in.Reset()
	require.NoError(t, png.Encode(&in, small))
	out, err = NormalizePhoto(&in)
	require.NoError(t, err)
	cfg, err = jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)

	_, err = NormalizePhoto(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestNormalizePhotoRejectsHugeDimensions(t *testing.T) {
	_, err := NormalizePhoto(bytes.NewReader(hugePNG(t, 50000, 50000)))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)

	out, err := NormalizePhoto(bytes.NewReader(hugePNG(t, 1, 1)))
	require.NoError(t, err, "a patched header with real dimensions still decodes")
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Width)
}

// hugePNG is a valid 1x1 PNG whose header claims width x height pixels.
func hugePNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

