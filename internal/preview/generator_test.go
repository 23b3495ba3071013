package preview

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCalculateNewDimensions(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{2048, 1024, 1024, 1024, 512},
		{1000, 3000, 1024, 341, 1024},
		{800, 600, 1024, 800, 600},
		{4000, 1, 1024, 1024, 1},
		{0, 10, 1024, 1024, 1024},
	}
	for _, c := range cases {
		w, h := calculateNewDimensions(c.w, c.h, c.max)
		require.Equal(t, c.wantW, w, "%dx%d", c.w, c.h)
		require.Equal(t, c.wantH, h, "%dx%d", c.w, c.h)
	}
}

func TestDataURL(t *testing.T) {
	url := EncodeDataURL("image/jpeg", []byte{0xff, 0xd8, 0xff})
	require.Equal(t, "data:image/jpeg;base64,/9j/", url)

	mimeType, data, err := DecodeDataURL(url)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", mimeType)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	for _, bad := range []string{"https://x/y.jpg", "data:image/jpeg", "data:text/plain,hello", "data:image/png;base64,***"} {
		_, _, err := DecodeDataURL(bad)
		require.Error(t, err, bad)
	}
}

func TestImageGenerator_RejectsUnsupportedContent(t *testing.T) {
	g := NewImageGenerator(Config{})

	_, err := g.Generate(context.Background(), nil)
	require.Error(t, err)

	_, err = g.Generate(context.Background(), []byte("just some plain text, not a document"))
	require.True(t, errors.Is(err, errUnsupportedType))
}

func TestNewImageGenerator_Defaults(t *testing.T) {
	g := NewImageGenerator(Config{JPEGQuality: 150})
	require.Equal(t, DefaultMaxImageSize, g.maxImageSize)
	require.Equal(t, DefaultJPEGQuality, g.jpegQuality)
	require.Equal(t, "pdftoppm", g.pdftoppm)
}
