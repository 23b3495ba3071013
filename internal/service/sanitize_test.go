package service

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSanitize_DropsBlobsAndNullsNaN(t *testing.T) {
	input := map[string]any{
		"name":    "compress",
		"level":   3,
		"ratio":   math.NaN(),
		"file":    bytes.NewReader([]byte("%PDF-1.7")),
		"raw":     []byte{1, 2, 3},
		"pages":   []any{1, 2, []any{3, 4}},
		"nested":  map[string]any{"quality": 0.8, "blob": []byte("x"), "on": true},
		"handler": func() {},
	}

	sanitized, ok := Sanitize(input)
	require.True(t, ok)

	require.Equal(t, map[string]any{
		"name":   "compress",
		"level":  float64(3),
		"ratio":  nil,
		"pages":  []any{float64(1), float64(2), []any{float64(3), float64(4)}},
		"nested": map[string]any{"quality": 0.8, "on": true},
	}, roundTrip(t, sanitized))
}

type uploadParams struct {
	Name   string                `json:"name"`
	File   *multipart.FileHeader `json:"file"`
	Header multipart.FileHeader  `json:"header"`
	Buf    bytes.Buffer          `json:"buf"`
	Scale  float64               `json:"scale"`
}

func TestSanitize_DropsUploadedFilesAndBuffers(t *testing.T) {
	params := uploadParams{
		Name:   "x",
		File:   &multipart.FileHeader{Filename: "a.pdf", Size: 10},
		Header: multipart.FileHeader{Filename: "b.pdf"},
		Scale:  math.NaN(),
	}
	params.Buf.WriteString("%PDF")

	sanitized, ok := Sanitize(params)
	require.True(t, ok)
	require.Equal(t, map[string]any{"name": "x", "scale": nil}, roundTrip(t, sanitized))

	sanitized, ok = Sanitize(map[string]any{
		"file": &multipart.FileHeader{Filename: "a.pdf"},
		"buf":  bytes.Buffer{},
		"keep": "yes",
	})
	require.True(t, ok)
	require.Equal(t, map[string]any{"keep": "yes"}, roundTrip(t, sanitized))

	_, ok = Sanitize(&multipart.FileHeader{Filename: "a.pdf"})
	require.False(t, ok)
}

func TestSanitize_TopLevelUnrepresentable(t *testing.T) {
	for _, v := range []any{[]byte("pdf"), func() {}, make(chan int), complex(1, 2), bytes.NewBufferString("x")} {
		_, ok := Sanitize(v)
		require.False(t, ok)
	}
}

func TestSanitize_Primitives(t *testing.T) {
	v, ok := Sanitize(nil)
	require.True(t, ok)
	require.Nil(t, v)

	v, ok = Sanitize("s")
	require.True(t, ok)
	require.Equal(t, "s", v)

	v, ok = Sanitize(math.Inf(1))
	require.True(t, ok)
	require.Nil(t, v)

	var p *int
	v, ok = Sanitize(p)
	require.True(t, ok)
	require.Nil(t, v)
}

func TestSanitize_ArraysDropVanishedElements(t *testing.T) {
	v, ok := Sanitize([]any{"a", []byte("b"), func() {}, "c", math.NaN()})
	require.True(t, ok)
	require.Equal(t, []any{"a", "c", nil}, v)
}

type watermarkParams struct {
	Text     string    `json:"text"`
	Opacity  float64   `json:"opacity"`
	Image    []byte    `json:"image"`
	Font     string    `json:"font,omitempty"`
	Internal string    `json:"-"`
	Pages    []int     `json:"pages"`
	Updated  time.Time `json:"updated"`
	Angle    *int      `json:"angle"`
	hidden   string
}

func TestSanitize_StructHonorsJSONTags(t *testing.T) {
	angle := 45
	params := watermarkParams{
		Text:     "DRAFT",
		Opacity:  math.NaN(),
		Image:    []byte{0xff},
		Internal: "secret",
		Pages:    []int{1, 3},
		Updated:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Angle:    &angle,
		hidden:   "x",
	}

	v, ok := Sanitize(&params)
	require.True(t, ok)
	require.Equal(t, map[string]any{
		"text":    "DRAFT",
		"opacity": nil,
		"pages":   []any{float64(1), float64(3)},
		"updated": "2024-01-02T03:04:05Z",
		"angle":   float64(45),
	}, roundTrip(t, v))
}

type selfRef struct {
	Name string   `json:"name"`
	Next *selfRef `json:"next"`
}

func TestSanitize_CyclicPointerTerminates(t *testing.T) {
	node := &selfRef{Name: "loop"}
	node.Next = node

	v, ok := Sanitize(node)
	require.True(t, ok)
	require.Equal(t, "loop", v.(map[string]any)["name"])
}

func TestSanitize_MapWithIntegerKeys(t *testing.T) {
	v, ok := Sanitize(map[int]string{1: "a", 2: "b"})
	require.True(t, ok)
	require.Equal(t, map[string]any{"1": "a", "2": "b"}, v)

	_, ok = Sanitize(map[[2]int]string{{1, 2}: "a"})
	require.False(t, ok)
}
