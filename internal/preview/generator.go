package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/h2non/bimg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxImageSize = 1024 // максимальный размер превью в пикселях
	DefaultJPEGQuality  = 85

	thumbnailMIMEType = "image/jpeg"
)

var errUnsupportedType = errors.New("unsupported file type")

// Config настройки генерации превью
type Config struct {
	MaxImageSize       int    `mapstructure:"MaxImageSize"`
	JPEGQuality        int    `mapstructure:"JPEGQuality"`
	LargeFileThreshold int64  `mapstructure:"LargeFileThreshold"`
	PdftoppmPath       string `mapstructure:"PdftoppmPath"`
	TmpDir             string `mapstructure:"TmpDir"`
}

// ImageGenerator рендерит первую страницу PDF (или само изображение) в JPEG
type ImageGenerator struct {
	maxImageSize int
	jpegQuality  int
	pdftoppm     string
	tmpDir       string
}

var _ Generator = &ImageGenerator{}

func NewImageGenerator(cfg Config) *ImageGenerator {
	g := &ImageGenerator{
		maxImageSize: cfg.MaxImageSize,
		jpegQuality:  cfg.JPEGQuality,
		pdftoppm:     cfg.PdftoppmPath,
		tmpDir:       cfg.TmpDir,
	}
	if g.maxImageSize <= 0 {
		g.maxImageSize = DefaultMaxImageSize
	}
	if g.jpegQuality <= 0 || g.jpegQuality > 100 {
		g.jpegQuality = DefaultJPEGQuality
	}
	if g.pdftoppm == "" {
		g.pdftoppm = "pdftoppm"
	}
	return g
}

// Generate возвращает превью в виде data URL
func (g *ImageGenerator) Generate(ctx context.Context, data []byte) (string, error) {
	img, err := g.Render(ctx, data)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(thumbnailMIMEType, img), nil
}

// Render возвращает JPEG-превью
func (g *ImageGenerator) Render(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	mtype := mimetype.Detect(data)
	log.Debug().
		Str("component", "preview").
		Str("mime", mtype.String()).
		Int("size", len(data)).
		Msg("generating thumbnail")

	switch {
	case mtype.Is("application/pdf"):
		return g.renderPDF(ctx, data)
	case mtype.Is("image/jpeg"), mtype.Is("image/png"), mtype.Is("image/gif"), mtype.Is("image/webp"):
		return g.optimizeImage(data)
	}
	return nil, errors.Wrap(errUnsupportedType, mtype.String())
}

// renderPDF рендерит первую страницу через pdftoppm
func (g *ImageGenerator) renderPDF(ctx context.Context, data []byte) ([]byte, error) {
	tmpPath, err := os.MkdirTemp(g.tmpDir, "preview_")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp dir")
	}
	defer os.RemoveAll(tmpPath)

	pdfPath := filepath.Join(tmpPath, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write PDF file")
	}

	outputPath := filepath.Join(tmpPath, "output")
	cmd := exec.CommandContext(ctx, g.pdftoppm,
		"-jpeg",
		"-f", "1",
		"-l", "1",
		"-scale-to", fmt.Sprintf("%d", g.maxImageSize),
		"-singlefile",
		pdfPath,
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "failed to convert PDF (stderr: %s)", strings.TrimSpace(stderr.String()))
	}

	imgData, err := os.ReadFile(outputPath + ".jpg")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read converted image")
	}

	return g.optimizeImage(imgData)
}

func (g *ImageGenerator) optimizeImage(data []byte) ([]byte, error) {
	image := bimg.NewImage(data)

	size, err := image.Size()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get image size")
	}

	width, height := calculateNewDimensions(size.Width, size.Height, g.maxImageSize)

	processed, err := image.Process(bimg.Options{
		Width:   width,
		Height:  height,
		Quality: g.jpegQuality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to process image")
	}
	return processed, nil
}

// calculateNewDimensions вписывает изображение в квадрат maxSize, не увеличивая его
func calculateNewDimensions(width, height, maxSize int) (newWidth, newHeight int) {
	if width <= 0 || height <= 0 {
		return maxSize, maxSize
	}
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		newWidth = maxSize
		newHeight = max(1, (height*maxSize)/width)
	} else {
		newHeight = maxSize
		newWidth = max(1, (width*maxSize)/height)
	}
	return
}

func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL разбирает base64 data URL
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(err, "invalid data URL payload")
	}
	return mimeType, data, nil
}
