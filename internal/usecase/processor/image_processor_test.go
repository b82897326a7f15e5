package processor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"thumbnail-server/internal/config"
	"thumbnail-server/internal/domain"
	"thumbnail-server/internal/repository/image/local"

	"github.com/spf13/afero"
	"github.com/wb-go/wbf/zlog"
)

func writeTestJPEG(t *testing.T, fsys afero.Fs, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}

	f, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode error: %v", err)
	}
}

func newTestProcessor(t *testing.T, cfg config.Thumbnail) (*ImageProcessor, afero.Fs) {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for _, dir := range []string{"/full", "/thumb"} {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir error: %v", err)
		}
	}

	p, err := NewImageProcessor(local.NewFileRepository(fsys), cfg, &zlog.Logger)
	if err != nil {
		t.Fatalf("new processor error: %v", err)
	}
	return p, fsys
}

func decodeJPEG(t *testing.T, fsys afero.Fs, path string) image.Image {
	t.Helper()

	f, err := fsys.Open(path)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	return img
}

func TestResizeProducesRequestedDimensions(t *testing.T) {
	p, fsys := newTestProcessor(t, config.Thumbnail{JPEGQuality: 80})
	writeTestJPEG(t, fsys, "/full/bar.jpg", 400, 300)

	err := p.Resize(context.Background(), domain.ResizeTask{
		Source: "/full/bar.jpg",
		Target: "/thumb/bar-100x200.jpg",
		Width:  100,
		Height: 200,
	})
	if err != nil {
		t.Fatalf("resize error: %v", err)
	}

	img := decodeJPEG(t, fsys, "/thumb/bar-100x200.jpg")
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 200 {
		t.Fatalf("got %dx%d, want 100x200", img.Bounds().Dx(), img.Bounds().Dy())
	}

	entries, err := afero.ReadDir(fsys, "/thumb")
	if err != nil {
		t.Fatalf("read dir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestResizeDecodesPNGSource(t *testing.T) {
	p, fsys := newTestProcessor(t, config.Thumbnail{JPEGQuality: 80})

	f, err := fsys.Create("/full/icon.jpg")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	f.Close()

	if err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/icon.jpg", Target: "/thumb/icon-16x16.jpg", Width: 16, Height: 16}); err != nil {
		t.Fatalf("resize error: %v", err)
	}

	img := decodeJPEG(t, fsys, "/thumb/icon-16x16.jpg")
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestResizeWithWatermark(t *testing.T) {
	p, fsys := newTestProcessor(t, config.Thumbnail{
		JPEGQuality: 85,
		Watermark: config.Watermark{
			Text:      "thumbs",
			Position:  string(domain.WatermarkCenter),
			Opacity:   0.8,
			FontSize:  10,
			FontColor: "255,0,0",
		},
	})
	writeTestJPEG(t, fsys, "/full/fjord.jpg", 200, 200)

	if err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/fjord.jpg", Target: "/thumb/fjord-80x60.jpg", Width: 80, Height: 60}); err != nil {
		t.Fatalf("resize error: %v", err)
	}

	img := decodeJPEG(t, fsys, "/thumb/fjord-80x60.jpg")
	if img.Bounds().Dx() != 80 || img.Bounds().Dy() != 60 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestResizeInvalidDimensions(t *testing.T) {
	p, fsys := newTestProcessor(t, config.Thumbnail{JPEGQuality: 85})
	writeTestJPEG(t, fsys, "/full/bar.jpg", 10, 10)

	err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/bar.jpg", Target: "/thumb/bar-0x10.jpg", Width: 0, Height: 10})
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions, got %v", err)
	}
	if ok, _ := afero.Exists(fsys, "/thumb/bar-0x10.jpg"); ok {
		t.Fatalf("no file must be written on failure")
	}
}

func TestResizeMissingSource(t *testing.T) {
	p, _ := newTestProcessor(t, config.Thumbnail{JPEGQuality: 85})

	err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/none.jpg", Target: "/thumb/none-1x1.jpg", Width: 1, Height: 1})
	if err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestResizeCorruptSource(t *testing.T) {
	p, fsys := newTestProcessor(t, config.Thumbnail{JPEGQuality: 85})
	if err := afero.WriteFile(fsys, "/full/broken.jpg", []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/broken.jpg", Target: "/thumb/broken-1x1.jpg", Width: 1, Height: 1})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestNewImageProcessorRejectsBadWatermarkColor(t *testing.T) {
	_, err := NewImageProcessor(nil, config.Thumbnail{
		JPEGQuality: 85,
		Watermark:   config.Watermark{Text: "x", FontColor: "red"},
	}, &zlog.Logger)
	if err == nil {
		t.Fatalf("expected error for invalid color")
	}
}

func TestResizeRejectsOversizedDimensions(t *testing.T) {
	p, fsys := newTestProcessor(t, config.Thumbnail{JPEGQuality: 85, MaxPixels: 1000 * 1000})
	writeTestJPEG(t, fsys, "/full/big.jpg", 8, 8)

	cases := []struct {
		name          string
		width, height int
	}{
		{"overflowing sides", 1 << 31, 1 << 31},
		{"above jpeg limit", domain.MaxDimension + 1, 1},
		{"above pixel budget", 2000, 2000},
		{"budget overflow", 1 << 40, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/thumb/big-huge.jpg"
			err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/big.jpg", Target: target, Width: tc.width, Height: tc.height})
			if !errors.Is(err, ErrTooLarge) {
				t.Fatalf("expected ErrTooLarge, got %v", err)
			}
			if ok, _ := afero.Exists(fsys, target); ok {
				t.Fatalf("no thumbnail must be written for rejected dimensions")
			}
		})
	}

	if err := p.Resize(context.Background(), domain.ResizeTask{Source: "/full/big.jpg", Target: "/thumb/big-1000x1000.jpg", Width: 1000, Height: 1000}); err != nil {
		t.Fatalf("dimensions within the budget must be accepted: %v", err)
	}
}
