package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"time"

	"thumbnail-server/internal/config"
	"thumbnail-server/internal/domain"
	"thumbnail-server/internal/usecase/processor/operations"

	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/webp"
)

// ImageProcessor resamples a full image into a JPEG thumbnail.
type ImageProcessor struct {
	resizer     *operations.Resizer
	watermarker *operations.Watermarker
	fileRepo    fileRepository
	quality     int
	maxPixels   int
	logger      *zlog.Zerolog
}

func NewImageProcessor(fileRepo fileRepository, cfg config.Thumbnail, logger *zlog.Zerolog) (*ImageProcessor, error) {
	p := &ImageProcessor{
		resizer:   operations.NewResizer(),
		fileRepo:  fileRepo,
		quality:   cfg.JPEGQuality,
		maxPixels: cfg.MaxPixels,
		logger:    logger,
	}
	if p.quality <= 0 {
		p.quality = domain.DefaultJPEGQuality
	}
	if p.maxPixels <= 0 {
		p.maxPixels = domain.DefaultMaxPixels
	}

	if cfg.Watermark.Text != "" {
		wm, err := operations.NewWatermarker(operations.WatermarkOptions{
			Text:      cfg.Watermark.Text,
			Position:  domain.WatermarkPosition(cfg.Watermark.Position),
			Opacity:   cfg.Watermark.Opacity,
			FontSize:  cfg.Watermark.FontSize,
			FontColor: cfg.Watermark.FontColor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create watermarker: %w", err)
		}
		p.watermarker = wm
	}

	return p, nil
}

// Resize reads task.Source, fills task.Width x task.Height (cropping the
// overflow around the centre) and writes the JPEG result to task.Target.
func (p *ImageProcessor) Resize(ctx context.Context, task domain.ResizeTask) error {
	if err := p.checkDimensions(task.Width, task.Height); err != nil {
		return err
	}

	start := time.Now()

	src, err := p.fileRepo.GetObject(ctx, task.Source)
	if err != nil {
		return fmt.Errorf("failed to open source image: %w", err)
	}
	img, format, err := image.Decode(src)
	src.Close()
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, task.Source, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var thumb image.Image = p.resizer.Cover(img, task.Width, task.Height)

	if p.watermarker != nil {
		thumb, err = p.watermarker.Apply(thumb)
		if err != nil {
			return fmt.Errorf("failed to apply watermark: %w", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: p.quality}); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	size, err := p.fileRepo.SaveProcessed(ctx, task.Target, buf)
	if err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}

	p.logger.Debug().
		Str("source", task.Source).
		Str("source_format", format).
		Str("target", task.Target).
		Int("width", task.Width).
		Int("height", task.Height).
		Int64("size", size).
		Dur("duration", time.Since(start)).
		Msg("Thumbnail written")

	return nil
}

// checkDimensions runs before any pixel buffer is allocated.
func (p *ImageProcessor) checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > domain.MaxDimension || height > domain.MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d per side", ErrTooLarge, width, height, domain.MaxDimension)
	}
	if width > p.maxPixels/height {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, p.maxPixels)
	}
	return nil
}
