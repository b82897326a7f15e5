package operations

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"thumbnail-server/internal/domain"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const watermarkMargin = 4

type WatermarkOptions struct {
	Text      string
	Position  domain.WatermarkPosition
	Opacity   float64
	FontSize  float64
	FontColor string
}

type Watermarker struct {
	font *truetype.Font
	opts WatermarkOptions
	col  color.NRGBA
}

func NewWatermarker(opts WatermarkOptions) (*Watermarker, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if opts.Opacity <= 0 || opts.Opacity > 1 {
		opts.Opacity = domain.DefaultWatermarkOpacity
	}
	if opts.FontSize <= 0 {
		opts.FontSize = domain.DefaultWatermarkSize
	}
	if opts.Position == "" {
		opts.Position = domain.WatermarkBottomRight
	}

	col, err := parseColor(opts.FontColor, opts.Opacity)
	if err != nil {
		return nil, err
	}

	return &Watermarker{font: f, opts: opts, col: col}, nil
}

// Apply draws the watermark text onto a copy of img.
func (w *Watermarker) Apply(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(w.font)
	c.SetFontSize(w.opts.FontSize)
	c.SetClip(result.Bounds())
	c.SetDst(result)
	c.SetSrc(image.NewUniform(w.col))
	c.SetHinting(font.HintingFull)

	if _, err := c.DrawString(w.opts.Text, w.origin(bounds)); err != nil {
		return nil, fmt.Errorf("failed to draw watermark text: %w", err)
	}

	return result, nil
}

func (w *Watermarker) origin(bounds image.Rectangle) fixed.Point26_6 {
	size := int(w.opts.FontSize)
	textWidth := int(float64(len(w.opts.Text)) * w.opts.FontSize * 0.6)
	textHeight := int(w.opts.FontSize * 1.2)

	left := bounds.Min.X + watermarkMargin
	right := bounds.Max.X - textWidth - watermarkMargin
	center := bounds.Min.X + (bounds.Dx()-textWidth)/2
	top := bounds.Min.Y + watermarkMargin + size
	bottom := bounds.Max.Y - watermarkMargin

	switch w.opts.Position {
	case domain.WatermarkTopLeft:
		return freetype.Pt(left, top)
	case domain.WatermarkTopRight:
		return freetype.Pt(right, top)
	case domain.WatermarkTopCenter:
		return freetype.Pt(center, top)
	case domain.WatermarkBottomLeft:
		return freetype.Pt(left, bottom)
	case domain.WatermarkBottomCenter:
		return freetype.Pt(center, bottom)
	case domain.WatermarkCenter:
		return freetype.Pt(center, bounds.Min.Y+(bounds.Dy()+textHeight)/2)
	default:
		return freetype.Pt(right, bottom)
	}
}

// parseColor accepts "r,g,b" or "r,g,b,a". Without an explicit alpha the
// opacity decides it.
func parseColor(colorStr string, opacity float64) (color.NRGBA, error) {
	alpha := uint8(255 * opacity)
	if colorStr == "" {
		return color.NRGBA{255, 255, 255, alpha}, nil
	}

	parts := strings.Split(strings.ReplaceAll(colorStr, " ", ""), ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid color format %q", colorStr)
	}

	values := make([]uint8, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color value %q: %w", part, err)
		}
		values[i] = uint8(clamp(v, 0, 255))
	}

	if len(values) == 4 {
		alpha = values[3]
	}

	return color.NRGBA{values[0], values[1], values[2], alpha}, nil
}

func clamp(value, lo, hi int) int {
	return min(max(value, lo), hi)
}
