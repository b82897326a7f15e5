package operations

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

type Resizer struct {
	scaler xdraw.Scaler
}

func NewResizer() *Resizer {
	return &Resizer{scaler: xdraw.BiLinear}
}

// Cover scales img so that it fills width x height and crops whatever
// overflows, keeping the centre of the source.
func (r *Resizer) Cover(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	r.scaler.Scale(dst, dst.Bounds(), img, coverRect(img.Bounds(), width, height), xdraw.Src, nil)
	return dst
}

func coverRect(bounds image.Rectangle, width, height int) image.Rectangle {
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return bounds
	}

	cropW, cropH := srcW, srcH
	if srcW*height > srcH*width {
		cropW = max(1, srcH*width/height)
	} else {
		cropH = max(1, srcW*height/width)
	}

	x0 := bounds.Min.X + (srcW-cropW)/2
	y0 := bounds.Min.Y + (srcH-cropH)/2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}
