package raster

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = opentype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		boldFont, fontsErr = opentype.Parse(gobold.TTF)
	})
	return fontsErr
}

// textMapping places viewBox coordinates on the canvas the same way
// oksvg.SvgIcon.SetTarget does for shapes.
type textMapping struct {
	originX, originY float64
	scaleX, scaleY   float64
}

func (m textMapping) point(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{
		X: fixed.Int26_6(math.Round((x*m.scaleX - m.originX) * 64)),
		Y: fixed.Int26_6(math.Round((y*m.scaleY - m.originY) * 64)),
	}
}

type faceKey struct {
	size float64
	bold bool
}

// drawText draws runs onto dst with the Go fonts. The font size follows the
// vertical scale.
func drawText(dst draw.Image, runs []textRun, m textMapping) error {
	if len(runs) == 0 {
		return nil
	}
	if err := loadFonts(); err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}

	faces := make(map[faceKey]font.Face)
	defer func() {
		for _, face := range faces {
			face.Close()
		}
	}()

	for _, run := range runs {
		key := faceKey{size: run.size * m.scaleY, bold: run.bold}
		face, ok := faces[key]
		if !ok {
			f := regularFont
			if run.bold {
				f = boldFont
			}
			var err error
			face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingFull})
			if err != nil {
				return fmt.Errorf("failed to create font face: %w", err)
			}
			faces[key] = face
		}

		drawer := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(run.fill),
			Face: face,
			Dot:  m.point(run.x, run.y),
		}
		switch run.anchor {
		case "middle":
			drawer.Dot.X -= drawer.MeasureString(run.text) / 2
		case "end":
			drawer.Dot.X -= drawer.MeasureString(run.text)
		}
		drawer.DrawString(run.text)
	}
	return nil
}
