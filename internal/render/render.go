// Package render rasterizes templates into PNG card images. Rendering is
// pure: all remote bytes (article photo, background, static artwork) are
// fetched by the caller and passed in, so identical inputs always produce
// byte-identical output.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	// Photo bytes arrive in whatever format the source CDN serves.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

const (
	defaultFontSize   = 24.0
	defaultLineHeight = 1.3
	neutralFill       = "#e0e0e0"
	defaultBackground = "#ffffff"
	defaultTextColor  = "#000000"
)

// Renderer draws templates with embedded Go fonts. Faces are cached per size;
// the embedded fonts keep output identical across hosts.
type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

var _ ports.Renderer = (*Renderer)(nil)

// New parses the embedded font set once.
func New() (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold, faces: map[faceKey]font.Face{}}, nil
}

// Render replays the template's object list in z-order with the resolved
// values substituted in. A missing or undecodable photo never fails the card:
// the placeholder keeps its neutral fill.
func (r *Renderer) Render(tmpl domain.Template, values map[string]string, assets ports.RenderAssets) ([]byte, error) {
	if tmpl.Width <= 0 || tmpl.Height <= 0 {
		return nil, fmt.Errorf("template %s: canvas %dx%d is not drawable", tmpl.ID, tmpl.Width, tmpl.Height)
	}

	dc := gg.NewContext(tmpl.Width, tmpl.Height)
	r.drawBackground(dc, tmpl, assets.Background)

	for _, obj := range tmpl.Objects {
		switch o := obj.(type) {
		case domain.TextObject:
			r.drawText(dc, o, values)
		case domain.ShapeObject:
			r.drawShape(dc, o, assets.Photo)
		case domain.ImageObject:
			r.drawArtwork(dc, o, assets)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawBackground(dc *gg.Context, tmpl domain.Template, photo []byte) {
	color := tmpl.BackgroundColor
	if color == "" {
		color = defaultBackground
	}
	dc.SetHexColor(color)
	dc.Clear()

	if tmpl.BackgroundImage == "" || len(photo) == 0 {
		return
	}
	img, err := decodeImage(photo)
	if err != nil {
		return
	}

	cw, ch := float64(tmpl.Width), float64(tmpl.Height)
	iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	scale := coverScale(cw, ch, iw, ih)
	drawScaled(dc, img, (cw-iw*scale)/2, (ch-ih*scale)/2, scale)
}

func (r *Renderer) drawText(dc *gg.Context, o domain.TextObject, values map[string]string) {
	// Substitution replaces the literal string only; geometry and font stay
	// untouched so wrapping matches the design-time preview. A dynamic object
	// never shows its design-time sample text: an empty resolved value falls
	// back to the object's fallback or renders nothing.
	text := o.Text
	if o.Dynamic != "" {
		text = values[o.Dynamic]
		if text == "" {
			text = o.Fallback
		}
	}
	if text == "" {
		return
	}

	size := o.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	color := o.Color
	if color == "" {
		color = defaultTextColor
	}

	geom := o.Geom
	width := geom.Width * geom.Scale
	if width <= 0 {
		width = float64(dc.Width()) - geom.Left
	}

	dc.Push()
	if geom.Angle != 0 {
		dc.RotateAbout(gg.Radians(geom.Angle), geom.Left, geom.Top)
	}
	dc.SetHexColor(color)
	dc.SetFontFace(r.face(size*geom.Scale, false))
	dc.DrawStringWrapped(text, geom.Left, geom.Top, 0, 0, width, defaultLineHeight, alignFor(o.Align))
	dc.Pop()
}

func (r *Renderer) drawShape(dc *gg.Context, o domain.ShapeObject, photo []byte) {
	geom := o.Geom
	bw, bh := geom.Width*geom.Scale, geom.Height*geom.Scale
	if bw <= 0 || bh <= 0 {
		return
	}

	dc.Push()
	defer dc.Pop()
	if geom.Angle != 0 {
		dc.RotateAbout(gg.Radians(geom.Angle), geom.Left, geom.Top)
	}

	if o.Dynamic == domain.DynamicImageKey && len(photo) > 0 {
		if img, err := decodeImage(photo); err == nil {
			iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
			scale := fitScale(bw, bh, iw, ih)
			drawScaled(dc, img, geom.Left, geom.Top, scale)
			return
		}
	}

	fill := o.Fill
	if fill == "" {
		fill = neutralFill
	}
	if o.Dynamic == domain.DynamicImageKey {
		// No usable photo: the placeholder degrades to a neutral block
		// instead of failing the card.
		fill = neutralFill
	}
	dc.SetHexColor(fill)
	dc.DrawRectangle(geom.Left, geom.Top, bw, bh)
	dc.Fill()
}

func (r *Renderer) drawArtwork(dc *gg.Context, o domain.ImageObject, assets ports.RenderAssets) {
	geom := o.Geom
	bw, bh := geom.Width*geom.Scale, geom.Height*geom.Scale
	if bw <= 0 || bh <= 0 {
		return
	}

	raw := assets.Static[o.URL]
	if o.Dynamic == domain.DynamicImageKey && len(assets.Photo) > 0 {
		raw = assets.Photo
	}

	dc.Push()
	defer dc.Pop()
	if geom.Angle != 0 {
		dc.RotateAbout(gg.Radians(geom.Angle), geom.Left, geom.Top)
	}

	if len(raw) > 0 {
		if img, err := decodeImage(raw); err == nil {
			iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
			drawScaled(dc, img, geom.Left, geom.Top, fitScale(bw, bh, iw, ih))
			return
		}
	}

	dc.SetHexColor(neutralFill)
	dc.DrawRectangle(geom.Left, geom.Top, bw, bh)
	dc.Fill()
}

func (r *Renderer) face(size float64, bold bool) font.Face {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := faceKey{size: size, bold: bold}
	if face, ok := r.faces[key]; ok {
		return face
	}

	src := r.regular
	if bold {
		src = r.bold
	}
	face := truetype.NewFace(src, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[key] = face
	return face
}

// coverScale fills the whole box, cropping overflow.
func coverScale(boxW, boxH, imgW, imgH float64) float64 {
	return math.Max(boxW/imgW, boxH/imgH)
}

// fitScale fits the whole image inside the box, preserving aspect ratio.
func fitScale(boxW, boxH, imgW, imgH float64) float64 {
	return math.Min(boxW/imgW, boxH/imgH)
}

func drawScaled(dc *gg.Context, img image.Image, x, y, scale float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

func decodeImage(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func alignFor(name string) gg.Align {
	switch name {
	case "center":
		return gg.AlignCenter
	case "right":
		return gg.AlignRight
	default:
		return gg.AlignLeft
	}
}
