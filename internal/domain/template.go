package domain

import (
	"encoding/json"
	"fmt"
)

// DynamicImageKey marks a shape object as the photo placeholder.
const DynamicImageKey = "image"

// Geometry positions an object on the template canvas. Coordinates are in
// canvas pixels, angle in degrees around the object's top-left corner.
type Geometry struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
	Scale  float64 `json:"scale"`
}

// TemplateObject is one positioned element of a template. The concrete
// variants are TextObject, ImageObject, and ShapeObject.
type TemplateObject interface {
	Geometry() Geometry
	// DynamicKey names the resolved mapping value bound to this object, or
	// "" when the object is static.
	DynamicKey() string
}

// TextObject renders a string inside its bounding box. When Dynamic is set,
// the literal text is substituted at generation time; geometry and font stay
// untouched so wrapping behaves the same as at design time.
type TextObject struct {
	Geom     Geometry
	Text     string
	FontSize float64
	Color    string
	Align    string
	Dynamic  string
	Fallback string
}

func (o TextObject) Geometry() Geometry { return o.Geom }
func (o TextObject) DynamicKey() string { return o.Dynamic }

// ImageObject places static artwork (a logo, a frame) on the canvas.
type ImageObject struct {
	Geom    Geometry
	URL     string
	Dynamic string
}

func (o ImageObject) Geometry() Geometry { return o.Geom }
func (o ImageObject) DynamicKey() string { return o.Dynamic }

// ShapeObject is a filled rectangle. Tagged with DynamicImageKey it acts as
// the placeholder the article photo is composited into.
type ShapeObject struct {
	Geom    Geometry
	Fill    string
	Dynamic string
}

func (o ShapeObject) Geometry() Geometry { return o.Geom }
func (o ShapeObject) DynamicKey() string { return o.Dynamic }

// Template is a user-authored visual layout. It is owned by the external
// editor; this module only ever reads it.
type Template struct {
	ID              string
	Width           int
	Height          int
	BackgroundColor string
	BackgroundImage string
	Objects         []TemplateObject
}

// PhotoPlaceholder returns the first shape object tagged as the photo
// placeholder, or nil when the template has none.
func (t Template) PhotoPlaceholder() *ShapeObject {
	for _, obj := range t.Objects {
		if shape, ok := obj.(ShapeObject); ok && shape.Dynamic == DynamicImageKey {
			return &shape
		}
	}
	return nil
}

type rawTemplate struct {
	ID              string            `json:"id"`
	CanvasWidth     int               `json:"canvasWidth"`
	CanvasHeight    int               `json:"canvasHeight"`
	BackgroundColor string            `json:"backgroundColor"`
	BackgroundImage string            `json:"backgroundImage"`
	Objects         []json.RawMessage `json:"objects"`
}

type rawObject struct {
	Type string `json:"type"`
	Geometry
	Text         string  `json:"text"`
	FontSize     float64 `json:"fontSize"`
	Color        string  `json:"color"`
	Align        string  `json:"align"`
	Fill         string  `json:"fill"`
	URL          string  `json:"url"`
	DynamicField string  `json:"dynamicField"`
	Fallback     string  `json:"fallbackValue"`
}

// DecodeTemplate parses editor JSON into the tagged object model and
// validates it once, so the renderer never has to second-guess the payload.
func DecodeTemplate(data []byte) (Template, error) {
	var raw rawTemplate
	if err := json.Unmarshal(data, &raw); err != nil {
		return Template{}, fmt.Errorf("parse template: %w", err)
	}

	if raw.CanvasWidth <= 0 || raw.CanvasHeight <= 0 {
		return Template{}, fmt.Errorf("template %s: canvas %dx%d is not drawable", raw.ID, raw.CanvasWidth, raw.CanvasHeight)
	}

	tmpl := Template{
		ID:              raw.ID,
		Width:           raw.CanvasWidth,
		Height:          raw.CanvasHeight,
		BackgroundColor: raw.BackgroundColor,
		BackgroundImage: raw.BackgroundImage,
	}

	for i, msg := range raw.Objects {
		var obj rawObject
		if err := json.Unmarshal(msg, &obj); err != nil {
			return Template{}, fmt.Errorf("template %s: object %d: %w", raw.ID, i, err)
		}

		decoded, err := obj.toVariant()
		if err != nil {
			return Template{}, fmt.Errorf("template %s: object %d: %w", raw.ID, i, err)
		}
		tmpl.Objects = append(tmpl.Objects, decoded)
	}

	return tmpl, nil
}

func (o rawObject) toVariant() (TemplateObject, error) {
	geom := o.Geometry
	if geom.Scale == 0 {
		geom.Scale = 1
	}
	if geom.Width < 0 || geom.Height < 0 {
		return nil, fmt.Errorf("negative bounds %.0fx%.0f", geom.Width, geom.Height)
	}

	dynamic := o.DynamicField
	if dynamic == "none" {
		dynamic = ""
	}

	switch o.Type {
	case "text", "textbox", "i-text":
		return TextObject{
			Geom:     geom,
			Text:     o.Text,
			FontSize: o.FontSize,
			Color:    o.Color,
			Align:    o.Align,
			Dynamic:  dynamic,
			Fallback: o.Fallback,
		}, nil
	case "image":
		return ImageObject{Geom: geom, URL: o.URL, Dynamic: dynamic}, nil
	case "rect", "shape", "placeholder":
		return ShapeObject{Geom: geom, Fill: o.Fill, Dynamic: dynamic}, nil
	default:
		return nil, fmt.Errorf("unknown object type %q", o.Type)
	}
}

// Mapping binds template placeholder keys to source field names for one
// (source, template) pair. Owned by an external collaborator; at most one is
// active per pair, and the module tolerates its absence.
type Mapping struct {
	ID           string
	SourceID     string
	TemplateID   string
	Fields       map[string]string
	CaptionField string
}

// SocialAccount holds the credentials for one social platform page.
type SocialAccount struct {
	ID          string `db:"id"`
	PlatformID  string `db:"platform_id"`
	AccessToken string `db:"access_token"`
}
