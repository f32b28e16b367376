// Package mapping resolves template placeholder keys against an article using
// the per (source, template) mapping configured by the external editor.
package mapping

import (
	"time"

	"CardForge/internal/domain"
)

// The quad every card can rely on even without an explicit mapping.
var defaultFields = map[string]string{
	"title":    "title",
	"date":     "date",
	"subtitle": "description",
	"image":    "image",
}

const defaultTitle = "Untitled"

// Resolved is the flat substitution dictionary for one render plus the key
// whose value becomes the publish caption.
type Resolved struct {
	Values     map[string]string
	CaptionKey string
}

// Caption returns the resolved caption text.
func (r Resolved) Caption() string {
	return r.Values[r.CaptionKey]
}

// Resolve binds article fields to template keys. A nil mapping falls back to
// the identity quad (title, date, subtitle:=description, image). Missing or
// empty source fields resolve to built-in defaults instead of erroring; the
// renderer tolerates empty substitutions.
func Resolve(m *domain.Mapping, article domain.Article, now time.Time) Resolved {
	fields := defaultFields
	captionKey := "title"

	if m != nil && len(m.Fields) > 0 {
		fields = make(map[string]string, len(m.Fields)+len(defaultFields))
		for key, sourceField := range defaultFields {
			fields[key] = sourceField
		}
		for key, sourceField := range m.Fields {
			fields[key] = sourceField
		}
	}

	values := make(map[string]string, len(fields))
	for key, sourceField := range fields {
		value := article.Field(sourceField)
		if value == "" {
			value = fallbackValue(key, now)
		}
		values[key] = value
	}

	if m != nil && m.CaptionField != "" {
		if _, ok := values[m.CaptionField]; ok {
			captionKey = m.CaptionField
		}
	}

	return Resolved{Values: values, CaptionKey: captionKey}
}

func fallbackValue(key string, now time.Time) string {
	switch key {
	case "date":
		return now.Format("January 2, 2006")
	case "title":
		return defaultTitle
	default:
		return ""
	}
}
