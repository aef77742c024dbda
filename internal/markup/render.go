package markup

import (
	"fmt"
	"html"
	"strings"

	"picture/internal/srcset"
)

// Style selects the markup template.
type Style int

const (
	// Picturefill emits span placeholders for the picturefill polyfill.
	Picturefill Style = iota + 1
	// NativePicture emits a picture element with source children.
	NativePicture
)

// ParseStyle maps a configured markup name onto a Style.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "picturefill":
		return Picturefill, nil
	case "picture":
		return NativePicture, nil
	default:
		return 0, srcset.Configf("", "unknown markup style %q (want \"picturefill\" or \"picture\")", name)
	}
}

func (s Style) String() string {
	switch s {
	case Picturefill:
		return "picturefill"
	case NativePicture:
		return "picture"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// Entry is one derived source in emission order.
type Entry struct {
	Key    string `json:"key"`
	Path   string `json:"path"`
	Media  string `json:"media,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Render builds the markup block. fallback is the URL used for the
// noscript image in Picturefill style; NativePicture ignores it.
func Render(style Style, attrs Attrs, entries []Entry, fallback string) (string, error) {
	switch style {
	case Picturefill:
		return renderPicturefill(attrs, entries, fallback), nil
	case NativePicture:
		return renderPicture(attrs, entries), nil
	default:
		return "", srcset.Configf("", "unknown markup style %s", style)
	}
}

func renderPicturefill(attrs Attrs, entries []Entry, fallback string) string {
	attrs = attrs.Clone()
	alt, _ := attrs.Delete("alt")
	attrs.Set("data-picture", nil)
	if alt != nil {
		attrs.Set("data-alt", alt)
	}

	var b strings.Builder
	openTag(&b, "span", attrs)
	b.WriteByte('\n')
	for _, e := range entries {
		b.WriteString(`<span data-src="`)
		b.WriteString(html.EscapeString(e.Path))
		b.WriteByte('"')
		if e.Media != "" {
			b.WriteString(` data-media="`)
			b.WriteString(html.EscapeString(e.Media))
			b.WriteByte('"')
		}
		b.WriteString("></span>\n")
	}
	b.WriteString("\n<noscript>\n")
	altText := ""
	if alt != nil {
		altText = *alt
	}
	b.WriteString(`<img src="`)
	b.WriteString(html.EscapeString(fallback))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(altText))
	b.WriteString("\">\n</noscript>\n</span>\n")
	return b.String()
}

func renderPicture(attrs Attrs, entries []Entry) string {
	var b strings.Builder
	openTag(&b, "picture", attrs)
	b.WriteByte('\n')
	for _, e := range entries {
		b.WriteString(`<source srcset="`)
		b.WriteString(html.EscapeString(e.Path))
		b.WriteByte('"')
		if e.Media != "" {
			b.WriteString(` media="`)
			b.WriteString(html.EscapeString(e.Media))
			b.WriteByte('"')
		}
		b.WriteString(">\n")
	}
	b.WriteString("\n<p>")
	if alt, ok := attrs.Get("alt"); ok && alt != nil {
		b.WriteString(html.EscapeString(*alt))
	}
	b.WriteString("</p>\n</picture>\n")
	return b.String()
}
