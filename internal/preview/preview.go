// Package preview generates small previews of files: thumbnails for images,
// rendered first lines for markdown and plain text. Previews are produced by
// jobs on a bounded worker pool and can be cached in sqlite.
package preview

import (
	"context"
	"errors"
	"slices"
	"strings"

	"dirview/internal/fileitem"
)

var (
	// ErrTooLarge is returned for files above the size limit of a request.
	ErrTooLarge = errors.New("preview: file too large")
	// ErrUnsupported is returned when no enabled plugin accepts a file.
	ErrUnsupported = errors.New("preview: unsupported file type")
)

type Kind int

const (
	Image Kind = iota
	Text
)

func (k Kind) String() string {
	if k == Text {
		return "text"
	}
	return "image"
}

// Preview is a generated preview. Image previews carry JPEG data, text
// previews the rendered lines.
type Preview struct {
	Kind   Kind     `json:"kind"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Data   []byte   `json:"data,omitempty"`
	Lines  []string `json:"lines,omitempty"`
}

// IsZero reports whether p holds nothing.
func (p Preview) IsZero() bool { return len(p.Data) == 0 && len(p.Lines) == 0 }

// Generator is a preview plugin.
type Generator interface {
	Name() string
	Accepts(mimeType string) bool
	// Generate renders a preview fitting a square of size pixels.
	Generate(ctx context.Context, it *fileitem.Item, size int) (Preview, error)
}

// Plugin names.
const (
	ImageThumbnail    = "imagethumbnail"
	MarkdownThumbnail = "markdownthumbnail"
	TextThumbnail     = "textthumbnail"
)

// generators are tried in order; the first accepting one is used.
var generators = []Generator{
	imageThumbnail{},
	markdownThumbnail{},
	textThumbnail{},
}

// Plugins returns the names of all plugins.
func Plugins() []string {
	names := make([]string, len(generators))
	for i, g := range generators {
		names[i] = g.Name()
	}
	return names
}

// DefaultPlugins are the plugins enabled when nothing is configured.
func DefaultPlugins() []string { return []string{ImageThumbnail, MarkdownThumbnail} }

// generatorFor returns the first enabled plugin accepting mimeType, nil if
// there is none.
func generatorFor(mimeType string, enabled []string) Generator {
	for _, g := range generators {
		if slices.Contains(enabled, g.Name()) && g.Accepts(mimeType) {
			return g
		}
	}
	return nil
}

// Supported reports whether any of the enabled plugins can preview files of
// mimeType.
func Supported(mimeType string, enabled []string) bool {
	return generatorFor(mimeType, enabled) != nil
}

func isTextType(mt string) bool {
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/yaml", "application/xml", "application/toml",
		"application/javascript", "application/x-shellscript", fileitem.MimeZeroSize:
		return true
	}
	return false
}
