package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/disintegration/imaging"
	"github.com/muesli/termenv"
)

// upperHalfBlock shows two pixels per cell: the top one as foreground, the
// bottom one as background.
const upperHalfBlock = "▀"

// ANSI renders p for a terminal at most cols cells wide. Images are drawn
// with half blocks in the colours profile supports; text lines are cut to
// cols.
func (p Preview) ANSI(cols int, profile termenv.Profile) (string, error) {
	if cols <= 0 {
		return "", nil
	}
	if p.Kind == Text {
		lines := make([]string, len(p.Lines))
		for i, l := range p.Lines {
			lines[i] = ansi.Truncate(l, cols, "")
		}
		return strings.Join(lines, "\n"), nil
	}

	img, err := jpeg.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return "", err
	}
	if img.Bounds().Dx() > cols {
		img = imaging.Resize(img, cols, 0, imaging.Box)
	}
	return halfBlocks(img, profile), nil
}

func halfBlocks(img image.Image, profile termenv.Profile) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			s := profile.String(upperHalfBlock).Foreground(profile.Color(hexColor(img, x, y)))
			if y+1 < b.Max.Y {
				s = s.Background(profile.Color(hexColor(img, x, y+1)))
			}
			sb.WriteString(s.String())
		}
	}
	return sb.String()
}

func hexColor(img image.Image, x, y int) string {
	r, g, b, _ := img.At(x, y).RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
