package preview

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"dirview/internal/fileitem"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// textReadLimit bounds how much of a file text previews read.
const textReadLimit = 64 * 1024

// textGeometry maps a pixel size to the number of lines and columns a text
// preview keeps.
func textGeometry(size int) (lines, cols int) {
	return max(4, size/16), max(16, size/8)
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, textReadLimit))
}

// firstLines returns up to n lines of s with tabs expanded.
func firstLines(s string, n int) []string {
	var out []string
	for line := range strings.Lines(s) {
		if len(out) == n {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		out = append(out, strings.ReplaceAll(line, "\t", "    "))
	}
	return out
}

type textThumbnail struct{}

func (textThumbnail) Name() string { return TextThumbnail }

func (textThumbnail) Accepts(mt string) bool { return isTextType(mt) }

func (textThumbnail) Generate(ctx context.Context, it *fileitem.Item, size int) (Preview, error) {
	head, err := readHead(it.URL())
	if err != nil {
		return Preview{}, err
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return Preview{}, ErrUnsupported
	}
	// A multibyte rune may be cut at the read limit.
	for len(head) > 0 && !utf8.Valid(head) {
		head = head[:len(head)-1]
	}
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}

	n, cols := textGeometry(size)
	lines := firstLines(string(head), n)
	return Preview{Kind: Text, Width: cols, Height: len(lines), Lines: lines}, nil
}

var (
	mdRendererMu sync.Mutex
	// Renderers by wrap width. A fixed style avoids terminal queries.
	mdRenderers = map[int]*glamour.TermRenderer{}
)

func markdownRenderer(width int) (*glamour.TermRenderer, error) {
	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	if r := mdRenderers[width]; r != nil {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.DarkStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	mdRenderers[width] = r
	return r, nil
}

type markdownThumbnail struct{}

func (markdownThumbnail) Name() string { return MarkdownThumbnail }

func (markdownThumbnail) Accepts(mt string) bool {
	return mt == "text/markdown" || mt == "text/x-markdown"
}

func (markdownThumbnail) Generate(ctx context.Context, it *fileitem.Item, size int) (Preview, error) {
	head, err := readHead(it.URL())
	if err != nil {
		return Preview{}, err
	}
	n, cols := textGeometry(size)
	r, err := markdownRenderer(cols)
	if err != nil {
		return Preview{}, err
	}
	// Rendering is not safe for concurrent use of one renderer.
	mdRendererMu.Lock()
	out, err := r.Render(string(head))
	mdRendererMu.Unlock()
	if err != nil {
		return Preview{}, err
	}
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}

	// glamour pads the document with blank lines.
	lines := firstLines(strings.Trim(out, "\n"), n)
	return Preview{Kind: Text, Width: cols, Height: len(lines), Lines: lines}, nil
}
