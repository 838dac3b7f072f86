package fileitem

import (
	"io"
	"mime"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

const (
	MimeDirectory = "inode/directory"
	MimeUnknown   = "application/octet-stream"
	MimeZeroSize  = "application/x-zerosize"
	MimePlainText = "text/plain"
)

// sniffLen is the header length filetype inspects.
const sniffLen = 262

func init() {
	filetype.AddType("jpeg", "image/jpeg")
	filetype.AddType("md", "text/markdown")
	filetype.AddType("json", "application/json")
	filetype.AddType("go", "text/x-go")
	filetype.AddType("yaml", "application/yaml")
}

// IsMimeTypeKnown reports whether the content-based type has been determined.
func (it *Item) IsMimeTypeKnown() bool { return it.mimeKnown }

// MimeType returns the determined MIME type, or the extension-based guess
// while the content has not been inspected yet.
func (it *Item) MimeType() string {
	if it.mimeKnown {
		return it.mimeType
	}
	return it.FastMimeType()
}

// FastMimeType guesses the type from the name only.
func (it *Item) FastMimeType() string {
	if it.isDir {
		return MimeDirectory
	}
	if mt := mimeByExtension(it.Suffix()); mt != "" {
		return mt
	}
	return MimeUnknown
}

// DetermineMimeType inspects the file header. It is cheap for directories and
// reads at most a few hundred bytes otherwise.
func (it *Item) DetermineMimeType() string {
	if it.mimeKnown {
		return it.mimeType
	}
	it.mimeType = detectMimeType(it)
	it.mimeKnown = true
	return it.mimeType
}

func detectMimeType(it *Item) string {
	if it.isDir {
		return MimeDirectory
	}
	if it.size == 0 && it.mode.IsRegular() {
		return MimeZeroSize
	}

	f, err := os.Open(it.url)
	if err != nil {
		return it.FastMimeType()
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return it.FastMimeType()
	}
	head = head[:n]

	if kind, err := filetype.Match(head); err == nil && kind != types.Unknown {
		return kind.MIME.Value
	}
	if mt := mimeByExtension(it.Suffix()); mt != "" {
		return mt
	}
	if utf8.Valid(head) {
		return MimePlainText
	}
	return MimeUnknown
}

func mimeByExtension(ext string) string {
	if ext == "" {
		return ""
	}
	lower := strings.ToLower(ext)
	if t := filetype.GetType(lower); t != types.Unknown && t.MIME.Value != "" {
		return t.MIME.Value
	}
	if mt := mime.TypeByExtension("." + lower); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	return ""
}

var mimeComments = map[string]string{
	MimeDirectory:       "Folder",
	MimeUnknown:         "Unknown",
	MimeZeroSize:        "Empty document",
	MimePlainText:       "Plain text document",
	"text/markdown":     "Markdown document",
	"text/html":         "HTML document",
	"text/x-go":         "Go source code",
	"application/json":  "JSON document",
	"application/yaml":  "YAML document",
	"application/pdf":   "PDF document",
	"application/zip":   "Zip archive",
	"application/gzip":  "Gzip archive",
	"application/x-tar": "Tar archive",
	"inode/symlink":     "Symbolic link",
}

// MimeComment returns a human readable description of the item's type.
func (it *Item) MimeComment() string {
	mt := it.MimeType()
	if c, ok := mimeComments[mt]; ok {
		return c
	}
	major, minor, ok := strings.Cut(mt, "/")
	if !ok {
		return mt
	}
	minor = strings.TrimPrefix(minor, "x-")
	switch major {
	case "image", "audio", "video", "font":
		return strings.ToUpper(minor) + " " + major
	case "text":
		return strings.ToUpper(minor) + " document"
	}
	return strings.ToUpper(minor) + " file"
}

// IconName returns a freedesktop style icon name for the item.
func (it *Item) IconName() string {
	switch {
	case it.isDir && it.isLink:
		return "folder-link"
	case it.isDir:
		return "folder"
	}
	mt := it.MimeType()
	if mt == MimeUnknown {
		return "unknown"
	}
	return strings.ReplaceAll(mt, "/", "-")
}
