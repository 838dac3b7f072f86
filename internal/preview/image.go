package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"time"

	"dirview/internal/fileitem"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 80

type imageThumbnail struct{}

func (imageThumbnail) Name() string { return ImageThumbnail }

func (imageThumbnail) Accepts(mt string) bool {
	switch mt {
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff", "image/webp":
		return true
	}
	return false
}

func (imageThumbnail) Generate(ctx context.Context, it *fileitem.Item, size int) (Preview, error) {
	f, err := os.Open(it.URL())
	if err != nil {
		return Preview{}, err
	}
	defer f.Close()

	orientation := readOrientation(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Preview{}, err
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return Preview{}, fmt.Errorf("decode %s: %w", it.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}

	img = applyOrientation(img, orientation)
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)
	return encodeImage(thumb)
}

func encodeImage(img image.Image) (Preview, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Preview{}, err
	}
	b := img.Bounds()
	return Preview{Kind: Image, Width: b.Dx(), Height: b.Dy(), Data: buf.Bytes()}, nil
}

// enlarge scales an image preview smaller than size up so its longer side
// is size.
func enlarge(p Preview, size int) (Preview, error) {
	if p.Kind != Image || p.Width <= 0 || p.Height <= 0 || max(p.Width, p.Height) >= size {
		return p, nil
	}
	img, err := jpeg.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return p, err
	}
	w, h := size, 0
	if p.Height > p.Width {
		w, h = 0, size
	}
	return encodeImage(imaging.Resize(img, w, h, imaging.Lanczos))
}

// readOrientation returns the EXIF orientation, 1 when there is none.
func readOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	return orientationOf(x)
}

func orientationOf(x *exif.Exif) int {
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			return v
		}
	}
	return 1
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// ImageInfo is what is known about an image without decoding its pixels.
type ImageInfo struct {
	Width       int
	Height      int
	Orientation int
	// Taken is the EXIF capture time, zero when unknown.
	Taken time.Time
}

// ReadImageInfo reads the dimensions and EXIF data of the image at path.
// Width and height are as displayed, so rotated images have them swapped.
func ReadImageInfo(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode %s: %w", path, err)
	}
	info := ImageInfo{Width: cfg.Width, Height: cfg.Height, Orientation: 1}

	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if x, err := exif.Decode(f); err == nil {
			info.Orientation = orientationOf(x)
			if t, err := x.DateTime(); err == nil {
				info.Taken = t
			}
		}
	}
	if info.Orientation >= 5 {
		info.Width, info.Height = info.Height, info.Width
	}
	return info, nil
}

// IsImage reports whether ReadImageInfo can handle files of mimeType.
func IsImage(mimeType string) bool {
	return imageThumbnail{}.Accepts(mimeType)
}
