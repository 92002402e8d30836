package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
)

// Image is a decoded raster with non-premultiplied RGBA samples.
type Image struct {
	px *image.NRGBA
}

// NewImage returns a zeroed image of the given size.
func NewImage(width, height int) *Image {
	return &Image{px: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage copies any image.Image into an Image anchored at the origin.
// Later changes to src are not visible through the result.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return &Image{px: dst}
}

// Decode decodes PNG, JPEG or GIF bytes.
func Decode(data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return FromImage(img), nil
}

// DecodeFile reads and decodes an image file.
func DecodeFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Width returns the image width in pixels.
func (i *Image) Width() int { return i.px.Rect.Dx() }

// Height returns the image height in pixels.
func (i *Image) Height() int { return i.px.Rect.Dy() }

// Size returns the image dimensions.
func (i *Image) Size() Size { return Size{Width: i.Width(), Height: i.Height()} }

// NRGBA exposes the underlying pixel buffer.
func (i *Image) NRGBA() *image.NRGBA { return i.px }

// Fill paints every pixel with the given colour.
func (i *Image) Fill(r, g, b, a uint8) {
	p := i.px.Pix
	for off := 0; off+3 < len(p); off += 4 {
		p[off], p[off+1], p[off+2], p[off+3] = r, g, b, a
	}
}

// Set paints a single pixel.
func (i *Image) Set(x, y int, r, g, b, a uint8) {
	off := i.px.PixOffset(x, y)
	i.px.Pix[off], i.px.Pix[off+1], i.px.Pix[off+2], i.px.Pix[off+3] = r, g, b, a
}

// EncodePNG encodes the image as PNG.
func (i *Image) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.px); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Size is a width/height pair.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

func checkDimensions(baseline, current *Image) error {
	if baseline.Size() != current.Size() {
		return &DimensionMismatchError{Baseline: baseline.Size(), Current: current.Size()}
	}
	return nil
}
