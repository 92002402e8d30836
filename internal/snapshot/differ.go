package snapshot

import "fmt"

// PixelThreshold is the per-pixel sensitivity in [0,1]. Pixels whose
// perceptual distance stays under it are treated as rendering noise.
const PixelThreshold = 0.1

// maxDelta is the largest possible YIQ delta between two 8-bit colours.
const maxDelta = 35215.0

// Differ handles image comparison
type Differ struct {
	limit float64
	opts  RenderOptions
}

// NewDiffer creates a new image differ
func NewDiffer(opts RenderOptions) *Differ {
	return &Differ{
		limit: maxDelta * PixelThreshold * PixelThreshold,
		opts:  opts,
	}
}

var defaultDiffer = NewDiffer(RenderOptions{})

// CompareImages compares two images with the default differ.
func CompareImages(baseline, current *Image) (*ComparisonResult, error) {
	return defaultDiffer.Compare(baseline, current)
}

// ComparisonResult is the outcome of one image comparison.
type ComparisonResult struct {
	// DiffPercentage is the fraction of differing pixels, in [0,1].
	DiffPercentage float64
	DiffPixels     int
	TotalPixels    int
	// DiffImage is the PNG-encoded diff rendering.
	DiffImage []byte

	mask *Mask
}

// Mask returns a copy of the per-pixel difference map.
func (r *ComparisonResult) Mask() *Mask {
	return r.mask.clone()
}

// Verdict classifies the result.
func (r *ComparisonResult) Verdict() Verdict {
	return Classify(r.DiffPercentage)
}

// CompareFiles decodes and compares two image files.
func (d *Differ) CompareFiles(baselinePath, currentPath string) (*ComparisonResult, error) {
	baseline, err := DecodeFile(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	current, err := DecodeFile(currentPath)
	if err != nil {
		return nil, fmt.Errorf("load current: %w", err)
	}

	return d.Compare(baseline, current)
}

// Compare compares two images and returns diff percentage and diff image
func (d *Differ) Compare(baseline, current *Image) (*ComparisonResult, error) {
	mask, err := d.Mask(baseline, current)
	if err != nil {
		return nil, err
	}

	total := mask.width * mask.height
	result := &ComparisonResult{
		DiffPixels:  mask.count,
		TotalPixels: total,
		mask:        mask,
	}
	// PNG cannot encode a zero-area image; an empty comparison has no diff.
	if total == 0 {
		return result, nil
	}

	data, err := d.render(mask, current).EncodePNG()
	if err != nil {
		return nil, fmt.Errorf("render diff: %w", err)
	}
	result.DiffImage = data
	result.DiffPercentage = float64(mask.count) / float64(total)
	return result, nil
}

// Mask computes which pixels differ between two equally sized images.
func (d *Differ) Mask(baseline, current *Image) (*Mask, error) {
	if err := checkDimensions(baseline, current); err != nil {
		return nil, err
	}

	w, h := baseline.Width(), baseline.Height()
	mask := newMask(w, h)
	a, b := baseline.px, current.px

	for y := 0; y < h; y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+w*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+w*4]
		for x := 0; x < w; x++ {
			k := x * 4
			if colorDelta(ra[k:k+4], rb[k:k+4]) > d.limit {
				mask.set(x, y)
			}
		}
	}

	return mask, nil
}

// colorDelta returns the squared YIQ distance between two NRGBA pixels
// after blending each over white.
func colorDelta(p1, p2 []uint8) float64 {
	if p1[0] == p2[0] && p1[1] == p2[1] && p1[2] == p2[2] && p1[3] == p2[3] {
		return 0
	}

	r1, g1, b1 := blendWhite(p1)
	r2, g2, b2 := blendWhite(p2)

	y := rgb2y(r1, g1, b1) - rgb2y(r2, g2, b2)
	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	return 0.5053*y*y + 0.299*i*i + 0.1957*q*q
}

func blendWhite(p []uint8) (float64, float64, float64) {
	r, g, b := float64(p[0]), float64(p[1]), float64(p[2])
	if p[3] == 255 {
		return r, g, b
	}
	a := float64(p[3]) / 255
	return 255 + (r-255)*a, 255 + (g-255)*a, 255 + (b-255)*a
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// Mask is a per-pixel differing / not differing map.
type Mask struct {
	width, height int
	bits          []bool
	count         int
}

func newMask(w, h int) *Mask {
	return &Mask{width: w, height: h, bits: make([]bool, w*h)}
}

func (m *Mask) set(x, y int) {
	i := y*m.width + x
	if !m.bits[i] {
		m.bits[i] = true
		m.count++
	}
}

// At reports whether the pixel at (x, y) differs.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Count returns the number of differing pixels.
func (m *Mask) Count() int { return m.count }

// Size returns the mask dimensions.
func (m *Mask) Size() Size { return Size{Width: m.width, Height: m.height} }

func (m *Mask) clone() *Mask {
	if m == nil {
		return nil
	}
	c := *m
	c.bits = append([]bool(nil), m.bits...)
	return &c
}
