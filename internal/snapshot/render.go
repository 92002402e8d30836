package snapshot

// Highlight is the colour painted over differing pixels.
var Highlight = [4]uint8{255, 0, 0, 255}

// RenderOptions tune the diff rendering.
type RenderOptions struct {
	// Dim paints unchanged pixels as the current image at half
	// brightness instead of leaving them fully transparent.
	Dim bool
}

// GenerateDiffImage renders a PNG diff of two images with the default
// options: differing pixels red, everything else zero. Zero-area inputs
// yield no bytes.
func GenerateDiffImage(baseline, current *Image) ([]byte, error) {
	img, err := defaultDiffer.Render(baseline, current)
	if err != nil {
		return nil, err
	}
	if img.Width() == 0 || img.Height() == 0 {
		return nil, nil
	}
	return img.EncodePNG()
}

// Render returns the diff image of two equally sized images.
func (d *Differ) Render(baseline, current *Image) (*Image, error) {
	mask, err := d.Mask(baseline, current)
	if err != nil {
		return nil, err
	}
	return d.render(mask, current), nil
}

func (d *Differ) render(mask *Mask, current *Image) *Image {
	out := NewImage(mask.width, mask.height)
	src := current.px

	for y := 0; y < mask.height; y++ {
		for x := 0; x < mask.width; x++ {
			if mask.bits[y*mask.width+x] {
				out.Set(x, y, Highlight[0], Highlight[1], Highlight[2], Highlight[3])
				continue
			}
			if !d.opts.Dim {
				continue
			}
			// Darken
			p := src.Pix[src.PixOffset(x, y):]
			out.Set(x, y, p[0]>>1, p[1]>>1, p[2]>>1, p[3])
		}
	}

	return out
}
