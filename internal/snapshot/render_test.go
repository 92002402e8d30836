package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countNonZero(img *Image) int {
	n := 0
	p := img.NRGBA().Pix
	for i := 0; i+3 < len(p); i += 4 {
		if p[i] != 0 || p[i+1] != 0 || p[i+2] != 0 || p[i+3] != 0 {
			n++
		}
	}
	return n
}

func countHighlighted(img *Image) int {
	n := 0
	p := img.NRGBA().Pix
	for i := 0; i+3 < len(p); i += 4 {
		if p[i] == Highlight[0] && p[i+1] == Highlight[1] && p[i+2] == Highlight[2] && p[i+3] == Highlight[3] {
			n++
		}
	}
	return n
}

func TestGenerateDiffImage_Identical(t *testing.T) {
	data, err := GenerateDiffImage(solid(100, 100, 255, 0, 0), solid(100, 100, 255, 0, 0))
	require.NoError(t, err)

	diff, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 100, Height: 100}, diff.Size())
	assert.Equal(t, 0, countNonZero(diff))
}

func TestGenerateDiffImage_Disjoint(t *testing.T) {
	data, err := GenerateDiffImage(solid(10, 10, 255, 0, 0), solid(10, 10, 0, 0, 255))
	require.NoError(t, err)

	diff, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 100, countHighlighted(diff))
}

func TestGenerateDiffImage_Partial(t *testing.T) {
	data, err := GenerateDiffImage(solid(10, 10, 255, 0, 0), stripes(10, 10, 3))
	require.NoError(t, err)

	diff, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 30, countHighlighted(diff))
	assert.Equal(t, 30, countNonZero(diff))
}

func TestGenerateDiffImage_DimensionMismatch(t *testing.T) {
	_, err := GenerateDiffImage(solid(10, 10, 0, 0, 0), solid(10, 12, 0, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "10x10")
	assert.Contains(t, err.Error(), "10x12")
}

func TestRender_Dim(t *testing.T) {
	d := NewDiffer(RenderOptions{Dim: true})

	img, err := d.Render(solid(4, 4, 255, 0, 0), stripes(4, 4, 1))
	require.NoError(t, err)

	assert.Equal(t, 4, countHighlighted(img))
	p := img.NRGBA().Pix[img.NRGBA().PixOffset(0, 3):]
	assert.Equal(t, []uint8{127, 0, 0, 255}, p[:4], "unchanged pixels are the current image at half brightness")
}
