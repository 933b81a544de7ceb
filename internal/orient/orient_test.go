package orient

import (
	"image"
	"image/color"
	"testing"

	"docscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	black = color.RGBA{A: 0}
)

// uprightPage draws a white 600x800 page with a heading block and a stack of
// text-like bars, all within the top third.
func uprightPage(t *testing.T) gocv.Mat {
	t.Helper()
	page := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 800, 600, gocv.MatTypeCV8UC1)
	gocv.Rectangle(&page, image.Rect(60, 40, 400, 110), black, -1)
	for y := 150; y < 260; y += 16 {
		gocv.Rectangle(&page, image.Rect(60, y, 540, y+5), black, -1)
	}
	return page
}

func tilted(t *testing.T, img gocv.Mat, degrees float64) gocv.Mat {
	t.Helper()
	center := geometry.Pt(float64(img.Cols())/2, float64(img.Rows())/2)
	tr := geometry.RotationAbout(center, degrees)

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, tr.A)
	m.SetDoubleAt(0, 1, tr.B)
	m.SetDoubleAt(0, 2, tr.TX)
	m.SetDoubleAt(1, 0, tr.C)
	m.SetDoubleAt(1, 1, tr.D)
	m.SetDoubleAt(1, 2, tr.TY)

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &dst, m, image.Pt(img.Cols(), img.Rows()),
		gocv.InterpolationLinear, gocv.BorderConstant, white)
	return dst
}

func TestDetect_QuarterTurns(t *testing.T) {
	page := uprightPage(t)
	defer page.Close()
	c := New(DefaultParams())

	for _, applied := range Rotations {
		input := Rotate(page, applied)
		res, err := c.Detect(input)
		input.Close()
		require.NoError(t, err)

		want := Rotation((360 - int(applied)) % 360)
		assert.Equal(t, want, res.Rotation, "input turned %d", applied)
		assert.Greater(t, res.Confidence, 0.1, "input turned %d", applied)
	}
}

func TestDetect_BlankPageHasNoConfidence(t *testing.T) {
	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 400, 300, gocv.MatTypeCV8UC1)
	defer blank.Close()

	res, err := New(DefaultParams()).Detect(blank)
	require.NoError(t, err)
	assert.Equal(t, Rotate0, res.Rotation)
	assert.Zero(t, res.Confidence)
}

func TestDetect_EmptyImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := New(DefaultParams()).Detect(empty)
	assert.Error(t, err)
}

func TestCorrect_SkipsRotationBelowThreshold(t *testing.T) {
	page := uprightPage(t)
	defer page.Close()
	upsideDown := Rotate(page, Rotate180)
	defer upsideDown.Close()

	params := DefaultParams()
	params.ConfidenceThreshold = 1.0
	out, res, err := New(params).Correct(upsideDown)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, Rotate180, res.Rotation)
	assert.False(t, res.Applied)
	assert.Equal(t, upsideDown.Rows(), out.Rows())
}

func TestCorrect_RotatesSidewaysPage(t *testing.T) {
	page := uprightPage(t)
	defer page.Close()
	sideways := Rotate(page, Rotate90)
	defer sideways.Close()

	params := DefaultParams()
	params.ConfidenceThreshold = 0.1
	out, res, err := New(params).Correct(sideways)
	require.NoError(t, err)
	defer out.Close()

	assert.True(t, res.Applied)
	assert.Equal(t, Rotate270, res.Rotation)
	assert.Equal(t, page.Rows(), out.Rows())
	assert.Equal(t, page.Cols(), out.Cols())
}

func TestDeskew_RemovesSmallTilt(t *testing.T) {
	page := uprightPage(t)
	defer page.Close()
	input := tilted(t, page, 5)
	defer input.Close()

	c := New(DefaultParams())
	out, angle, err := c.Deskew(input)
	require.NoError(t, err)
	defer out.Close()

	assert.InDelta(t, 5, angle, 1)
	remaining, ok := c.ResidualSkew(out)
	require.True(t, ok)
	assert.InDelta(t, 0, remaining, 1)
}

func TestDeskew_LeavesStraightPage(t *testing.T) {
	page := uprightPage(t)
	defer page.Close()

	out, angle, err := New(DefaultParams()).Deskew(page)
	require.NoError(t, err)
	defer out.Close()

	assert.Zero(t, angle)
	assert.Equal(t, page.Size(), out.Size())
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, confidence([4]float64{}))
	assert.Zero(t, confidence([4]float64{0.5, 0.5, 0.5, 0.5}))
	assert.InDelta(t, 0.5, confidence([4]float64{0.2, 1.0, 0.5, 0.1}), 1e-9)
}

func TestSegmentAngle(t *testing.T) {
	assert.InDelta(t, 0, segment{0, 0, 10, 0}.angle(), 1e-9)
	assert.InDelta(t, 0, segment{10, 0, 0, 0}.angle(), 1e-9)
	assert.InDelta(t, 45, segment{0, 0, 10, 10}.angle(), 1e-9)
	assert.InDelta(t, 90, segment{0, 0, 0, 10}.angle(), 1e-9)
	assert.InDelta(t, -45, segment{0, 10, 10, 0}.angle(), 1e-9)
}
