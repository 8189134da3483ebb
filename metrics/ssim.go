package metrics

import (
	"log/slog"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/nvr-ai/go-iqa/images"
	"github.com/nvr-ai/go-iqa/images/kernels"
)

const (
	// SSIMWindowSize is the side of the Gaussian window.
	SSIMWindowSize = 11
	// SSIMWindowSigma is the standard deviation of the Gaussian window.
	SSIMWindowSigma = 1.5
	// ssimMargin is discarded on every side of the filtered planes.
	ssimMargin = SSIMWindowSize / 2
)

var (
	ssimC1 = (0.01 * MaxPixel) * (0.01 * MaxPixel)
	ssimC2 = (0.03 * MaxPixel) * (0.03 * MaxPixel)
)

// Filter smooths a single-channel plane with the 11x11, sigma 1.5 Gaussian
// window. Implementations must return a plane of the input's size and sample
// outside the plane with reflect-101 borders to match cv::filter2D.
type Filter interface {
	Smooth(src []float64, width, height int) ([]float64, error)
}

// Options configures an Evaluator.
type Options struct {
	// Filter overrides the SSIM window filter. Nil uses the pure-Go separable
	// Gaussian from the kernels package.
	Filter Filter
	// Parallel splits the default filter's passes across goroutines.
	Parallel bool
	// Logger receives debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// Evaluator computes PSNR and SSIM with a fixed filter backend.
type Evaluator struct {
	filter Filter
	logger *slog.Logger
}

// NewEvaluator creates an evaluator from the given options.
//
// @example
// ev, err := NewEvaluator(Options{Parallel: true})
// score, err := ev.SSIM(a, b, 0)
func NewEvaluator(opts Options) (*Evaluator, error) {
	f := opts.Filter
	if f == nil {
		g, err := kernels.NewGaussian(SSIMWindowSize, SSIMWindowSigma, kernels.Options{
			Edge:     kernels.EdgeReflect101,
			Parallel: opts.Parallel,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to build SSIM window")
		}
		f = g
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{filter: f, logger: logger}, nil
}

var defaultEvaluator = mustEvaluator(NewEvaluator(Options{}))

func mustEvaluator(e *Evaluator, err error) *Evaluator {
	if err != nil {
		panic(err)
	}
	return e
}

// SSIM computes the mean structural similarity index with the default filter.
//
// Arguments:
//   - a, b: Images of identical shape, [H, W] or [H, W, C] with C in {1, 3}.
//   - border: Pixels to crop from each side, >= 0.
//
// Returns:
//   - float64: The SSIM index, 1 for identical images.
//   - error: ErrShapeMismatch, ErrUnsupportedShape or ErrInvalidBorder.
func SSIM(a, b images.Array, border int) (float64, error) {
	return defaultEvaluator.SSIM(a, b, border)
}

// PSNR computes PSNR; it does not depend on the filter backend.
func (e *Evaluator) PSNR(a, b images.Array, border int) (float64, error) {
	return PSNR(a, b, border)
}

// SSIM validates and crops the pair, then dispatches on its layout once:
// grayscale arrays are compared directly, 3-channel arrays are compared per
// channel plane and the three scores averaged, and single-channel 3D arrays
// are squeezed to 2D.
func (e *Evaluator) SSIM(a, b images.Array, border int) (float64, error) {
	ca, cb, err := prepare(a, b, border)
	if err != nil {
		return 0, err
	}

	switch ca.Layout() {
	case images.LayoutGrayscale2D:
		return e.ssimPlane(ca.Data, cb.Data, ca.Width(), ca.Height())

	case images.LayoutMultiChannel3D:
		switch ca.Channels() {
		case 3:
			scores := make([]float64, 3)
			for c := range scores {
				s, err := e.ssimPlane(ca.Plane(c), cb.Plane(c), ca.Width(), ca.Height())
				if err != nil {
					return 0, errors.Wrapf(err, "channel %d", c)
				}
				scores[c] = s
			}
			e.logger.Debug("ssim per channel", "scores", scores)
			return stat.Mean(scores, nil), nil
		case 1:
			sa, sb := ca.Squeeze(), cb.Squeeze()
			return e.ssimPlane(sa.Data, sb.Data, sa.Width(), sa.Height())
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedShape, "shape %v", ca.Shape)
}

// ssimPlane returns the mean of the SSIM map of two single-channel planes.
func (e *Evaluator) ssimPlane(x, y []float64, width, height int) (float64, error) {
	m, err := e.ssimMap(x, y, width, height)
	if err != nil {
		return 0, err
	}
	return stat.Mean(m, nil), nil
}

// ssimMap computes the SSIM map after discarding a 5-pixel margin on every
// side. Planes too small for the full margin keep their central rows and
// columns: the margin shrinks to (n-1)/2 along that axis.
func (e *Evaluator) ssimMap(x, y []float64, width, height int) ([]float64, error) {
	if width <= 0 || height <= 0 || len(x) != width*height || len(y) != len(x) {
		return nil, errors.Wrapf(ErrUnsupportedShape, "planes of %d and %d values for %dx%d", len(x), len(y), width, height)
	}
	mx := min(ssimMargin, (width-1)/2)
	my := min(ssimMargin, (height-1)/2)
	if mx < ssimMargin || my < ssimMargin {
		e.logger.Debug("plane smaller than the SSIM window, shrinking margin",
			"width", width, "height", height, "margin_x", mx, "margin_y", my)
	}

	xx := make([]float64, len(x))
	yy := make([]float64, len(y))
	xy := make([]float64, len(x))
	for i := range x {
		xx[i] = x[i] * x[i]
		yy[i] = y[i] * y[i]
		xy[i] = x[i] * y[i]
	}

	planes := [][]float64{x, y, xx, yy, xy}
	filtered := make([][]float64, len(planes))
	for i, p := range planes {
		f, err := e.filter.Smooth(p, width, height)
		if err != nil {
			return nil, errors.Wrap(err, "ssim window filter failed")
		}
		if len(f) != width*height {
			return nil, errors.Errorf("ssim window filter returned %d values, want %d", len(f), width*height)
		}
		filtered[i] = f
	}
	mu1, mu2, s11, s22, s12 := filtered[0], filtered[1], filtered[2], filtered[3], filtered[4]

	out := make([]float64, 0, (width-2*mx)*(height-2*my))
	for r := my; r < height-my; r++ {
		for c := mx; c < width-mx; c++ {
			i := r*width + c
			mu1Sq := mu1[i] * mu1[i]
			mu2Sq := mu2[i] * mu2[i]
			mu12 := mu1[i] * mu2[i]
			sigma1Sq := s11[i] - mu1Sq
			sigma2Sq := s22[i] - mu2Sq
			sigma12 := s12[i] - mu12

			num := (2*mu12 + ssimC1) * (2*sigma12 + ssimC2)
			den := (mu1Sq + mu2Sq + ssimC1) * (sigma1Sq + sigma2Sq + ssimC2)
			out = append(out, num/den)
		}
	}
	return out, nil
}
