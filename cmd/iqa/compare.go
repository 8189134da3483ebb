package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-iqa/config"
	"github.com/nvr-ai/go-iqa/images"
	"github.com/nvr-ai/go-iqa/images/cv"
)

type compareOptions struct {
	ref       string
	img       string
	border    int
	gray      bool
	matchSize bool
	opencv    bool
}

// newCompareCmd builds the psnr or ssim command; both share their flags.
func newCompareCmd(a *app, metric string) *cobra.Command {
	var o compareOptions
	cmd := &cobra.Command{
		Use:   metric,
		Short: fmt.Sprintf("Compute %s between two images", metric),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd, metric, o)
		},
	}
	cmd.Flags().StringVar(&o.ref, "ref", "", "Reference image path (required)")
	cmd.Flags().StringVar(&o.img, "img", "", "Compared image path (required)")
	cmd.Flags().IntVar(&o.border, "border", 0, "Pixels cropped from each edge")
	cmd.Flags().BoolVar(&o.gray, "gray", false, "Compare luma only")
	cmd.Flags().BoolVar(&o.matchSize, "match-size", false, "Resize the compared image to the reference size")
	if metric == "ssim" {
		cmd.Flags().BoolVar(&o.opencv, "opencv", false, "Read images and filter with OpenCV")
	}
	cmd.MarkFlagRequired("ref")
	cmd.MarkFlagRequired("img")
	return cmd
}

func (a *app) runCompare(cmd *cobra.Command, metric string, o compareOptions) error {
	border := intFlag(cmd, "border", o.border, a.cfg.Border)
	gray := boolFlag(cmd, "gray", o.gray, a.cfg.Grayscale)
	match := boolFlag(cmd, "match-size", o.matchSize, a.cfg.MatchSize)
	if o.opencv {
		a.cfg.Backend = config.BackendOpenCV
	}

	ref, img, err := a.loadPair(o.ref, o.img, gray, match)
	if err != nil {
		return err
	}

	ev, err := a.evaluator()
	if err != nil {
		return err
	}
	var score float64
	switch metric {
	case "psnr":
		score, err = ev.PSNR(ref, img, border)
	case "ssim":
		score, err = ev.SSIM(ref, img, border)
	default:
		return errors.Errorf("unknown metric %q", metric)
	}
	if err != nil {
		return err
	}

	a.logger.Info("Compared images",
		"metric", metric, "ref", o.ref, "img", o.img,
		"border", border, "backend", a.cfg.Backend, "score", score)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %.6f\n", metric, score)
	return nil
}

// loadPair decodes both images. The OpenCV backend reads with IMRead unless
// the second image has to be resized, which goes through the Go loader.
func (a *app) loadPair(refPath, imgPath string, gray, match bool) (images.Array, images.Array, error) {
	if a.cfg.Backend == config.BackendOpenCV && !match {
		ref, err := cv.Load(refPath, gray)
		if err != nil {
			return images.Array{}, images.Array{}, err
		}
		img, err := cv.Load(imgPath, gray)
		if err != nil {
			return images.Array{}, images.Array{}, err
		}
		return ref, img, nil
	}

	mode := images.ColorModeRGB
	if gray {
		mode = images.ColorModeGrayscale
	}
	refImg, err := images.Load(refPath)
	if err != nil {
		return images.Array{}, images.Array{}, err
	}
	img, err := images.Load(imgPath)
	if err != nil {
		return images.Array{}, images.Array{}, err
	}
	if match {
		b := refImg.Bounds()
		if img, err = images.ResizeTo(img, b.Dx(), b.Dy()); err != nil {
			return images.Array{}, images.Array{}, err
		}
	}

	ref, err := images.FromImage(refImg, mode)
	if err != nil {
		return images.Array{}, images.Array{}, errors.Wrapf(err, "failed to convert %s", refPath)
	}
	cmp, err := images.FromImage(img, mode)
	if err != nil {
		return images.Array{}, images.Array{}, errors.Wrapf(err, "failed to convert %s", imgPath)
	}
	return ref, cmp, nil
}
