package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-iqa/images"
	"github.com/nvr-ai/go-iqa/metrics"
	"github.com/nvr-ai/go-iqa/util"
)

func newSequenceCmd(a *app) *cobra.Command {
	var (
		dir    string
		gray   bool
		border int
	)
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Mean PSNR and SSIM between consecutive frames of a directory",
		Long: `Loads frame-<n>.<ext> files from a directory in frame order and reports the
mean PSNR and SSIM over every consecutive frame pair.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gray = boolFlag(cmd, "gray", gray, a.cfg.Grayscale)
			border = intFlag(cmd, "border", border, a.cfg.Border)

			seq, err := a.loadSequence(dir, gray)
			if err != nil {
				return err
			}
			ev, err := a.evaluator()
			if err != nil {
				return err
			}

			batch := []tensor.Tensor{seq}
			psnr, err := metrics.MeanOverBatch(batch, metrics.PSNRFunc(border))
			if err != nil {
				return err
			}
			ssim, err := metrics.MeanOverBatch(batch, ev.SSIMFunc(border))
			if err != nil {
				return err
			}

			a.logger.Info("Scored sequence", "dir", dir, "frames", seq.Shape()[1], "psnr", psnr, "ssim", ssim)
			fmt.Fprintf(cmd.OutOrStdout(), "psnr %.6f\nssim %.6f\n", psnr, ssim)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Frame directory (required)")
	cmd.Flags().BoolVar(&gray, "gray", false, "Compare luma only")
	cmd.Flags().IntVar(&border, "border", 0, "Pixels cropped from each edge")
	cmd.MarkFlagRequired("dir")
	return cmd
}

// loadSequence reads a frame directory into a (C, T, H, W) tensor.
func (a *app) loadSequence(dir string, gray bool) (*tensor.Dense, error) {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, err
	}
	mode := images.ColorModeRGB
	if gray {
		mode = images.ColorModeGrayscale
	}
	seq, err := util.SequenceFromFiles(files, mode)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Loaded sequence", "dir", dir, "shape", seq.Shape())
	return seq, nil
}
