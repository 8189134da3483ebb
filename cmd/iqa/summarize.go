package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-iqa/history"
	"github.com/nvr-ai/go-iqa/summary"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		dir           string
		checkpointDir string
		mode          string
		historyDB     string
		step          int
		loss          []float64
		gray          bool
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Write loss, PSNR and SSIM summary files for one step",
		Long: `Treats a frame directory as a one-sequence batch and writes
{mode}_loss.txt, {mode}_psnr.txt and {mode}_ssim.txt into the checkpoint directory.
In train mode the loss values are averaged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			checkpointDir = stringFlag(cmd, "checkpoint-dir", checkpointDir, a.cfg.CheckpointDir)
			mode = stringFlag(cmd, "mode", mode, a.cfg.Mode)
			historyDB = stringFlag(cmd, "history-db", historyDB, a.cfg.HistoryDB)
			gray = boolFlag(cmd, "gray", gray, a.cfg.Grayscale)
			if len(loss) == 0 {
				return errors.New("--loss needs at least one value")
			}

			seq, err := a.loadSequence(dir, gray)
			if err != nil {
				return err
			}
			ev, err := a.evaluator()
			if err != nil {
				return err
			}

			w := &summary.Writer{
				Dir:       checkpointDir,
				Mode:      mode,
				Evaluator: ev,
				Logger:    a.logger,
			}
			if historyDB != "" {
				store, err := history.Open(historyDB)
				if err != nil {
					return err
				}
				defer store.Close()
				w.History = store
				a.logger.Debug("Recording history", "db", historyDB, "run_id", store.RunID())
			}

			lossTensor := tensor.New(tensor.WithShape(len(loss)), tensor.WithBacking(loss))
			if err := w.Save(cmd.Context(), lossTensor, []tensor.Tensor{seq}, step); err != nil {
				return err
			}

			a.logger.Info("Wrote summary", "dir", checkpointDir, "mode", mode, "step", step)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n%s\n", w.Path("loss"), w.Path("psnr"), w.Path("ssim"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Frame directory (required)")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", ".", "Directory the summary files are written to")
	cmd.Flags().StringVar(&mode, "mode", "test", "Summary mode, e.g. train or test")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "SQLite file recording every summary")
	cmd.Flags().IntVar(&step, "step", 0, "Step number")
	cmd.Flags().Float64SliceVar(&loss, "loss", nil, "Loss values, comma separated")
	cmd.Flags().BoolVar(&gray, "gray", false, "Compare luma only")
	cmd.MarkFlagRequired("dir")
	cmd.MarkFlagRequired("step")
	cmd.MarkFlagRequired("loss")
	return cmd
}
