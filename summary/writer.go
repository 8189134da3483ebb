// Package summary writes per-step loss, PSNR and SSIM lines for a training or
// evaluation mode.
//
// Each call leaves three files in the checkpoint directory:
//
//	{mode}_loss.txt  "{step} {loss}\n"
//	{mode}_psnr.txt  "{step} {psnr}\n"
//	{mode}_ssim.txt  "{step} {ssim}\n"
//
// Files are replaced on every call, so they only ever hold the latest step.
package summary

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-iqa/history"
	"github.com/nvr-ai/go-iqa/metrics"
)

// TrainMode is the mode whose loss is averaged before writing.
const TrainMode = "train"

// Recorder receives one entry per successful Save.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Writer writes summaries for a single (Dir, Mode) pair.
// Concurrent writers on the same pair overwrite each other.
type Writer struct {
	// Dir is the checkpoint directory. It must exist.
	Dir string
	// Mode names the phase, e.g. "train" or "test".
	Mode string
	// Evaluator computes SSIM. Nil uses the default Gaussian evaluator.
	Evaluator *metrics.Evaluator
	// History, when set, also records every summary.
	History Recorder
	// Logger receives debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// Save writes loss, PSNR and SSIM for the given step into dir.
//
// Arguments:
//   - loss: The loss tensor. In "train" mode its elements are averaged.
//   - g: Generated sequences, each a (C, T, H, W) tensor.
//   - step: The step number written at the start of each line.
//   - dir: The checkpoint directory.
//   - mode: The phase name used as file prefix.
//
// Returns:
//   - error: A file-system or metric error.
//
// @example
// err := summary.Save(loss, generated, 1200, "checkpoints", "train")
func Save(loss tensor.Tensor, g []tensor.Tensor, step int, dir, mode string) error {
	w := &Writer{Dir: dir, Mode: mode}
	return w.Save(context.Background(), loss, g, step)
}

// Save writes the three summary files and records the entry in History.
// The loss file is written before the metrics are computed; a metric error
// leaves it in place.
func (w *Writer) Save(ctx context.Context, loss tensor.Tensor, g []tensor.Tensor, step int) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	values, err := metrics.TensorValues(loss)
	if err != nil {
		return errors.Wrap(err, "failed to read loss tensor")
	}
	if len(values) == 0 {
		return errors.New("empty loss tensor")
	}

	lossText, lossValue := formatLoss(values, w.Mode == TrainMode)
	if err := w.writeLine("loss", step, lossText); err != nil {
		return err
	}

	psnr, err := metrics.MeanOverBatch(g, metrics.PSNRFunc(0))
	if err != nil {
		return errors.Wrap(err, "failed to compute psnr")
	}
	if err := w.writeLine("psnr", step, formatMetric(psnr)); err != nil {
		return err
	}

	ssimFn := metrics.SSIMFunc(0)
	if w.Evaluator != nil {
		ssimFn = w.Evaluator.SSIMFunc(0)
	}
	ssim, err := metrics.MeanOverBatch(g, ssimFn)
	if err != nil {
		return errors.Wrap(err, "failed to compute ssim")
	}
	if err := w.writeLine("ssim", step, formatMetric(ssim)); err != nil {
		return err
	}

	logger.Debug("summary written",
		"dir", w.Dir, "mode", w.Mode, "step", step,
		"loss", lossValue, "psnr", psnr, "ssim", ssim)

	if w.History == nil {
		return nil
	}
	err = w.History.Record(ctx, history.Entry{
		Mode: w.Mode,
		Step: step,
		Loss: lossValue,
		PSNR: psnr,
		SSIM: ssim,
	})
	return errors.Wrap(err, "failed to record summary history")
}

// Path returns the file a metric is written to.
func (w *Writer) Path(metric string) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%s.txt", w.Mode, metric))
}

// writeLine replaces the metric file with a single "{step} {value}" line.
func (w *Writer) writeLine(metric string, step int, value string) error {
	path := w.Path(metric)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "failed to remove %s", path)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	if _, err := fmt.Fprintf(f, "%d %s\n", step, value); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}

// formatLoss renders the loss line value and the scalar stored in history.
// Averaged or single losses render as one float, several raw values as "[a b c]".
func formatLoss(values []float64, average bool) (string, float64) {
	if average {
		mean := stat.Mean(values, nil)
		return formatFloat(mean), mean
	}
	if len(values) == 1 {
		return formatFloat(values[0]), values[0]
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, " ") + "]", stat.Mean(values, nil)
}

// formatFloat always shows a fractional part: 2 -> "2.0", 0.25 -> "0.25".
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatMetric renders the shortest exact form: 100 -> "100", 31.5 -> "31.5".
func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
