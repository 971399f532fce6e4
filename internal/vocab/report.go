package vocab

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
)

// FileStats summarises the per-file token counts of a run.
type FileStats struct {
	Files  int
	Tokens int
	Mean   float64
	Median float64
	Max    float64
}

// Stats computes per-file token statistics. A run over no files returns
// zero values.
func (r *Result) Stats() (FileStats, error) {
	fs := FileStats{Files: len(r.Files)}
	if len(r.Files) == 0 {
		return fs, nil
	}
	data := make([]float64, len(r.Files))
	for i, f := range r.Files {
		data[i] = float64(f.Tokens)
		fs.Tokens += f.Tokens
	}
	var err error
	if fs.Mean, err = stats.Mean(data); err != nil {
		return fs, fmt.Errorf("calculating mean: %w", err)
	}
	if fs.Median, err = stats.Median(data); err != nil {
		return fs, fmt.Errorf("calculating median: %w", err)
	}
	if fs.Max, err = stats.Max(data); err != nil {
		return fs, fmt.Errorf("calculating max: %w", err)
	}
	return fs, nil
}

// WriteReport prints the top words with their counts, per-file totals and
// the index dump. top < 0 prints every word.
func (r *Result) WriteReport(w io.Writer, top int) error {
	fs, err := r.Stats()
	if err != nil {
		return err
	}

	most := r.Global.MostCommon(top)
	fmt.Fprintf(w, "Top %d words:\n", len(most))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for i, wc := range most {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t\n", i+1, wc.Word, humanize.Comma(int64(wc.Count)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "distinct words: %s\n", humanize.Comma(int64(r.Global.Len())))
	fmt.Fprintf(w, "files: %d  tokens: %s  per file: mean %s median %s max %s\n",
		fs.Files,
		humanize.Comma(int64(fs.Tokens)),
		humanize.CommafWithDigits(fs.Mean, 1),
		humanize.CommafWithDigits(fs.Median, 1),
		humanize.Comma(int64(fs.Max)),
	)
	fmt.Fprintf(w, "elapsed: %v", r.Duration.Round(time.Millisecond))
	if r.Trace != nil {
		for _, stage := range r.Trace.Children() {
			fmt.Fprintf(w, "  %s %v", stage.Name, stage.Duration.Round(time.Microsecond))
		}
	}
	fmt.Fprintln(w)
	_, err = io.WriteString(w, r.Index.String())
	return err
}
