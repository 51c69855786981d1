// Package plot renders decoded report directories as PNG figures.
//
// Text directories produce one row per run: response-time shares per label on
// the left and grouped latency-distribution bars on the right. JSON
// directories produce a single latency-distribution chart sorted by label.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
)

const (
	titlePrefix = "Benchmark results for different fill rate for "
	dpi         = 96
)

var (
	rowHeight   = vg.Length(4.8) * vg.Inch
	textWidth   = 10 * vg.Inch
	jsonHeight  = 8 * vg.Inch
	titleHeight = vg.Points(28)
)

// Figure is a laid out set of plots ready to be drawn.
type Figure struct {
	Title  string
	rows   [][]*plot.Plot
	width  vg.Length
	height vg.Length
}

// Title returns the figure title for a report directory.
func Title(dir string) string {
	return titlePrefix + strings.ReplaceAll(cleanDir(dir), "/", " ")
}

// FileName returns the path of the PNG saved for a report directory.
func FileName(dir string) string {
	return filepath.Join(dir, strings.ReplaceAll(cleanDir(dir), "/", "_")+"_plot.png")
}

func cleanDir(dir string) string {
	return strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")
}

// Render lays out the figure for a decoded directory.
func Render(dir source.Dir) (*Figure, error) {
	if len(dir.Files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir.Path, source.ErrNoReports)
	}
	fig := &Figure{Title: Title(dir.Path)}

	switch dir.Dialect() {
	case report.DialectText:
		runs := dir.Runs()
		for i, run := range runs {
			rt, err := responseTimePlot(run)
			if err != nil {
				return nil, fmt.Errorf("run %d: %w", i+1, err)
			}
			ld, err := latencyPlot(run, vg.Points(36), "response time (sec)")
			if err != nil {
				return nil, fmt.Errorf("run %d: %w", i+1, err)
			}
			if len(runs) > 1 {
				rt.Title.Text = fmt.Sprintf("Response time plots (run %d)", i+1)
				ld.Title.Text = fmt.Sprintf("Latency distributions (run %d)", i+1)
			}
			fig.rows = append(fig.rows, []*plot.Plot{rt, ld})
		}
		fig.width = textWidth
		fig.height = vg.Length(len(runs))*rowHeight + titleHeight

	case report.DialectJSON:
		records := dir.Records()
		sort.SliceStable(records, func(i, j int) bool { return records[i].Label < records[j].Label })

		n := len(records)
		if n < 6 {
			n = 6
		}
		fig.width = vg.Length(n) * vg.Inch
		fig.height = jsonHeight + titleHeight
		group := fig.width * 0.7 / vg.Length(len(report.Percentiles))

		ld, err := latencyPlot(records, group, "response time (ns)")
		if err != nil {
			return nil, err
		}
		fig.rows = [][]*plot.Plot{{ld}}

	default:
		return nil, fmt.Errorf("cannot plot %q reports", dir.Dialect())
	}
	return fig, nil
}

// Save writes the figure as a PNG file at path.
func (f *Figure) Save(path string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteTo(out)
	return err
}

// WriteTo draws the figure and writes it to w as PNG.
func (f *Figure) WriteTo(w io.Writer) (int64, error) {
	if len(f.rows) == 0 {
		return 0, errors.New("figure has no plots")
	}
	img := vgimg.NewWith(
		vgimg.UseWH(f.width, f.height),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(img)

	sty := f.rows[0][0].Title.TextStyle
	sty.Font.Size = vg.Points(16)
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	dc.FillText(sty, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - vg.Points(6)}, f.Title)

	tiles := draw.Tiles{
		Rows:      len(f.rows),
		Cols:      len(f.rows[0]),
		PadTop:    titleHeight,
		PadBottom: vg.Points(6),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(6),
		PadX:      vg.Points(18),
		PadY:      vg.Points(18),
	}
	canvases := plot.Align(f.rows, tiles, dc)
	for i := range f.rows {
		for j, p := range f.rows[i] {
			p.Draw(canvases[i][j])
		}
	}
	return vgimg.PngCanvas{Canvas: img}.WriteTo(w)
}

// responseTimePlot draws one line per record: the share of operations that
// fell into each histogram bucket.
func responseTimePlot(records []report.Record) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Response time plots"
	p.X.Label.Text = "response time (sec)"
	p.Y.Label.Text = "operations (%)"
	p.Legend.Top = true

	colors := Colors(len(records))
	for i, rec := range records {
		line, err := plotter.NewLine(shareXYs(rec.Histogram))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.Label, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(rec.Label, line)
	}
	return p, nil
}

// latencyPlot draws one bar per percentile for every record, grouped by
// percentile. group is the canvas width shared by the bars of one group.
func latencyPlot(records []report.Record, group vg.Length, ylabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Latency distributions"
	p.X.Label.Text = "percentiles (%)"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true

	width := group / vg.Length(len(records))
	colors := Colors(len(records))
	for i, rec := range records {
		bars, err := plotter.NewBarChart(plotter.Values(rec.LatencySeries()), width)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.Label, err)
		}
		bars.Color = colors[i]
		bars.LineStyle.Width = 0
		bars.Offset = barOffset(i, len(records), width)
		p.Add(bars)
		p.Legend.Add(rec.Label, bars)
	}
	p.NominalX(percentileNames()...)
	return p, nil
}

// barOffset centres n bars of the given width around their group's tick.
func barOffset(i, n int, width vg.Length) vg.Length {
	return (vg.Length(i) - vg.Length(n-1)/2) * width
}

func percentileNames() []string {
	names := make([]string, len(report.Percentiles))
	for i, p := range report.Percentiles {
		names[i] = report.FormatPercentile(p)
	}
	return names
}

// shareXYs maps a histogram to (boundary, percentage of all operations).
func shareXYs(hist []report.Bucket) plotter.XYs {
	var sum int64
	for _, b := range hist {
		sum += b.Count
	}
	pts := make(plotter.XYs, len(hist))
	for i, b := range hist {
		pts[i].X = b.Boundary
		if sum > 0 {
			pts[i].Y = float64(b.Count) / float64(sum) * 100
		}
	}
	return pts
}
