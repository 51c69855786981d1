package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/heystat/internal/plot"
	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
)

// Page is one screen of the dashboard: a text run or a whole JSON directory.
type Page struct {
	Dir     string
	Dialect report.Dialect
	Run     int // 1-based; zero for JSON pages
	Runs    int
	Records []report.Record
}

// Title returns the header line of the page.
func (p Page) Title() string {
	title := plot.Title(p.Dir)
	if p.Runs > 1 {
		title += fmt.Sprintf(" (run %d of %d)", p.Run, p.Runs)
	}
	return title
}

// Pages flattens decoded directories into dashboard pages in directory order.
func Pages(dirs []source.Dir) []Page {
	var pages []Page
	for _, dir := range dirs {
		switch dir.Dialect() {
		case report.DialectText:
			runs := dir.Runs()
			for i, run := range runs {
				if len(run) == 0 {
					continue
				}
				pages = append(pages, Page{
					Dir:     dir.Path,
					Dialect: report.DialectText,
					Run:     i + 1,
					Runs:    len(runs),
					Records: run,
				})
			}
		case report.DialectJSON:
			records := dir.Records()
			if len(records) == 0 {
				continue
			}
			sort.SliceStable(records, func(i, j int) bool { return records[i].Label < records[j].Label })
			pages = append(pages, Page{
				Dir:     dir.Path,
				Dialect: report.DialectJSON,
				Records: records,
			})
		}
	}
	return pages
}

// Dashboard renders decoded reports in the terminal, one page at a time.
type Dashboard struct {
	mu     sync.Mutex
	pages  []Page
	page   int
	record int

	// Widgets
	grid       *ui.Grid
	header     *widgets.Paragraph
	seriesPlot *widgets.Plot
	latencyBar *widgets.BarChart
	table      *widgets.Table
}

// New creates a Dashboard for the given directories.
func New(dirs []source.Dir) (*Dashboard, error) {
	pages := Pages(dirs)
	if len(pages) == 0 {
		return nil, errors.New("nothing to display")
	}
	d := &Dashboard{pages: pages}
	d.initWidgets()
	d.update()
	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	d.header = widgets.NewParagraph()
	d.header.Title = "heystat"
	d.header.BorderStyle.Fg = ui.ColorCyan

	d.seriesPlot = widgets.NewPlot()
	d.seriesPlot.AxesColor = ui.ColorWhite
	d.seriesPlot.BorderStyle.Fg = ui.ColorCyan

	d.latencyBar = widgets.NewBarChart()
	d.latencyBar.BarWidth = 7
	d.latencyBar.BorderStyle.Fg = ui.ColorCyan
	d.latencyBar.LabelStyles = []ui.Style{ui.NewStyle(ui.ColorWhite)}
	d.latencyBar.NumStyles = []ui.Style{ui.NewStyle(ui.ColorBlack)}

	d.table = widgets.NewTable()
	d.table.Title = "Summary"
	d.table.TextStyle = ui.NewStyle(ui.ColorWhite)
	d.table.RowSeparator = false
	d.table.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid(width, height int) {
	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, width, height)
	d.grid.Set(
		ui.NewRow(0.12,
			ui.NewCol(1.0, d.header),
		),
		ui.NewRow(0.50,
			ui.NewCol(0.55, d.seriesPlot),
			ui.NewCol(0.45, d.latencyBar),
		),
		ui.NewRow(0.38,
			ui.NewCol(1.0, d.table),
		),
	)
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to initialize termui: %w", err)
	}
	defer ui.Close()

	d.setupGrid(ui.TerminalDimensions())
	d.render()

	uiEvents := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-uiEvents:
			if e.ID == "<Resize>" {
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
				continue
			}
			if d.handle(e.ID) {
				return nil
			}
			d.render()
		}
	}
}

// handle applies a key press and reports whether the dashboard should exit.
func (d *Dashboard) handle(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch id {
	case "q", "<C-c>":
		return true
	case "n", "<PageDown>":
		if d.page < len(d.pages)-1 {
			d.page++
			d.record = 0
		}
	case "p", "<PageUp>":
		if d.page > 0 {
			d.page--
			d.record = 0
		}
	case "<Right>", "<Tab>":
		d.record = (d.record + 1) % len(d.pages[d.page].Records)
	case "<Left>":
		n := len(d.pages[d.page].Records)
		d.record = (d.record + n - 1) % n
	default:
		return false
	}
	d.updateLocked()
	return false
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateLocked()
}

// updateLocked refreshes all widget data from the current page.
func (d *Dashboard) updateLocked() {
	page := d.pages[d.page]
	colors := lineColors(len(page.Records))

	d.header.Text = fmt.Sprintf("%s\nPage %d/%d | [n](fg:yellow)/[p](fg:yellow) page | [←](fg:yellow)/[→](fg:yellow) label | [q](fg:yellow) quit",
		page.Title(), d.page+1, len(d.pages))

	if page.Dialect == report.DialectText {
		d.seriesPlot.Title = "Response time plots (operations %)"
		d.seriesPlot.Data = shareSeries(page.Records)
		d.seriesPlot.DataLabels = boundaryLabels(page.Records[0].Histogram)
	} else {
		d.seriesPlot.Title = "Latency distributions (ms)"
		d.seriesPlot.Data = latencySeries(page.Records, page.Dialect)
		d.seriesPlot.DataLabels = percentileLabels()
	}
	d.seriesPlot.LineColors = colors

	rec := page.Records[d.record]
	d.latencyBar.Title = fmt.Sprintf("Latency distribution: %s (ms)", rec.Label)
	d.latencyBar.Data = latencySeries([]report.Record{rec}, page.Dialect)[0]
	d.latencyBar.Labels = percentileLabels()
	d.latencyBar.BarColors = []ui.Color{colors[d.record]}
	d.latencyBar.NumFormatter = func(v float64) string { return fmt.Sprintf("%.1f", v) }

	d.table.Rows = summaryRows(page)
	d.table.RowStyles = make(map[int]ui.Style, len(page.Records)+1)
	d.table.RowStyles[0] = ui.NewStyle(ui.ColorWhite, ui.ColorClear, ui.ModifierBold)
	for i := range page.Records {
		style := ui.NewStyle(colors[i])
		if i == d.record {
			style.Modifier = ui.ModifierReverse
		}
		d.table.RowStyles[i+1] = style
	}
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

var palette = []ui.Color{ui.ColorGreen, ui.ColorCyan, ui.ColorBlue, ui.ColorYellow, ui.ColorMagenta, ui.ColorRed}

// lineColors assigns one colour per series, green first and red last, like
// the saved figures.
func lineColors(n int) []ui.Color {
	colors := make([]ui.Color, n)
	for i := range colors {
		if n <= len(palette) {
			colors[i] = palette[i*(len(palette)-1)/max(n-1, 1)]
		} else {
			colors[i] = palette[i%len(palette)]
		}
	}
	return colors
}

// shareSeries returns, per record, the percentage of operations per bucket.
func shareSeries(records []report.Record) [][]float64 {
	out := make([][]float64, len(records))
	for i, rec := range records {
		var sum int64
		for _, b := range rec.Histogram {
			sum += b.Count
		}
		out[i] = make([]float64, len(rec.Histogram))
		for j, b := range rec.Histogram {
			if sum > 0 {
				out[i][j] = float64(b.Count) / float64(sum) * 100
			}
		}
	}
	return out
}

// latencySeries returns, per record, the percentile latencies in milliseconds.
func latencySeries(records []report.Record, dialect report.Dialect) [][]float64 {
	scale := 1e3 // seconds
	if dialect == report.DialectJSON {
		scale = 1e-6 // nanoseconds
	}
	out := make([][]float64, len(records))
	for i, rec := range records {
		out[i] = rec.LatencySeries()
		for j := range out[i] {
			out[i][j] *= scale
		}
	}
	return out
}

func percentileLabels() []string {
	labels := make([]string, len(report.Percentiles))
	for i, p := range report.Percentiles {
		labels[i] = report.FormatPercentile(p)
	}
	return labels
}

func boundaryLabels(hist []report.Bucket) []string {
	labels := make([]string, len(hist))
	for i, b := range hist {
		labels[i] = fmt.Sprintf("%.3f", b.Boundary)
	}
	return labels
}

// summaryRows builds the summary table: a header row then one row per record.
func summaryRows(page Page) [][]string {
	rows := [][]string{{"Label", "Total", "Fastest", "Average", "Slowest", "Requests/sec", "p50", "p99"}}
	for _, rec := range page.Records {
		rows = append(rows, []string{
			rec.Label,
			formatDuration(rec.Summary[report.MetricTotal], page.Dialect),
			formatDuration(rec.Summary[report.MetricFastest], page.Dialect),
			formatDuration(rec.Summary[report.MetricAverage], page.Dialect),
			formatDuration(rec.Summary[report.MetricSlowest], page.Dialect),
			fmt.Sprintf("%.1f", rec.RequestsPerSecond),
			formatDuration(rec.Latencies[50], page.Dialect),
			formatDuration(rec.Latencies[99], page.Dialect),
		})
	}
	return rows
}

// formatDuration renders a report value as milliseconds; text reports carry
// seconds and JSON reports nanoseconds.
func formatDuration(v float64, dialect report.Dialect) string {
	ms := v * 1e3
	if dialect == report.DialectJSON {
		ms = v / 1e6
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", ms), "0"), ".") + "ms"
}
