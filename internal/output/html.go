package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/torosent/heystat/internal/plot"
	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt string
	Dirs        []HTMLDir
}

// HTMLDir is the section rendered for one directory.
type HTMLDir struct {
	Path    string
	Title   string
	Dialect report.Dialect
	Files   int
	Runs    []HTMLRun
}

// HTMLRun is one table and chart: a text run or a whole JSON directory.
type HTMLRun struct {
	Name      string
	ChartID   string
	Rows      []HTMLRow
	ChartJSON string
}

// HTMLRow summarizes one record.
type HTMLRow struct {
	Label   string
	Total   time.Duration
	Fastest time.Duration
	Average time.Duration
	Slowest time.Duration
	RPS     float64
	P50     time.Duration
	P90     time.Duration
	P99     time.Duration
}

type chartData struct {
	Percentiles []float64   `json:"percentiles"`
	Labels      []string    `json:"labels"`
	Series      [][]float64 `json:"series"` // milliseconds
}

// GenerateHTMLReport generates a standalone HTML summary with one latency
// distribution chart per run.
func GenerateHTMLReport(w io.Writer, dirs []source.Dir) error {
	data := HTMLReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Dirs:        make([]HTMLDir, 0, len(dirs)),
	}

	chart := 0
	for _, dir := range dirs {
		hd := HTMLDir{
			Path:    dir.Path,
			Title:   plot.Title(dir.Path),
			Dialect: dir.Dialect(),
			Files:   len(dir.Files),
		}

		var groups [][]report.Record
		if dir.Dialect() == report.DialectJSON {
			records := dir.Records()
			sort.SliceStable(records, func(i, j int) bool { return records[i].Label < records[j].Label })
			groups = [][]report.Record{records}
		} else {
			groups = dir.Runs()
		}

		for i, records := range groups {
			run, err := newHTMLRun(records, fmt.Sprintf("chart-%d", chart))
			if err != nil {
				return err
			}
			if len(groups) > 1 {
				run.Name = fmt.Sprintf("Run %d", i+1)
			}
			hd.Runs = append(hd.Runs, run)
			chart++
		}
		data.Dirs = append(data.Dirs, hd)
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

func newHTMLRun(records []report.Record, chartID string) (HTMLRun, error) {
	run := HTMLRun{ChartID: chartID, Rows: make([]HTMLRow, 0, len(records))}
	cd := chartData{Percentiles: report.Percentiles}

	for _, rec := range records {
		dur := func(v float64) time.Duration { return Duration(v, rec.Dialect) }
		run.Rows = append(run.Rows, HTMLRow{
			Label:   rec.Label,
			Total:   dur(rec.Summary[report.MetricTotal]),
			Fastest: dur(rec.Summary[report.MetricFastest]),
			Average: dur(rec.Summary[report.MetricAverage]),
			Slowest: dur(rec.Summary[report.MetricSlowest]),
			RPS:     rec.RequestsPerSecond,
			P50:     dur(rec.Latencies[50]),
			P90:     dur(rec.Latencies[90]),
			P99:     dur(rec.Latencies[99]),
		})

		series := make([]float64, len(report.Percentiles))
		for i, p := range report.Percentiles {
			series[i] = float64(dur(rec.Latencies[p])) / float64(time.Millisecond)
		}
		cd.Labels = append(cd.Labels, rec.Label)
		cd.Series = append(cd.Series, series)
	}

	raw, err := json.Marshal(cd)
	if err != nil {
		return HTMLRun{}, fmt.Errorf("failed to marshal chart data: %w", err)
	}
	run.ChartJSON = string(raw)
	return run, nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>heystat report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #1a9850 0%, #d73027 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .section .meta {
            color: #6c757d;
            font-size: 0.9rem;
            margin-bottom: 15px;
        }
        .chart-container {
            background: white;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
            border: 1px solid #e5e7eb;
        }
        .chart-container h3 {
            font-size: 1.1rem;
            margin-bottom: 15px;
            color: #4b5563;
        }
        .chart {
            width: 100%;
            height: 300px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
            margin-bottom: 20px;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>heystat report</h1>
            <div class="meta">Generated: {{.GeneratedAt}} | Directories: {{len .Dirs}}</div>
        </header>

        <div class="content">
            {{range .Dirs}}
            <div class="section">
                <h2>{{.Title}}</h2>
                <div class="meta">{{.Path}} | {{.Dialect}} reports | {{.Files}} files</div>
                {{range .Runs}}
                <div class="chart-container">
                    <h3>Latency distributions{{if .Name}} ({{.Name}}){{end}}</h3>
                    <table>
                        <thead>
                            <tr>
                                <th>Label</th>
                                <th>Total</th>
                                <th>Fastest</th>
                                <th>Average</th>
                                <th>Slowest</th>
                                <th>Requests/sec</th>
                                <th>P50</th>
                                <th>P90</th>
                                <th>P99</th>
                            </tr>
                        </thead>
                        <tbody>
                            {{range .Rows}}
                            <tr>
                                <td><strong>{{.Label}}</strong></td>
                                <td>{{formatDuration .Total}}</td>
                                <td>{{formatDuration .Fastest}}</td>
                                <td>{{formatDuration .Average}}</td>
                                <td>{{formatDuration .Slowest}}</td>
                                <td>{{formatFloat .RPS}}</td>
                                <td>{{formatDuration .P50}}</td>
                                <td>{{formatDuration .P90}}</td>
                                <td>{{formatDuration .P99}}</td>
                            </tr>
                            {{end}}
                        </tbody>
                    </table>
                    <div id="{{.ChartID}}" class="chart" data-chart="{{.ChartJSON}}"></div>
                </div>
                {{end}}
            </div>
            {{end}}
        </div>
    </div>

    <script>
        const colors = ["#1a9850", "#91cf60", "#d9ef8b", "#fee08b", "#fc8d59", "#d73027"];
        document.querySelectorAll('.chart').forEach(el => {
            const chart = JSON.parse(el.dataset.chart);
            const xs = chart.percentiles.map((_, i) => i);
            const series = [{ label: "Percentile" }];
            chart.labels.forEach((label, i) => {
                series.push({
                    label: label,
                    stroke: colors[Math.round(i * (colors.length - 1) / Math.max(chart.labels.length - 1, 1))],
                    width: 2
                });
            });
            new uPlot({
                width: el.offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: series,
                axes: [
                    { label: "Percentile (%)", values: (u, ticks) => ticks.map(t => chart.percentiles[t] ?? "") },
                    { label: "Latency (ms)" }
                ]
            }, [xs, ...chart.series], el);
        });
    </script>
</body>
</html>
`
