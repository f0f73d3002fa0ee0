package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/cropcast/internal/model"
)

// RenderTrainingReport formats the outcome of a training run.
func RenderTrainingReport(r *model.TrainingReport, dir string) string {
	rows := [][2]string{
		{"Run", r.RunID},
		{"Data source", string(r.Source)},
		{"Samples", fmt.Sprintf("%d", r.SampleCount)},
		{"MAE", fmt.Sprintf("%.2f", r.MAE)},
		{"MSE", fmt.Sprintf("%.2f", r.MSE)},
		{"R²", renderScore(r.R2)},
		{"CV R²", fmt.Sprintf("%.3f (± %.3f)", r.CVR2Mean, 2*r.CVR2Std)},
		{"Artifacts", dir},
	}
	return RenderBox(chartIcon+" Model trained", renderPairs(rows))
}

// RenderImportances lists features by decreasing importance with a bar for each.
func RenderImportances(imp map[string]float64) string {
	names := make([]string, 0, len(imp))
	for name := range imp {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if imp[names[i]] != imp[names[j]] {
			return imp[names[i]] > imp[names[j]]
		}
		return names[i] < names[j]
	})

	var b strings.Builder
	for _, name := range names {
		bar := strings.Repeat("█", int(math.Round(imp[name]*40)))
		fmt.Fprintf(&b, "%-16s %6.3f %s\n", name, imp[name], barStyle.Render(bar))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPrediction formats a single yield estimate.
func RenderPrediction(y float64, unit, runID string) string {
	line := yieldStyle.Render(fmt.Sprintf("%.2f %s", y, unit))
	if runID != "" {
		line += "\n" + labelStyle.Render("model run "+runID)
	}
	return RenderBox(cropIcon+" Predicted yield", line)
}

// RenderPredictions formats recorded predictions as a table.
func RenderPredictions(preds []model.Prediction) string {
	headers := []string{"When", "Crop", "Region", "Soil", "Temp", "Rain", "Yield"}
	cells := make([][]string, len(preds))
	for i, p := range preds {
		cells[i] = []string{
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
			orDash(p.CropType),
			orDash(p.Region),
			orDash(p.SoilType),
			floatOrDash(p.Temperature, "%.1f"),
			floatOrDash(p.Rainfall, "%.0f"),
			fmt.Sprintf("%.2f", p.PredictedYield),
		}
	}
	return renderTable(headers, cells)
}

// RenderTrainingRuns formats recorded training runs as a table.
func RenderTrainingRuns(runs []model.TrainingReport) string {
	headers := []string{"When", "Run", "Source", "Samples", "MAE", "R²", "CV R²"}
	cells := make([][]string, len(runs))
	for i, r := range runs {
		cells[i] = []string{
			r.TrainedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.RunID),
			string(r.Source),
			fmt.Sprintf("%d", r.SampleCount),
			fmt.Sprintf("%.2f", r.MAE),
			fmt.Sprintf("%.3f", r.R2),
			fmt.Sprintf("%.3f", r.CVR2Mean),
		}
	}
	return renderTable(headers, cells)
}

func renderScore(r2 float64) string {
	out := scoreStyle(r2).Render(fmt.Sprintf("%.3f", r2))
	if r2 < poorFit {
		out += " " + labelStyle.Render("(poor fit)")
	}
	return out
}

func renderPairs(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		label := labelStyle.Render(r[0] + strings.Repeat(" ", width-lipgloss.Width(r[0])))
		lines[i] = label + "  " + r[1]
	}
	return strings.Join(lines, "\n")
}

func renderTable(headers []string, cells [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", w-lipgloss.Width(s))
	}

	head := make([]string, len(headers))
	for i, h := range headers {
		head[i] = cellStyle.Render(pad(h, widths[i]))
	}
	lines := []string{headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, head...))}

	for _, row := range cells {
		cols := make([]string, len(row))
		for i, c := range row {
			cols[i] = cellStyle.Render(pad(c, widths[i]))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func floatOrDash(v float64, format string) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
