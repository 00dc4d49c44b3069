package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kcz17/pagetime/timings"
)

// PlotFormatFromPath returns the image format of a .png or .svg path.
func PlotFormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "png", "svg":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported plot file %s; expected a .png or .svg file", path)
}

// WritePlot draws a box plot of the durations of every metric of session.
func WritePlot(w io.Writer, session *timings.Session, format string) error {
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("WritePlot() creating plot: %w", err)
	}
	p.Title.Text = "Page load metrics"
	p.Y.Label.Text = "Duration (ms)"

	names := session.MetricNames()
	for i, name := range names {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(session.Durations(name)))
		if err != nil {
			return fmt.Errorf("WritePlot() creating box plot of %s: %w", name, err)
		}
		p.Add(box)
	}
	p.NominalX(names...)

	width := vg.Length(len(names)+1) * vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}
	writerTo, err := p.WriterTo(width, 5*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("WritePlot() creating %s writer: %w", format, err)
	}
	if _, err := writerTo.WriteTo(w); err != nil {
		return fmt.Errorf("WritePlot() writing %s: %w", format, err)
	}
	return nil
}
