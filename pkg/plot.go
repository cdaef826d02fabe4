package digitizer

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotSignal draws the analog waveform, in ADC units, over the digitized
// samples of a signal and saves the figure. The format follows the file
// extension.
func PlotSignal(s *Signal, filename string) error {
	params := s.DigitizedParams()
	samples := s.Dgtz()
	if len(samples) == 0 {
		return fmt.Errorf("plotting hit %d: %w", s.Hitn(), ErrNotDigitized)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Hit %d, layer %d, wire %d", s.Hitn(), s.Layer(), s.Component())
	p.X.Label.Text = "time (ns)"
	p.Y.Label.Text = "ADC"

	digitized := make(plotter.XYs, len(samples))
	for i, v := range samples {
		digitized[i] = plotter.XY{X: params.Tmin + float64(i)*params.SamplingTime, Y: float64(v)}
	}

	wf := s.Waveform()
	nAnalog := 4 * len(samples)
	step := (params.Tmax - params.Tmin) / float64(nAnalog)
	analog := make(plotter.XYs, nAnalog)
	for i := range analog {
		t := params.Tmin + float64(i)*step
		analog[i] = plotter.XY{X: t, Y: params.ElectronYield*wf(t) + s.Pedestal()}
	}

	analogLine, err := plotter.NewLine(analog)
	if err != nil {
		return fmt.Errorf("analog line: %w", err)
	}
	analogLine.Width = vg.Points(1)
	analogLine.Color = color.RGBA{R: 200, A: 255}

	dgtzLine, err := plotter.NewLine(digitized)
	if err != nil {
		return fmt.Errorf("digitized line: %w", err)
	}
	dgtzLine.Width = vg.Points(1)
	dgtzLine.Color = color.RGBA{B: 200, A: 255}

	p.Add(analogLine, dgtzLine)
	p.Legend.Add("analog", analogLine)
	p.Legend.Add("digitized", dgtzLine)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("save waveform plot: %w", err)
	}
	return nil
}

// PlotHistogram saves a histogram of values.
func PlotHistogram(values []float64, bins int, title, xLabel, filename string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "entries"

	hist, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(hist)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("save histogram: %w", err)
	}
	return nil
}
