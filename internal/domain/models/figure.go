package models

// Figure is a Plotly-compatible chart description.
type Figure struct {
	Data   []Trace      `json:"data"`
	Layout Layout       `json:"layout"`
	Config FigureConfig `json:"config"`
}

// Trace is one plotted series. OHLC traces fill Open..Close, scatter traces fill Y.
type Trace struct {
	Type  string    `json:"type"`
	Name  string    `json:"name,omitempty"`
	Mode  string    `json:"mode,omitempty"`
	X     []string  `json:"x"`
	Open  []float64 `json:"open,omitempty"`
	High  []float64 `json:"high,omitempty"`
	Low   []float64 `json:"low,omitempty"`
	Close []float64 `json:"close,omitempty"`
	Y     []float64 `json:"y,omitempty"`
}

type Layout struct {
	Title     string `json:"title"`
	HoverMode string `json:"hovermode"`
	YAxis     Axis   `json:"yaxis"`
	XAxis     Axis   `json:"xaxis"`
}

type Axis struct {
	Title       string       `json:"title,omitempty"`
	RangeSlider *RangeSlider `json:"rangeslider,omitempty"`
}

type RangeSlider struct {
	Visible bool `json:"visible"`
}

type FigureConfig struct {
	ScrollZoom     bool `json:"scrollZoom"`
	DisplayModeBar bool `json:"displayModeBar"`
	Editable       bool `json:"editable"`
}
