package models

// Requests for dashboard HTTP endpoints. Dates are ISO YYYY-MM-DD; empty means the default window.

type SeriesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Start  string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `query:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type ChartRequestHTTP struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Start  string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `query:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
	Trend  int    `query:"trend" json:"trend" default:"0" validate:"oneof=0 1"`
}
