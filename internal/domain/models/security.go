package models

// SecurityOption is one selectable entry of the security dropdown.
type SecurityOption struct {
	Symbol string `json:"value"`
	Label  string `json:"label"`
}
