package api_models

import eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"

// LabelConfig is what a device pulls on check-in
type LabelConfig struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// ConfigFromLabel projects a registry record onto the device-facing config
func ConfigFromLabel(label *eslmodels.Label) LabelConfig {
	return LabelConfig{
		Name:     label.ProductName,
		Price:    label.Price,
		Currency: label.Currency,
	}
}

// UpdateTagRequest is the operator request to change a label's content
type UpdateTagRequest struct {
	TagID string `json:"tagId" form:"tagId"`
	Name  string `json:"name" form:"name"`
	Price string `json:"price" form:"price"`
}

// UpdateTagResponse acknowledges a published update
type UpdateTagResponse struct {
	Message string `json:"message"`
	Topic   string `json:"topic"`
	Bytes   int    `json:"bytes"`
}

// ErrorResponse is the body of every JSON error
type ErrorResponse struct {
	Error     string `json:"error"`
	Persisted bool   `json:"persisted,omitempty"`
}
