// Package backend speaks the prediction and speech HTTP contracts.
package backend

// PredictRequest is the POST /predict body.
type PredictRequest struct {
	Image    string `json:"image"`
	Sentence string `json:"sentence"`
}

// PredictResponse is the POST /predict reply. Both fields are optional.
type PredictResponse struct {
	Prediction  string   `json:"prediction,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SpeakRequest is the POST /speak body.
type SpeakRequest struct {
	Text string `json:"text"`
}

// SpeakResponse is the POST /speak reply.
type SpeakResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusSuccess is the only speak status treated as success.
const StatusSuccess = "success"

// Succeeded reports whether the speech engine accepted the text.
func (r SpeakResponse) Succeeded() bool {
	return r.Status == StatusSuccess
}
