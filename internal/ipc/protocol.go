package ipc

// Request is one newline-delimited JSON command sent to the owner process.
type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response is the owner's reply to one Request.
type Response struct {
	OK          bool     `json:"ok"`
	State       string   `json:"state,omitempty"`
	Message     string   `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
	Transcript  string   `json:"transcript,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
