package dto

// AskEnvelope wraps the REST answer payload together with the progress log
// lines emitted while the question was processed.
type AskEnvelope struct {
	OK    bool         `json:"ok"`
	Data  *AskResponse `json:"data,omitempty"`
	Logs  []string     `json:"logs"`
	Error string       `json:"error,omitempty"`
}
