package models

// DeadLetter is published for every document the pipeline could not
// enrich.
type DeadLetter struct {
	ID        string `json:"id"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Processor string `json:"processor,omitempty"`
	Reason    string `json:"reason"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}
