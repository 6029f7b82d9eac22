package categories

import "fmt"

// Request is the body sent to the categories endpoint.
type Request struct {
	Content  string   `json:"content"`
	Language string   `json:"language,omitempty"`
	Options  *Options `json:"options,omitempty"`
}

// Options tune the service's categorization. A nil *Options lets the
// service apply its defaults.
type Options struct {
	SingleLabel    *bool    `json:"singleLabel,omitempty"`
	ScoreThreshold *float64 `json:"scoreThreshold,omitempty"`
}

// Category is a single ranked label.
type Category struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// Response lists categories best first. Entries may be nil when the
// service sends JSON nulls.
type Response struct {
	Categories []*Category `json:"categories"`
}

// Top returns the first category, or nil when there is none.
func (r *Response) Top() *Category {
	if r == nil || len(r.Categories) == 0 {
		return nil
	}
	return r.Categories[0]
}

// Error codes used when the failure did not come from the service body.
const (
	CodeTransport       = "transportError"
	CodeInvalidResponse = "invalidResponse"
)

// APIError describes any failed call to the service. Message carries the
// service's own error text when one was returned.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("categories: %s (status %d, code %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("categories: %s (code %s)", e.Message, e.Code)
}

func (e *APIError) Unwrap() error { return e.Err }
