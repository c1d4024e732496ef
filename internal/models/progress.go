package models

// Navigation directions.
const (
	NavPrev = "prev"
	NavNext = "next"
	NavJump = "jump"
)

// ReadingProgress is derived from the current position; it is never stored.
type ReadingProgress struct {
	CurrentPage               int     `json:"currentPage"`
	TotalPages                int     `json:"totalPages"`
	Percentage                float64 `json:"percentage"`
	EstimatedRemainingMinutes float64 `json:"estimatedRemainingMinutes"`
}

// NavigateRequest is the API request body for page navigation.
type NavigateRequest struct {
	Direction string `json:"direction"`
	Target    int    `json:"target,omitempty"`
}
