package api

import "time"

type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Bytes      int       `json:"bytes"`
	Service    string    `json:"service"`
}

type TextRequest struct {
	Text string `json:"text"`
	// Replacement is a single character; "*" when empty.
	Replacement string `json:"replacement,omitempty"`
}

type TextResponse struct {
	Text string `json:"text"`
}

type BatchRequest struct {
	Texts []string `json:"texts"`
}

type BatchResponse struct {
	Results [][]string `json:"results"`
}

type WordsRequest struct {
	Words []string `json:"words"`
}

type WordsResponse struct {
	Words []string `json:"words"`
}

// ValidateResponse reports Valid for text free of vocabulary terms. Word is
// the term found otherwise.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Word  string `json:"word,omitempty"`
}

type NoiseRequest struct {
	Pattern string `json:"pattern"`
}
