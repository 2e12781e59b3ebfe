package models

import "time"

// Image represents one uploaded image for the current session
type Image struct {
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	Data        []byte `json:"-"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Preview     []byte `json:"-"`
}

// AnalysisRecord is the stored model response for one image
type AnalysisRecord struct {
	Filename    string    `json:"filename"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Text        string    `json:"text"`
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatTurn is one follow-up exchange
type ChatTurn struct {
	Image     string    `json:"image"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemError reports a problem with a single item of a batch
type ItemError struct {
	Filename string `json:"filename"`
	Err      string `json:"error"`
}
