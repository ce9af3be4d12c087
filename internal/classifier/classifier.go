// Package classifier describes the remote image classification service as the
// console sees it: a health probe and a single-image prediction call.
package classifier

import (
	"context"
	"fmt"
)

const (
	HealthPath  = "/"
	PredictPath = "/predict-image"
	// FileField is the multipart field the service reads the image from.
	FileField = "file"
)

// Image is the user's current selection: raw bytes plus the original filename.
type Image struct {
	Filename string
	Data     []byte
}

// Health is a well-formed answer from the health endpoint.
type Health struct {
	OK          bool
	ModelLoaded bool
	Service     string
}

// Score is one class probability, 0..1.
type Score struct {
	Class       string
	Probability float64
}

// Prediction is a successful classification. Scores keep the order the
// service sent them in and need not sum to exactly 1.
type Prediction struct {
	Label  string
	Scores []Score
}

// ResponseError means the service answered but not with a usable success
// body: a non-2xx status, a malformed body, or ok != true.
type ResponseError struct {
	StatusCode int
	Message    string // server-reported error text, may be empty
	Hint       string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Client exposes the calls the console makes against a backend. Transport
// failures are returned as-is; service-level failures as *ResponseError.
type Client interface {
	Health(ctx context.Context, baseURL string) (*Health, error)
	Predict(ctx context.Context, baseURL string, image *Image) (*Prediction, error)
}
