package restclient

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/logging"
)

// Options tunes the HTTP transport. Zero timeouts mean no client deadline.
type Options struct {
	HealthTimeout  time.Duration
	RequestTimeout time.Duration
}

// Client talks to the classification backend over HTTP.
type Client struct {
	rest   *resty.Client
	opts   Options
	logger *zap.Logger
}

// New returns a classifier.Client backed by resty. Retries stay disabled.
func New(opts Options, logger *zap.Logger) *Client {
	rest := resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Client{rest: rest, opts: opts, logger: logger.Named("restclient")}
}

// Health issues GET {baseURL}/ and checks the ok/model_loaded fields.
func (c *Client) Health(ctx context.Context, baseURL string) (*classifier.Health, error) {
	ctx, cancel := withTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	resp, err := c.rest.R().
		SetContext(ctx).
		Get(baseURL + classifier.HealthPath)
	if err != nil {
		wrapped := logging.NewOperationError("restclient.health", "", err)
		c.logger.Warn("health request failed", zap.Error(wrapped), zap.String("base_url", baseURL))
		return nil, wrapped
	}
	return parseHealth(resp.StatusCode(), resp.Body())
}

// Predict posts the image as multipart field "file" to {baseURL}/predict-image.
func (c *Client) Predict(ctx context.Context, baseURL string, image *classifier.Image) (*classifier.Prediction, error) {
	ctx, cancel := withTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetFileReader(classifier.FileField, image.Filename, bytes.NewReader(image.Data)).
		Post(baseURL + classifier.PredictPath)
	if err != nil {
		wrapped := logging.NewOperationError("restclient.predict", "", err)
		c.logger.Warn("predict request failed", zap.Error(wrapped), zap.String("filename", image.Filename))
		return nil, wrapped
	}

	prediction, err := parsePrediction(resp.StatusCode(), resp.Body())
	if err != nil {
		var respErr *classifier.ResponseError
		if errors.As(err, &respErr) && respErr.Hint != "" {
			c.logger.Info("service returned a hint", zap.Int("status", respErr.StatusCode), zap.String("hint", respErr.Hint))
		}
		return nil, err
	}
	return prediction, nil
}

func parseHealth(status int, body []byte) (*classifier.Health, error) {
	if status < 200 || status > 299 || !gjson.ValidBytes(body) {
		return nil, &classifier.ResponseError{StatusCode: status}
	}
	doc := gjson.ParseBytes(body)
	ok := doc.Get("ok")
	loaded := doc.Get("model_loaded")
	if !isBool(ok) || !ok.Bool() || !isBool(loaded) {
		return nil, &classifier.ResponseError{StatusCode: status, Message: doc.Get("error").String()}
	}
	return &classifier.Health{
		OK:          true,
		ModelLoaded: loaded.Bool(),
		Service:     doc.Get("service").String(),
	}, nil
}

func parsePrediction(status int, body []byte) (*classifier.Prediction, error) {
	if !gjson.ValidBytes(body) {
		return nil, &classifier.ResponseError{StatusCode: status}
	}
	doc := gjson.ParseBytes(body)
	respErr := &classifier.ResponseError{
		StatusCode: status,
		Message:    doc.Get("error").String(),
		Hint:       doc.Get("hint").String(),
	}
	if status < 200 || status > 299 || doc.Get("ok").Type != gjson.True {
		return nil, respErr
	}

	label := doc.Get("label")
	scores := doc.Get("scores")
	if label.Type != gjson.String || !scores.IsObject() {
		return nil, respErr
	}

	prediction := &classifier.Prediction{Label: label.String()}
	malformed := false
	scores.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			malformed = true
			return false
		}
		prediction.Scores = append(prediction.Scores, classifier.Score{
			Class:       key.String(),
			Probability: value.Float(),
		})
		return true
	})
	if malformed {
		return nil, respErr
	}
	return prediction, nil
}

func isBool(r gjson.Result) bool {
	return r.Type == gjson.True || r.Type == gjson.False
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
