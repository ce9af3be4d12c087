package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/logging"
	"github.com/example/ai-disease/internal/presenter"
)

const (
	msgNoFile          = "Please choose an image file."
	msgBackendNotReady = "Backend is not ready. Deploy or load the model on the server, then restart the console."
	msgInProgress      = "A prediction is already in progress."
	msgPredicting      = "Predicting..."
	msgDone            = "Done."
)

// Outcome describes a successful submission.
type Outcome struct {
	SubmissionID string
	Sequence     uint64
	Prediction   *classifier.Prediction
}

// PredictionController runs one submission at a time against the backend
// and renders every transition.
type PredictionController struct {
	client classifier.Client
	sink   presenter.Sink
	logger *zap.Logger

	busy    atomic.Bool
	seq     atomic.Uint64
	metrics *submissionMetrics
}

// NewPredictionController constructs a controller.
func NewPredictionController(client classifier.Client, sink presenter.Sink, logger *zap.Logger) *PredictionController {
	return &PredictionController{
		client:  client,
		sink:    sink,
		logger:  logger.Named("prediction_controller"),
		metrics: newSubmissionMetrics(),
	}
}

// Submit validates the attempt against state, then posts image and renders
// the result or the error. A call made while another is pending fails with
// KindSubmissionInProgress and leaves the screen alone.
func (c *PredictionController) Submit(ctx context.Context, image *classifier.Image, state State) (*Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, &Error{Kind: KindSubmissionInProgress, Message: msgInProgress}
	}

	if err := checkPreconditions(image, state); err != nil {
		c.busy.Store(false)
		c.sink.SetStatus(err.Message, true)
		c.metrics.record(err, 0, false)
		c.logger.Info("submission rejected", zap.String("kind", err.Kind.String()))
		return nil, err
	}

	c.sink.SetSubmitEnabled(false)
	defer func() {
		c.busy.Store(false)
		c.sink.SetSubmitEnabled(true)
	}()

	outcome := &Outcome{SubmissionID: uuid.NewString(), Sequence: c.seq.Add(1)}
	opLogger := logging.WithOperation(c.logger, "usecase.submit", outcome.SubmissionID).
		With(zap.Uint64("sequence", outcome.Sequence), zap.String("filename", image.Filename))

	// The previous result is only cleared once the attempt can actually run.
	c.sink.ShowPreview(image)
	c.sink.SetStatus(msgPredicting, false)
	c.sink.HideResult()

	started := time.Now()
	prediction, err := c.client.Predict(ctx, state.BaseURL, image)
	latency := time.Since(started)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.submit", outcome.SubmissionID, err)
		var respErr *classifier.ResponseError
		if errors.As(err, &respErr) {
			opLogger.Warn("service rejected prediction", zap.Int("status", respErr.StatusCode), zap.String("error", respErr.Message))
			return nil, c.fail(KindServiceError, "Error: "+respErr.Error(), wrapped, latency)
		}
		opLogger.Error("prediction request failed", zap.Error(wrapped))
		return nil, c.fail(KindNetworkError, "Error: "+logging.Cause(err), wrapped, latency)
	}

	c.sink.RenderResult(prediction.Label, prediction.Scores)
	c.sink.SetStatus(msgDone, false)
	c.metrics.record(nil, latency, true)
	opLogger.Info("prediction rendered",
		zap.String("label", prediction.Label),
		zap.Int("classes", len(prediction.Scores)),
		zap.Duration("latency", latency),
	)

	outcome.Prediction = prediction
	return outcome, nil
}

// InFlight reports whether a submission is pending.
func (c *PredictionController) InFlight() bool {
	return c.busy.Load()
}

func (c *PredictionController) fail(kind Kind, message string, cause error, latency time.Duration) *Error {
	err := &Error{Kind: kind, Message: message, Err: cause}
	c.sink.SetStatus(message, true)
	c.metrics.record(err, latency, true)
	return err
}

// checkPreconditions applies the gate in order: file, configuration, readiness.
func checkPreconditions(image *classifier.Image, state State) *Error {
	switch {
	case image == nil || len(image.Data) == 0:
		return &Error{Kind: KindNoFileSelected, Message: msgNoFile}
	case state.BaseURL == "":
		return &Error{Kind: KindUnconfigured, Message: msgUnconfigured}
	case !state.Ready:
		return &Error{Kind: KindBackendNotReady, Message: msgBackendNotReady}
	}
	return nil
}
