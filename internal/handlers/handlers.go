package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/presenter"
	"github.com/example/ai-disease/internal/preview"
	"github.com/example/ai-disease/internal/usecase"
)

// MaxUploadSize bounds a selected image.
const MaxUploadSize = 10 << 20

// PreviewSource exposes the live preview handle.
type PreviewSource interface {
	Current() *preview.Handle
}

// Console adapts HTTP requests to the orchestration core. It owns the
// current file selection.
type Console struct {
	session    *usecase.Session
	controller *usecase.PredictionController
	screen     *presenter.Screen
	previews   PreviewSource
	logger     *zap.Logger
	maxUpload  int64

	mu        sync.Mutex
	selection *classifier.Image
}

// NewConsole builds the adapter. maxUpload <= 0 falls back to MaxUploadSize.
func NewConsole(session *usecase.Session, controller *usecase.PredictionController, screen *presenter.Screen, previews PreviewSource, logger *zap.Logger, maxUpload int64) *Console {
	if maxUpload <= 0 {
		maxUpload = MaxUploadSize
	}
	return &Console{
		session:    session,
		controller: controller,
		screen:     screen,
		previews:   previews,
		logger:     logger.Named("console"),
		maxUpload:  maxUpload,
	}
}

type stateResponse struct {
	View      presenter.View `json:"view"`
	Ready     bool           `json:"ready"`
	Outcome   string         `json:"outcome"`
	BaseURL   string         `json:"base_url"`
	InFlight  bool           `json:"in_flight"`
	Selection string         `json:"selection,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type submitResponse struct {
	stateResponse
	SubmissionID string     `json:"submission_id,omitempty"`
	Label        string     `json:"label,omitempty"`
	Error        *errorBody `json:"error,omitempty"`
}

// RegisterRoutes wires the console handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, console *Console) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/state", console.getState)
	api.POST("/selection", console.selectFile)
	api.DELETE("/selection", console.clearSelection)
	api.GET("/preview", console.getPreview)
	api.POST("/submit", console.submit)
	api.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, console.controller.GetMetricsSummary())
	})
}

func (h *Console) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.state())
}

func (h *Console) selectFile(c *gin.Context) {
	if c.Request.ContentLength > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, err := c.FormFile(classifier.FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	image := &classifier.Image{Filename: file.Filename, Data: data}
	h.mu.Lock()
	h.selection = image
	h.mu.Unlock()

	h.screen.ShowPreview(image)
	h.logger.Info("file selected", zap.String("filename", file.Filename), zap.Int("bytes", len(data)))
	c.JSON(http.StatusOK, h.state())
}

func (h *Console) clearSelection(c *gin.Context) {
	h.mu.Lock()
	h.selection = nil
	h.mu.Unlock()

	h.screen.ShowPreview(nil)
	c.JSON(http.StatusOK, h.state())
}

func (h *Console) getPreview(c *gin.Context) {
	handle := h.previews.Current()
	if handle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.File(handle.Path)
}

func (h *Console) submit(c *gin.Context) {
	h.mu.Lock()
	image := h.selection
	h.mu.Unlock()

	// A disconnecting client does not cancel an in-flight prediction.
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := h.controller.Submit(ctx, image, h.session.State())

	resp := submitResponse{stateResponse: h.state()}
	if err != nil {
		kind := usecase.KindOf(err)
		resp.Error = &errorBody{Kind: kind.String(), Message: err.Error()}
		c.JSON(statusForKind(kind), resp)
		return
	}

	resp.SubmissionID = outcome.SubmissionID
	resp.Label = outcome.Prediction.Label
	c.JSON(http.StatusOK, resp)
}

func (h *Console) state() stateResponse {
	h.mu.Lock()
	selection := ""
	if h.selection != nil {
		selection = h.selection.Filename
	}
	h.mu.Unlock()

	st := h.session.State()
	return stateResponse{
		View:      h.screen.Snapshot(),
		Ready:     st.Ready,
		Outcome:   string(h.session.Outcome()),
		BaseURL:   st.BaseURL,
		InFlight:  h.controller.InFlight(),
		Selection: selection,
	}
}

func statusForKind(kind usecase.Kind) int {
	switch kind {
	case usecase.KindSubmissionInProgress:
		return http.StatusConflict
	case usecase.KindNoFileSelected, usecase.KindUnconfigured, usecase.KindBackendNotReady:
		return http.StatusUnprocessableEntity
	case usecase.KindNetworkError, usecase.KindServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
