package presenter

import (
	"fmt"
	"io"
	"sync"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/preview"
)

// Sink is everything the orchestration core may render.
type Sink interface {
	SetStatus(text string, isError bool)
	ShowPreview(image *classifier.Image)
	RenderResult(label string, scores []classifier.Score)
	HideResult()
	SetSubmitEnabled(enabled bool)
}

// Previewer acquires and releases preview handles.
type Previewer interface {
	Swap(image *classifier.Image) (*preview.Handle, error)
}

// Status is the single status line.
type Status struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// PreviewView describes the preview area.
type PreviewView struct {
	Visible  bool   `json:"visible"`
	Filename string `json:"filename,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// ResultView is the result panel. Scores are already formatted lines.
type ResultView struct {
	Visible bool     `json:"visible"`
	Label   string   `json:"label,omitempty"`
	Scores  []string `json:"scores,omitempty"`
}

// View is a point-in-time copy of everything on screen.
type View struct {
	Status        Status      `json:"status"`
	Preview       PreviewView `json:"preview"`
	Result        ResultView  `json:"result"`
	SubmitEnabled bool        `json:"submit_enabled"`
}

// Screen holds the rendered view and optionally mirrors every change to out.
type Screen struct {
	previews Previewer
	out      io.Writer

	mu   sync.Mutex
	view View
}

var _ Sink = (*Screen)(nil)

// NewScreen returns an empty screen with submission disabled. out may be nil.
func NewScreen(previews Previewer, out io.Writer) *Screen {
	return &Screen{previews: previews, out: out}
}

func (s *Screen) SetStatus(text string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Status = Status{Text: text, IsError: isError}
	if isError {
		s.printf("status[error]: %s\n", text)
	} else {
		s.printf("status: %s\n", text)
	}
}

// ShowPreview replaces the preview with image, or clears it for nil.
// An image that cannot be previewed leaves the area empty.
func (s *Screen) ShowPreview(image *classifier.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.Preview = PreviewView{}
	handle, err := s.previews.Swap(image)
	if err != nil || handle == nil {
		s.printf("preview: cleared\n")
		return
	}
	s.view.Preview = PreviewView{
		Visible:  true,
		Filename: handle.Filename,
		Width:    handle.Width,
		Height:   handle.Height,
	}
	s.printf("preview: %s (%dx%d)\n", handle.Filename, handle.Width, handle.Height)
}

// RenderResult rebuilds the score list from scratch and shows the panel.
func (s *Screen) RenderResult(label string, scores []classifier.Score) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, 0, len(scores))
	for _, score := range scores {
		lines = append(lines, FormatScore(score))
	}
	s.view.Result = ResultView{Visible: true, Label: label, Scores: lines}

	s.printf("label: %s\n", label)
	for _, line := range lines {
		s.printf("  %s\n", line)
	}
}

func (s *Screen) HideResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Result = ResultView{}
}

func (s *Screen) SetSubmitEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SubmitEnabled = enabled
}

// Snapshot returns a copy safe to serialize while the screen keeps changing.
func (s *Screen) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.Result.Scores = append([]string(nil), s.view.Result.Scores...)
	return v
}

func (s *Screen) printf(format string, args ...interface{}) {
	if s.out == nil {
		return
	}
	fmt.Fprintf(s.out, format, args...)
}

// FormatScore renders a probability as a percentage with two decimals,
// e.g. "Healthy: 93.21%".
func FormatScore(score classifier.Score) string {
	return fmt.Sprintf("%s: %.2f%%", score.Class, score.Probability*100)
}
