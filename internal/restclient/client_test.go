package restclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/logging"
)

func newTestClient() *Client {
	return New(Options{HealthTimeout: time.Second, RequestTimeout: time.Second}, zap.NewNop())
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestHealthReportsModelLoaded(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"ok":true,"service":"ai-disease-backend","model_loaded":true}`))
	defer srv.Close()

	health, err := newTestClient().Health(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !health.OK || !health.ModelLoaded {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.Service != "ai-disease-backend" {
		t.Fatalf("unexpected service: %s", health.Service)
	}
}

func TestHealthRejectsDeviations(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"non-2xx":             {http.StatusInternalServerError, `{"ok":true,"model_loaded":true}`},
		"not json":            {http.StatusOK, `<html>hello</html>`},
		"ok missing":          {http.StatusOK, `{"model_loaded":true}`},
		"ok false":            {http.StatusOK, `{"ok":false,"model_loaded":true}`},
		"ok as string":        {http.StatusOK, `{"ok":"true","model_loaded":true}`},
		"model_loaded absent": {http.StatusOK, `{"ok":true}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(tc.status, tc.body))
			defer srv.Close()

			_, err := newTestClient().Health(context.Background(), srv.URL)
			var respErr *classifier.ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected ResponseError, got %T (%v)", err, err)
			}
			if respErr.StatusCode != tc.status {
				t.Fatalf("unexpected status: %d", respErr.StatusCode)
			}
		})
	}
}

func TestHealthTransportFailure(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
	url := srv.URL
	srv.Close()

	_, err := newTestClient().Health(context.Background(), url)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	var respErr *classifier.ResponseError
	if errors.As(err, &respErr) {
		t.Fatal("transport failure must not look like a service response")
	}
}

func TestPredictSendsMultipartFileAndKeepsScoreOrder(t *testing.T) {
	var gotName string
	var gotData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != classifier.PredictPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile(classifier.FileField)
		if err != nil {
			t.Errorf("missing file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotData, _ = io.ReadAll(file)
		jsonHandler(http.StatusOK, `{"ok":true,"label":"Rust","scores":{"Rust":0.7,"Healthy":0.2,"Blight":0.1}}`)(w, r)
	}))
	defer srv.Close()

	image := &classifier.Image{Filename: "leaf.jpg", Data: []byte("jpeg-bytes")}
	prediction, err := newTestClient().Predict(context.Background(), srv.URL, image)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if gotName != "leaf.jpg" || string(gotData) != "jpeg-bytes" {
		t.Fatalf("unexpected upload: %s %q", gotName, gotData)
	}
	if prediction.Label != "Rust" {
		t.Fatalf("unexpected label: %s", prediction.Label)
	}
	want := []string{"Rust", "Healthy", "Blight"}
	if len(prediction.Scores) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(prediction.Scores))
	}
	for i, class := range want {
		if prediction.Scores[i].Class != class {
			t.Fatalf("score %d: expected %s, got %s", i, class, prediction.Scores[i].Class)
		}
	}
}

func TestPredictServiceErrors(t *testing.T) {
	cases := map[string]struct {
		status      int
		body        string
		wantMessage string
		wantHint    string
	}{
		"server error text": {http.StatusInternalServerError, `{"ok":false,"error":"model error"}`, "model error", ""},
		"model not loaded": {
			http.StatusServiceUnavailable,
			`{"ok":false,"error":"Model not loaded.","hint":"Train a model first."}`,
			"Model not loaded.", "Train a model first.",
		},
		"empty body":       {http.StatusBadGateway, ``, "HTTP 502", ""},
		"ok false on 200":  {http.StatusOK, `{"ok":false}`, "HTTP 200", ""},
		"missing scores":   {http.StatusOK, `{"ok":true,"label":"Rust"}`, "HTTP 200", ""},
		"non-number score": {http.StatusOK, `{"ok":true,"label":"Rust","scores":{"Rust":"high"}}`, "HTTP 200", ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(tc.status, tc.body))
			defer srv.Close()

			_, err := newTestClient().Predict(context.Background(), srv.URL, &classifier.Image{Filename: "a.png", Data: []byte("x")})
			var respErr *classifier.ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected ResponseError, got %T (%v)", err, err)
			}
			if respErr.Error() != tc.wantMessage {
				t.Fatalf("expected message %q, got %q", tc.wantMessage, respErr.Error())
			}
			if respErr.Hint != tc.wantHint {
				t.Fatalf("expected hint %q, got %q", tc.wantHint, respErr.Hint)
			}
		})
	}
}

func TestPredictHonoursRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := New(Options{RequestTimeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := client.Predict(context.Background(), srv.URL, &classifier.Image{Filename: "a.png", Data: []byte("x")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
