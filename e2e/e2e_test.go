package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/urdof7/penalty-kick-prediction/internal/app"
	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/metrics"
	"github.com/urdof7/penalty-kick-prediction/internal/model"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/server"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
	"github.com/urdof7/penalty-kick-prediction/testdata"
)

// TestE2E_LabelTrainServe labels six kicks through the API, builds a
// training bundle from the store, fits an artifact, loads it back and serves
// predictions with it.
func TestE2E_LabelTrainServe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	ctx := context.Background()
	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	frames := testdata.Frames(90)
	defer testdata.CloseFrames(frames)

	det := pose.NewMockDetector()
	application := app.New(app.Config{
		Store:     s,
		Extractor: testdata.Extractor(frames),
		Detector:  det,
		Metrics:   m,
		UploadDir: filepath.Join(tmpDir, "uploads"),
		FrameDir:  filepath.Join(tmpDir, "frames"),
	})

	ts := httptest.NewServer(server.New(server.Config{App: application, Registry: registry}))
	defer ts.Close()

	jar, _ := cookiejar.New(nil)
	client := ts.Client()
	client.Jar = jar

	videoID := uploadVideo(t, client, ts.URL, "final.mp4")

	kickIDs := make(map[int]int64)
	t.Run("LabelKicks", func(t *testing.T) {
		for d := 1; d <= 6; d++ {
			body := fmt.Sprintf(`{"video_id": %d, "timestamp": %.1f, "kick_direction": %d}`, videoID, 0.5+0.3*float64(d), d)
			var kick struct {
				ID     int64 `json:"kick_id"`
				Frames int   `json:"frames"`
			}
			postJSON(t, client, ts.URL+"/api/kicks", body, http.StatusCreated, &kick)
			if kick.Frames != features.DefaultTargetLength {
				t.Fatalf("kick %d frames = %d, want %d", d, kick.Frames, features.DefaultTargetLength)
			}
			kickIDs[d] = kick.ID

			det.SetLandmarks(testdata.KickerSequence(kick.Frames, 0.005*float64(d))...)
			var detection app.DetectionResult
			postJSON(t, client, fmt.Sprintf("%s/api/kicks/%d/poses", ts.URL, kick.ID), "", http.StatusOK, &detection)
			if detection.Detected != kick.Frames {
				t.Fatalf("kick %d detected = %d, want %d", d, detection.Detected, kick.Frames)
			}
		}
	})

	t.Run("PredictWithoutModel", func(t *testing.T) {
		resp, err := client.Post(fmt.Sprintf("%s/api/kicks/%d/predict", ts.URL, kickIDs[1]), "application/json", nil)
		if err != nil {
			t.Fatalf("predict error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
		}
	})

	var bundle *dataset.Bundle
	t.Run("BuildDataset", func(t *testing.T) {
		rows, dirs, err := dataset.Load(ctx, dataset.StoreSource(s))
		if err != nil {
			t.Fatalf("dataset.Load() error = %v", err)
		}
		bundle, err = dataset.NewBuilder(features.SequenceV2, nil, m).Build(rows, dirs)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if got := bundle.Summary().Shape; got != [3]int{6, 21, 52} {
			t.Fatalf("shape = %v, want [6 21 52]", got)
		}
		if err := bundle.Save(filepath.Join(tmpDir, "kicks.msgpack")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	})
	if bundle == nil {
		t.FailNow()
	}

	artifactPath := filepath.Join(tmpDir, "models", "kick.yaml")
	t.Run("FitArtifact", func(t *testing.T) {
		loaded, err := dataset.LoadBundle(filepath.Join(tmpDir, "kicks.msgpack"))
		if err != nil {
			t.Fatalf("LoadBundle() error = %v", err)
		}
		artifact, err := model.Fit(loaded, features.QuadrantLabels, "")
		if err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		if err := artifact.Save(artifactPath); err != nil {
			t.Fatalf("artifact.Save() error = %v", err)
		}
	})

	t.Run("ServeArtifact", func(t *testing.T) {
		artifact, err := model.LoadArtifact(artifactPath)
		if err != nil {
			t.Fatalf("LoadArtifact() error = %v", err)
		}
		classifier, err := artifact.Open(1)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		predictor, err := inference.NewPredictor(artifact, classifier, m, nil)
		if err != nil {
			t.Fatalf("NewPredictor() error = %v", err)
		}
		defer predictor.Close()
		if err := application.SetPredictor(predictor); err != nil {
			t.Fatalf("SetPredictor() error = %v", err)
		}

		var pred inference.Prediction
		postJSON(t, client, fmt.Sprintf("%s/api/kicks/%d/predict", ts.URL, kickIDs[4]), "", http.StatusOK, &pred)
		if pred.SchemaVersion != "seq-v2" || len(pred.Probabilities) != 6 {
			t.Errorf("unexpected prediction %+v", pred)
		}
		sum := 0.0
		for _, p := range pred.Probabilities {
			sum += p
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("probabilities sum to %v", sum)
		}
	})

	t.Run("ServingMatchesTraining", func(t *testing.T) {
		rows, err := s.Poses().RowsForKick(ctx, kickIDs[3])
		if err != nil {
			t.Fatalf("RowsForKick() error = %v", err)
		}
		served, err := application.Predictor().Features(rows)
		if err != nil {
			t.Fatalf("Features() error = %v", err)
		}
		r, c := served.Dims()
		if r != 21 || c != 52 {
			t.Fatalf("served dims = %dx%d, want 21x52", r, c)
		}
		if err := features.CheckColumns(bundle.Columns, application.Predictor().Schema().Names()); err != nil {
			t.Errorf("column parity: %v", err)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		for _, want := range []string{
			`penaltykick_predictions_total{status="success"} 1`,
			`penaltykick_kicks_built_total 6`,
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})
}

func uploadVideo(t *testing.T, client *http.Client, url, name string) int64 {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("video", name)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	fw.Write([]byte("fake video bytes"))
	mw.Close()

	resp, err := client.Post(url+"/api/videos", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/videos error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var video struct {
		ID int64 `json:"video_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		t.Fatalf("decode video: %v", err)
	}
	return video.ID
}

func postJSON(t *testing.T, client *http.Client, url, body string, wantStatus int, out any) {
	t.Helper()

	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s status = %d, want %d: %s", url, resp.StatusCode, wantStatus, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}
