package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/model"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
	"github.com/urdof7/penalty-kick-prediction/testdata"
)

// run executes the root command with args and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seededDB returns a database path holding the labeled test corpus, with
// the data directory redirected into a temp dir.
func seededDB(t *testing.T) (string, []int64) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PENALTYKICK_DATADIR", dir)

	path := filepath.Join(dir, "kicks.db")
	st, err := store.New(path)
	require.NoError(t, err)
	ids, err := testdata.SeedStore(context.Background(), st)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	return path, ids
}

func TestDatasetFitPredict(t *testing.T) {
	db, ids := seededDB(t)
	dir := filepath.Dir(db)
	bundlePath := filepath.Join(dir, "out", "kicks.msgpack")
	artifactPath := filepath.Join(dir, "models", "kick.yaml")

	_, err := run(t, "dataset", "--db", db, "--output", bundlePath)
	require.NoError(t, err)

	bundle, err := dataset.LoadBundle(bundlePath)
	require.NoError(t, err)
	assert.Equal(t, features.SequenceV1.Version, bundle.SchemaVersion)
	assert.Equal(t, [3]int{6, 21, 48}, bundle.Summary().Shape)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, bundle.Y)

	_, err = run(t, "fit", bundlePath, "--artifact", artifactPath, "--no-model")
	require.NoError(t, err)

	artifact, err := model.LoadArtifact(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, features.QuadrantLabels, artifact.Labels)
	assert.Empty(t, artifact.ModelPath)
	assert.Len(t, artifact.Scaler.Mean, 48)

	out, err := run(t, "predict", strconv.FormatInt(ids[2], 10), "--db", db, "--artifact", artifactPath)
	require.NoError(t, err)

	var prediction inference.Prediction
	require.NoError(t, json.Unmarshal([]byte(out), &prediction))
	assert.Equal(t, ids[2], prediction.KickID)
	assert.Len(t, prediction.Probabilities, 6)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, prediction.Directions)
	assert.Equal(t, "seq-v1", prediction.SchemaVersion)
}

func TestDataset_SchemaV2(t *testing.T) {
	db, _ := seededDB(t)
	bundlePath := filepath.Join(filepath.Dir(db), "v2.msgpack")

	_, err := run(t, "dataset", "--db", db, "--schema", "seq-v2", "-o", bundlePath)
	require.NoError(t, err)

	bundle, err := dataset.LoadBundle(bundlePath)
	require.NoError(t, err)
	assert.Equal(t, "seq-v2", bundle.SchemaVersion)
	assert.Equal(t, [3]int{6, 21, 52}, bundle.Summary().Shape)
}

func TestDataset_FrameMode(t *testing.T) {
	db, _ := seededDB(t)
	csvPath := filepath.Join(filepath.Dir(db), "frames.csv")

	_, err := run(t, "dataset", "--db", db, "--mode", "frame", "--output", csvPath)
	require.NoError(t, err)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, "kick_id", records[0][0])
	assert.Equal(t, "kick_direction", records[0][len(records[0])-1])
	assert.Len(t, records[0], 50)
}

func TestDataset_Errors(t *testing.T) {
	db, _ := seededDB(t)
	out := filepath.Join(filepath.Dir(db), "x")

	_, err := run(t, "dataset", "--db", db, "--mode", "bogus", "--output", out)
	assert.ErrorContains(t, err, "unknown dataset mode")

	_, err = run(t, "dataset", "--db", db, "--schema", "seq-v9", "--output", out)
	assert.ErrorContains(t, err, "unknown feature schema")
}

func TestInspect(t *testing.T) {
	db, _ := seededDB(t)
	bundlePath := filepath.Join(filepath.Dir(db), "kicks.msgpack")
	_, err := run(t, "dataset", "--db", db, "--output", bundlePath)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "inspect", bundlePath, "--json")
		require.NoError(t, err)

		var summary dataset.Summary
		require.NoError(t, json.Unmarshal([]byte(out), &summary))
		assert.Equal(t, [3]int{6, 21, 48}, summary.Shape)
		assert.Len(t, summary.Labels, 6)
		assert.Equal(t, 6, summary.Report.Kept)
	})

	t.Run("text", func(t *testing.T) {
		out, err := run(t, "inspect", bundlePath)
		require.NoError(t, err)
		assert.Contains(t, out, "shape:    6 x 21 x 48")
		assert.Contains(t, out, "3 TR  1")
	})

	t.Run("missing bundle", func(t *testing.T) {
		_, err := run(t, "inspect", filepath.Join(t.TempDir(), "nope.msgpack"))
		assert.Error(t, err)
	})
}

func TestPredict_RowsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PENALTYKICK_DATADIR", dir)

	artifact, err := testdata.Artifact(features.SequenceV1)
	require.NoError(t, err)
	artifactPath := filepath.Join(dir, "kick.yaml")
	require.NoError(t, artifact.Save(artifactPath))

	data, err := json.Marshal(testdata.KickRows(42, 21, 0.01))
	require.NoError(t, err)
	rowsPath := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(rowsPath, data, 0o644))

	out, err := run(t, "predict", "--rows", rowsPath, "--artifact", artifactPath)
	require.NoError(t, err)

	var prediction inference.Prediction
	require.NoError(t, json.Unmarshal([]byte(out), &prediction))
	assert.Equal(t, int64(42), prediction.KickID)
	assert.InDeltaSlice(t, []float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}, prediction.Probabilities, 1e-9)
}

func TestPredict_Errors(t *testing.T) {
	db, _ := seededDB(t)
	dir := filepath.Dir(db)

	artifact, err := testdata.Artifact(features.SequenceV1)
	require.NoError(t, err)
	artifactPath := filepath.Join(dir, "kick.yaml")
	require.NoError(t, artifact.Save(artifactPath))

	emptyRows := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyRows, []byte("[]"), 0o644))

	t.Run("invalid kick id", func(t *testing.T) {
		_, err := run(t, "predict", "abc", "--db", db, "--artifact", artifactPath)
		assert.ErrorContains(t, err, "invalid kick id")
	})

	t.Run("unknown kick", func(t *testing.T) {
		_, err := run(t, "predict", "999", "--db", db, "--artifact", artifactPath)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("no pose data", func(t *testing.T) {
		_, err := run(t, "predict", "--rows", emptyRows, "--artifact", artifactPath)
		assert.ErrorIs(t, err, inference.ErrNoPoseData)
	})

	t.Run("missing artifact", func(t *testing.T) {
		_, err := run(t, "predict", "--rows", emptyRows, "--artifact", filepath.Join(dir, "none.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("args with rows", func(t *testing.T) {
		_, err := run(t, "predict", "1", "--rows", emptyRows)
		assert.Error(t, err)
	})
}

func TestRelativeTo(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", relativeTo(dir, ""))
	assert.Equal(t, "model.tflite", relativeTo(dir, "model.tflite"))
	assert.Equal(t, "model.tflite", relativeTo(dir, filepath.Join(dir, "model.tflite")))
	assert.Equal(t, filepath.Join("..", "m.tflite"), relativeTo(dir, filepath.Join(filepath.Dir(dir), "m.tflite")))
}

func TestFindWebDir(t *testing.T) {
	dataDir := t.TempDir()
	assert.Empty(t, findWebDir(dataDir))

	web := filepath.Join(dataDir, "web")
	require.NoError(t, os.Mkdir(web, 0o755))
	assert.Equal(t, web, findWebDir(dataDir))
}
