package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/security"
	"github.com/banshee-data/paddy.report/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

var testLabels = diagnosis.MustLabelSet("brown_spot", "healthy", "leaf_blast")

func TestFolderLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"healthy", "healthy"},
		{"Leaf Blast", "leaf_blast"},
		{"brown-spot", "brown_spot"},
		{"  Healthy ", "healthy"},
		{"ＬＥＡＦ_blast", "leaf_blast"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FolderLabel(tt.in))
		})
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	packed, err := msgpack.Marshal([]float64{0.1, 0.2, 3.0})
	require.NoError(t, err)

	testutil.WriteFile(t, dir, "Brown Spot/a.json", []byte(`[2.0, 0.5, 0.1]`))
	testutil.WriteFile(t, dir, "healthy/b.json", []byte(`{"raw_output": [0.1, 1.5, 0.2]}`))
	testutil.WriteFile(t, dir, "Leaf-Blast/c.msgpack", packed)
	testutil.WriteFile(t, dir, "healthy/notes.txt", []byte("ignored"))
	testutil.WriteFile(t, dir, "unknown_disease/d.json", []byte(`[1, 2, 3]`))
	testutil.WriteFile(t, dir, "README.txt", []byte("ignored"))

	got, err := LoadDir(dir, testLabels)
	require.NoError(t, err)

	want := []calibration.Sample{
		{RawOutput: diagnosis.RawOutput{2.0, 0.5, 0.1}, TrueLabel: 0},
		{RawOutput: diagnosis.RawOutput{0.1, 0.2, 3.0}, TrueLabel: 2},
		{RawOutput: diagnosis.RawOutput{0.1, 1.5, 0.2}, TrueLabel: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadDir mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDir_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "healthy"), 0o755))
		_, err := LoadDir(dir, testLabels)
		assert.ErrorIs(t, err, ErrNoSamples)
	})

	t.Run("only unknown folders", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.WriteFile(t, dir, "sheath_rot/a.json", []byte(`[1, 2, 3]`))
		_, err := LoadDir(dir, testLabels)
		assert.ErrorIs(t, err, ErrNoSamples)
	})

	t.Run("wrong shape", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.WriteFile(t, dir, "healthy/a.json", []byte(`[1, 2]`))
		_, err := LoadDir(dir, testLabels)
		assert.ErrorIs(t, err, diagnosis.ErrShapeMismatch)
	})

	t.Run("bad json", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.WriteFile(t, dir, "healthy/a.json", []byte(`{"raw_output": `))
		_, err := LoadDir(dir, testLabels)
		assert.Error(t, err)
	})

	t.Run("missing raw_output", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.WriteFile(t, dir, "healthy/a.json", []byte(`{"logits": [1, 2, 3]}`))
		_, err := LoadDir(dir, testLabels)
		assert.ErrorContains(t, err, "missing raw_output")
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		_, err := LoadDir(filepath.Join(t.TempDir(), "nope"), testLabels)
		assert.Error(t, err)
	})
}

func TestLoadDir_RejectsSymlinkEscape(t *testing.T) {
	t.Parallel()

	outside := testutil.WriteFile(t, t.TempDir(), "secret.json", []byte(`[1, 2, 3]`))
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "healthy"), 0o755))
	if err := os.Symlink(outside, filepath.Join(dir, "healthy", "link.json")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := LoadDir(dir, testLabels)
	assert.ErrorIs(t, err, security.ErrUnsafePath)
}

func TestCreateLayout(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "samples")
	require.NoError(t, CreateLayout(dir, testLabels))

	for _, label := range testLabels.Labels() {
		info, err := os.Stat(filepath.Join(dir, label))
		require.NoError(t, err)
		assert.True(t, info.IsDir(), label)
	}
	readme, err := os.ReadFile(filepath.Join(dir, "README.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "exactly 3 values")
	assert.Contains(t, string(readme), "leaf_blast")

	// Running twice keeps existing samples.
	testutil.WriteFile(t, dir, "healthy/a.json", []byte(`[0, 1, 0]`))
	require.NoError(t, CreateLayout(dir, testLabels))
	samples, err := LoadDir(dir, testLabels)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestLoad_Dispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "folders/healthy/a.json", []byte(`[0, 1, 0]`))
	jsonl := testutil.WriteFile(t, dir, "set.jsonl", []byte(`{"label": "healthy", "raw_output": [0, 1, 0]}`+"\n"))
	packed := filepath.Join(dir, "set.msgpack")
	require.NoError(t, SaveBatch(packed, testLabels, []calibration.Sample{{RawOutput: diagnosis.RawOutput{0, 1, 0}, TrueLabel: 1}}))
	other := testutil.WriteFile(t, dir, "set.csv", []byte("x"))

	for _, path := range []string{filepath.Join(dir, "folders"), jsonl, packed} {
		samples, err := Load(path, testLabels)
		require.NoError(t, err, path)
		require.Len(t, samples, 1, path)
		assert.Equal(t, 1, samples[0].TrueLabel, path)
	}

	_, err := Load(other, testLabels)
	assert.ErrorContains(t, err, "unsupported sample source")

	_, err = Load(filepath.Join(dir, "missing.jsonl"), testLabels)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
