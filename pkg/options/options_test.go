package options

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/image-classifier/pkg/status"
)

func writeTempModel(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.tflite")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write temp model: %v", err)
	}
	return path
}

func TestResolveSucceedsWithFileName(t *testing.T) {
	path := writeTempModel(t, []byte{0x01, 0x02, 0x03})

	cfg, err := Resolve(BaseOptions{ModelFile: ExternalFile{FileName: path}}, ClassificationOptions{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(cfg.ModelBytes) != 3 {
		t.Errorf("Expected 3 model bytes, got %d", len(cfg.ModelBytes))
	}
}

func TestResolveSucceedsWithFileContent(t *testing.T) {
	cfg, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileContent: []byte{0xde, 0xad}}},
		ClassificationOptions{},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(cfg.ModelBytes) != 2 {
		t.Errorf("Expected 2 model bytes, got %d", len(cfg.ModelBytes))
	}
}

func TestResolveFailsWithNoSource(t *testing.T) {
	_, err := Resolve(BaseOptions{}, ClassificationOptions{})
	if err == nil {
		t.Fatal("Expected error with no model source")
	}

	if !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}

	want := "Expected exactly one of `base_options.model_file` or `model_file_with_metadata` to be provided, found 0"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Expected message containing %q, got %q", want, err.Error())
	}
}

func TestResolveFailsWithBothSources(t *testing.T) {
	path := writeTempModel(t, []byte{0x01})

	_, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileName: path, FileContent: []byte{0x01}}},
		ClassificationOptions{},
	)
	if err == nil {
		t.Fatal("Expected error with both model sources")
	}

	if !strings.Contains(err.Error(), "found 2") {
		t.Errorf("Expected message containing 'found 2', got %q", err.Error())
	}
}

func TestResolveFailsWithMissingModelFile(t *testing.T) {
	_, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileName: filepath.Join(t.TempDir(), "no_such_model.tflite")}},
		ClassificationOptions{},
	)
	if err == nil {
		t.Fatal("Expected error for missing model file")
	}

	if !errors.Is(err, status.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResolveRejectsZeroMaxResults(t *testing.T) {
	_, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileContent: []byte{0x01}}},
		ClassificationOptions{MaxResults: Int(0)},
	)
	if err == nil {
		t.Fatal("Expected error for max_results = 0")
	}

	if !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}

	want := "Invalid `max_results` option: value must be != 0"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Expected message containing %q, got %q", want, err.Error())
	}
}

func TestResolveNegativeMaxResultsMeansNoCap(t *testing.T) {
	cfg, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileContent: []byte{0x01}}},
		ClassificationOptions{MaxResults: Int(-1)},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.MaxResults > 0 {
		t.Errorf("Expected no result cap, got %d", cfg.MaxResults)
	}
}

func TestResolveUnsetMaxResultsMeansNoCap(t *testing.T) {
	cfg, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileContent: []byte{0x01}}},
		ClassificationOptions{},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.MaxResults > 0 {
		t.Errorf("Expected no result cap, got %d", cfg.MaxResults)
	}
	if cfg.ScoreThreshold != nil {
		t.Errorf("Expected no score threshold, got %v", *cfg.ScoreThreshold)
	}
}

func TestResolveRejectsCombinedAllowlistAndDenylist(t *testing.T) {
	_, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileContent: []byte{0x01}}},
		ClassificationOptions{
			ClassNameAllowlist: []string{"foo"},
			ClassNameDenylist:  []string{"bar"},
		},
	)
	if err == nil {
		t.Fatal("Expected error for combined allowlist and denylist")
	}

	want := "allowlist and denylist are mutually exclusive options"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Expected message containing %q, got %q", want, err.Error())
	}
}

func TestResolveReportsModelSourceFailureFirst(t *testing.T) {
	// Both the model source and max_results are invalid; the source
	// failure must win.
	_, err := Resolve(BaseOptions{}, ClassificationOptions{MaxResults: Int(0)})
	if err == nil {
		t.Fatal("Expected error")
	}

	if !strings.Contains(err.Error(), "found 0") {
		t.Errorf("Expected the model source failure to be reported first, got %q", err.Error())
	}
}

func TestResolveCopiesOptions(t *testing.T) {
	allow := []string{"cheeseburger"}
	th := 0.5

	cfg, err := Resolve(
		BaseOptions{ModelFile: ExternalFile{FileContent: []byte{0x01}}},
		ClassificationOptions{ScoreThreshold: &th, ClassNameAllowlist: allow},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	allow[0] = "mutated"
	th = 0.9

	if cfg.Allowlist[0] != "cheeseburger" {
		t.Errorf("Config allowlist aliases caller slice: %v", cfg.Allowlist)
	}
	if *cfg.ScoreThreshold != 0.5 {
		t.Errorf("Config threshold aliases caller value: %v", *cfg.ScoreThreshold)
	}
}
