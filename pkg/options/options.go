// Package options holds the caller-facing configuration for creating a
// classifier and validates it eagerly, before any inference cost is paid.
package options

import (
	"fmt"
	"os"

	"github.com/menta2k/image-classifier/pkg/status"
)

// ExternalFile designates model bytes either by file-system path or as raw
// in-memory content. Exactly one of the two must be set.
type ExternalFile struct {
	FileName    string
	FileContent []byte
}

func (f ExternalFile) sourceCount() int {
	n := 0
	if f.FileName != "" {
		n++
	}
	if len(f.FileContent) > 0 {
		n++
	}
	return n
}

// Resolve returns the model bytes designated by the external file.
func (f ExternalFile) Resolve() ([]byte, error) {
	if n := f.sourceCount(); n != 1 {
		return nil, status.InvalidArgumentf(
			"Expected exactly one of `base_options.model_file` or `model_file_with_metadata` to be provided, found %d", n)
	}
	if len(f.FileContent) > 0 {
		return f.FileContent, nil
	}
	data, err := os.ReadFile(f.FileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.NotFoundf("model file %q does not exist", f.FileName)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return data, nil
}

// BaseOptions designates the model to load plus pass-through engine hints.
type BaseOptions struct {
	ModelFile ExternalFile
	// NumThreads is handed through to the engine unchanged; 0 means the
	// engine default.
	NumThreads int
}

// ClassificationOptions tunes result postprocessing. Nil pointer fields
// mean "unset": no result cap, no score threshold. A negative MaxResults
// also means "no cap" (negative values carry no other meaning). Allowlist
// and denylist are mutually exclusive; matching is case-sensitive on exact
// class names.
type ClassificationOptions struct {
	MaxResults         *int
	ScoreThreshold     *float64
	ClassNameAllowlist []string
	ClassNameDenylist  []string
}

// Config is the immutable resolved configuration a classifier owns for its
// lifetime.
type Config struct {
	ModelBytes []byte
	NumThreads int
	// MaxResults caps the ranked categories per head; values <= 0 mean no cap.
	MaxResults int
	// ScoreThreshold, when non-nil, drops categories scoring below it.
	ScoreThreshold *float64
	Allowlist      []string
	Denylist       []string
}

// Resolve validates the options and produces the resolved configuration.
// Rules apply in order and the first failing rule is reported: the model
// source must resolve, MaxResults must not be explicitly zero, and the
// allowlist and denylist cannot both be non-empty.
func Resolve(base BaseOptions, cls ClassificationOptions) (*Config, error) {
	model, err := base.ModelFile.Resolve()
	if err != nil {
		return nil, err
	}
	if cls.MaxResults != nil && *cls.MaxResults == 0 {
		return nil, status.InvalidArgumentf("Invalid `max_results` option: value must be != 0")
	}
	if len(cls.ClassNameAllowlist) > 0 && len(cls.ClassNameDenylist) > 0 {
		return nil, status.InvalidArgumentf("allowlist and denylist are mutually exclusive options")
	}

	cfg := &Config{
		ModelBytes: model,
		NumThreads: base.NumThreads,
		Allowlist:  append([]string(nil), cls.ClassNameAllowlist...),
		Denylist:   append([]string(nil), cls.ClassNameDenylist...),
	}
	if cls.MaxResults != nil && *cls.MaxResults > 0 {
		cfg.MaxResults = *cls.MaxResults
	}
	if cls.ScoreThreshold != nil {
		th := *cls.ScoreThreshold
		cfg.ScoreThreshold = &th
	}
	return cfg, nil
}

// Int returns a pointer to v, for use in option literals.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for use in option literals.
func Float(v float64) *float64 { return &v }
