// Package engine defines the boundary to the opaque model executor.
package engine

import (
	"context"
	"image"
)

// HeadScores is the raw output of one classification head: a dense score
// per class index covering the model's whole label space, at the model's
// native score scale.
type HeadScores struct {
	HeadIndex int
	Scores    []float64
}

// Executor runs inference on a preprocessed input image. Engine failures
// are fatal for the call and propagate unchanged; implementations must be
// safe for concurrent Infer calls or internally serialized.
type Executor interface {
	// InputSize reports the width and height the executor expects.
	InputSize() (width, height int)
	// Infer returns raw per-class scores for every classification head.
	Infer(ctx context.Context, pixels *image.NRGBA) ([]HeadScores, error)
	Close() error
}

// Factory builds an executor from resolved model bytes.
type Factory func(modelBytes []byte, numThreads int) (Executor, error)
