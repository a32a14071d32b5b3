// Package tflite adapts a TensorFlow Lite interpreter to the engine
// boundary. It is the default on-device backend.
package tflite

import (
	"context"
	"image"
	"sync"

	"github.com/mattn/go-tflite"

	"github.com/menta2k/image-classifier/pkg/engine"
	"github.com/menta2k/image-classifier/pkg/status"
)

// Float input normalization used by common mobilenet-style models.
const (
	inputMean = 127.5
	inputStd  = 127.5
)

// Executor drives a TFLite interpreter built from in-memory model bytes.
// The C interpreter reuses its tensor buffers, so Infer is serialized with
// a mutex; the executor is safe for concurrent calls.
type Executor struct {
	mu      sync.Mutex
	model   *tflite.Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter
	width   int
	height  int
}

// New builds an executor from resolved model bytes. It satisfies
// engine.Factory.
func New(modelBytes []byte, numThreads int) (engine.Executor, error) {
	model := tflite.NewModel(modelBytes)
	if model == nil {
		return nil, status.InvalidArgumentf("failed to build TFLite model from %d bytes", len(modelBytes))
	}
	opts := tflite.NewInterpreterOptions()
	if numThreads > 0 {
		opts.SetNumThread(numThreads)
	}
	interp := tflite.NewInterpreter(model, opts)
	if interp == nil {
		opts.Delete()
		model.Delete()
		return nil, status.Internalf("failed to build TFLite interpreter")
	}
	if s := interp.AllocateTensors(); s != tflite.OK {
		interp.Delete()
		opts.Delete()
		model.Delete()
		return nil, status.Internalf("failed to allocate TFLite tensors")
	}

	input := interp.GetInputTensor(0)
	if input.NumDims() != 4 {
		interp.Delete()
		opts.Delete()
		model.Delete()
		return nil, status.InvalidArgumentf("unexpected input tensor rank %d, want 4 (NHWC)", input.NumDims())
	}

	return &Executor{
		model:   model,
		options: opts,
		interp:  interp,
		// NHWC layout.
		height: input.Dim(1),
		width:  input.Dim(2),
	}, nil
}

// InputSize reports the width and height of the model input tensor.
func (e *Executor) InputSize() (int, int) {
	return e.width, e.height
}

// Infer fills the input tensor from the preprocessed pixels, invokes the
// interpreter, and returns the dense scores of every output head. Engine
// failures are propagated unchanged; there is no retry.
func (e *Executor) Infer(ctx context.Context, pixels *image.NRGBA) ([]engine.HeadScores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.fillInput(pixels); err != nil {
		return nil, err
	}
	if s := e.interp.Invoke(); s != tflite.OK {
		return nil, status.Internalf("TFLite invoke failed")
	}

	count := e.interp.GetOutputTensorCount()
	heads := make([]engine.HeadScores, 0, count)
	for i := 0; i < count; i++ {
		scores, err := readScores(e.interp.GetOutputTensor(i))
		if err != nil {
			return nil, err
		}
		heads = append(heads, engine.HeadScores{HeadIndex: i, Scores: scores})
	}
	return heads, nil
}

func (e *Executor) fillInput(pixels *image.NRGBA) error {
	input := e.interp.GetInputTensor(0)
	bounds := pixels.Bounds()
	if bounds.Dx() != e.width || bounds.Dy() != e.height {
		return status.InvalidArgumentf("input image is %dx%d, model expects %dx%d",
			bounds.Dx(), bounds.Dy(), e.width, e.height)
	}

	switch input.Type() {
	case tflite.UInt8:
		buf := input.UInt8s()
		i := 0
		for y := 0; y < e.height; y++ {
			for x := 0; x < e.width; x++ {
				off := pixels.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				buf[i+0] = pixels.Pix[off+0]
				buf[i+1] = pixels.Pix[off+1]
				buf[i+2] = pixels.Pix[off+2]
				i += 3
			}
		}
	case tflite.Float32:
		buf := input.Float32s()
		i := 0
		for y := 0; y < e.height; y++ {
			for x := 0; x < e.width; x++ {
				off := pixels.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				buf[i+0] = (float32(pixels.Pix[off+0]) - inputMean) / inputStd
				buf[i+1] = (float32(pixels.Pix[off+1]) - inputMean) / inputStd
				buf[i+2] = (float32(pixels.Pix[off+2]) - inputMean) / inputStd
				i += 3
			}
		}
	default:
		return status.InvalidArgumentf("unsupported input tensor type %v", input.Type())
	}
	return nil
}

// readScores copies one output head into native-precision scores,
// dequantizing uint8 outputs via the tensor quantization parameters.
func readScores(out *tflite.Tensor) ([]float64, error) {
	switch out.Type() {
	case tflite.Float32:
		raw := out.Float32s()
		scores := make([]float64, len(raw))
		for i, v := range raw {
			scores[i] = float64(v)
		}
		return scores, nil
	case tflite.UInt8:
		raw := out.UInt8s()
		q := out.QuantizationParams()
		scores := make([]float64, len(raw))
		for i, v := range raw {
			if q.Scale != 0 {
				scores[i] = q.Scale * float64(int(v)-q.ZeroPoint)
			} else {
				scores[i] = float64(v) / 255.0
			}
		}
		return scores, nil
	default:
		return nil, status.InvalidArgumentf("unsupported output tensor type %v", out.Type())
	}
}

// Close releases the interpreter, options, and model.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interp != nil {
		e.interp.Delete()
		e.interp = nil
	}
	if e.options != nil {
		e.options.Delete()
		e.options = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	return nil
}
