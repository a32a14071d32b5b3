// Package imageclassifier classifies images against a fixed label set
// using a pretrained on-device model, returning ranked categories with
// confidence scores.
//
// The pipeline is: option validation, optional region-of-interest
// cropping, inference through an opaque model executor, and result
// postprocessing (filtering, thresholding, ranking, truncation). All
// option failures are detected at creation time, before any inference
// cost is paid.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		imageclassifier "github.com/menta2k/image-classifier"
//		"github.com/menta2k/image-classifier/pkg/labelmap"
//		"github.com/menta2k/image-classifier/pkg/options"
//	)
//
//	func main() {
//		labels, err := labelmap.FromFile("labels.txt")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		classifier, err := imageclassifier.New(imageclassifier.Options{
//			Base: options.BaseOptions{
//				ModelFile: options.ExternalFile{FileName: "mobilenet_v2_1.0_224.tflite"},
//			},
//			Classification: options.ClassificationOptions{
//				MaxResults: options.Int(3),
//			},
//			Labels: labels,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer classifier.Close()
//
//		result, err := classifier.ClassifyFile(context.Background(), "burger.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		for _, head := range result.Classifications {
//			for _, class := range head.Classes {
//				fmt.Printf("%d %s %.4f\n", class.Index, class.ClassName, class.Score)
//			}
//		}
//	}
//
// The package consists of five main components:
//
// 1. Options (pkg/options): model source resolution and eager validation
// 2. Preprocess (pkg/preprocess): optional bounding-box crop and resizing
// 3. Engine (pkg/engine, pkg/tflite, pkg/ollama, pkg/llamacpp): the opaque
// executor boundary and its backends
// 4. Postprocess (pkg/postprocess): filtering, thresholding, ranking,
// truncation
// 5. Types (pkg/types): the result data model and its JSON projection
package imageclassifier

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/image-classifier/pkg/engine"
	"github.com/menta2k/image-classifier/pkg/imageio"
	"github.com/menta2k/image-classifier/pkg/labelmap"
	"github.com/menta2k/image-classifier/pkg/options"
	"github.com/menta2k/image-classifier/pkg/postprocess"
	"github.com/menta2k/image-classifier/pkg/preprocess"
	"github.com/menta2k/image-classifier/pkg/tflite"
	"github.com/menta2k/image-classifier/pkg/types"
)

// Version of the image classifier library
const Version = "1.0.0"

// Options configures a classifier. Engine may be left nil to use the
// default TensorFlow Lite backend built from the resolved model bytes.
// Labels is the injected read-only class-index-to-name mapping; a nil map
// resolves no names.
type Options struct {
	Base           options.BaseOptions
	Classification options.ClassificationOptions
	Labels         *labelmap.Map
	Engine         engine.Factory
}

// Classifier is an immutable configuration plus a loaded model. Once
// constructed it may serve concurrent classification calls: per-call
// preprocessing and postprocessing are call-local, and the executor
// serializes or tolerates concurrent inference.
type Classifier struct {
	cfg    *options.Config
	exec   engine.Executor
	labels *labelmap.Map
}

// New validates the options eagerly and builds the classifier. The model
// source must resolve and the classification options must be consistent;
// the first failing rule is reported and nothing is constructed.
func New(opts Options) (*Classifier, error) {
	cfg, err := options.Resolve(opts.Base, opts.Classification)
	if err != nil {
		return nil, err
	}

	factory := opts.Engine
	if factory == nil {
		factory = tflite.New
	}
	exec, err := factory(cfg.ModelBytes, cfg.NumThreads)
	if err != nil {
		return nil, err
	}

	return &Classifier{cfg: cfg, exec: exec, labels: opts.Labels}, nil
}

// Classify runs inference on the whole image and returns the ranked,
// filtered result. The result is freshly constructed and owned by the
// caller; nothing is cached across calls.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (types.ClassificationResult, error) {
	return c.ClassifyRegion(ctx, img, nil)
}

// ClassifyRegion runs inference on the region of interest. A nil box uses
// the whole image; a box that does not fit the image fails before any
// inference work. No partial results are returned on failure.
func (c *Classifier) ClassifyRegion(ctx context.Context, img image.Image, box *types.BoundingBox) (types.ClassificationResult, error) {
	w, h := c.exec.InputSize()
	input, err := preprocess.Run(img, box, w, h)
	if err != nil {
		return types.ClassificationResult{}, err
	}

	heads, err := c.exec.Infer(ctx, input)
	if err != nil {
		return types.ClassificationResult{}, err
	}

	return postprocess.Run(heads, c.labels.Lookup, c.cfg), nil
}

// ClassifyFile loads an image from disk and classifies it.
func (c *Classifier) ClassifyFile(ctx context.Context, path string) (types.ClassificationResult, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return types.ClassificationResult{}, fmt.Errorf("failed to load image: %w", err)
	}
	return c.Classify(ctx, img)
}

// Labels returns the label map the classifier owns; it may be nil.
func (c *Classifier) Labels() *labelmap.Map {
	return c.labels
}

// Close releases the underlying engine resources.
func (c *Classifier) Close() error {
	return c.exec.Close()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
