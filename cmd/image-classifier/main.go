package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	imageclassifier "github.com/menta2k/image-classifier"
	"github.com/menta2k/image-classifier/internal/config"
	"github.com/menta2k/image-classifier/internal/utils"
	"github.com/menta2k/image-classifier/pkg/engine"
	"github.com/menta2k/image-classifier/pkg/imageio"
	"github.com/menta2k/image-classifier/pkg/labelmap"
	"github.com/menta2k/image-classifier/pkg/llamacpp"
	"github.com/menta2k/image-classifier/pkg/ollama"
	"github.com/menta2k/image-classifier/pkg/options"
	"github.com/menta2k/image-classifier/pkg/preprocess"
	"github.com/menta2k/image-classifier/pkg/types"
)

func main() {
	var in, modelPath, labelsPath, cfgPath string
	var backend, url, remoteModel string
	var maxResults, threads int
	var threshold float64
	var allow, deny, box string
	var dumpCrop string
	var dumpQuality int

	flag.StringVar(&in, "in", "", "input image path (jpg/png/webp)")
	flag.StringVar(&modelPath, "model", "", "TFLite model path")
	flag.StringVar(&labelsPath, "labels", "", "label file path (one class name per line)")
	flag.StringVar(&cfgPath, "config", "", "JSON config file (flags override it)")

	flag.IntVar(&maxResults, "max", 5, "max categories per head (negative = no cap)")
	flag.Float64Var(&threshold, "threshold", math.NaN(), "minimum score to keep a category (unset = no threshold)")
	flag.StringVar(&allow, "allow", "", "comma-separated class name allowlist")
	flag.StringVar(&deny, "deny", "", "comma-separated class name denylist")
	flag.StringVar(&box, "box", "", "region of interest as x,y,w,h in pixels")
	flag.IntVar(&threads, "threads", 4, "TFLite interpreter threads")

	flag.StringVar(&backend, "backend", "tflite", "backend to use: tflite, ollama or llamacpp")
	flag.StringVar(&url, "url", "", "server URL for remote backends (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&remoteModel, "remote-model", "openbmb/minicpm-v4.5", "model name for remote backends")

	flag.StringVar(&dumpCrop, "dumpcrop", "", "write the cropped region to this path (jpg/png/webp by extension)")
	flag.IntVar(&dumpQuality, "dumpquality", 90, "JPEG/WebP quality for -dumpcrop (1-100)")

	flag.Parse()

	// Config file supplies defaults; explicit flags win.
	if cfgPath != "" {
		cfg, err := config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
		if modelPath == "" {
			modelPath = cfg.Model.Path
		}
		if labelsPath == "" {
			labelsPath = cfg.Model.LabelsPath
		}
		if !flagSet("max") {
			maxResults = cfg.Classification.MaxResults
		}
		if !flagSet("threshold") && cfg.Classification.ScoreThreshold != nil {
			threshold = *cfg.Classification.ScoreThreshold
		}
		if !flagSet("threads") {
			threads = cfg.Model.NumThreads
		}
		if allow == "" {
			allow = strings.Join(cfg.Classification.Allowlist, ",")
		}
		if deny == "" {
			deny = strings.Join(cfg.Classification.Denylist, ",")
		}
		if !flagSet("backend") {
			backend = cfg.Backend.Name
		}
		if url == "" {
			url = cfg.Backend.ServerURL
		}
		if !flagSet("remote-model") && cfg.Backend.Model != "" {
			remoteModel = cfg.Backend.Model
		}
	}

	if in == "" || modelPath == "" {
		log.Fatalf("usage: %s -in input.jpg -model model.tflite [-labels labels.txt] [-max 3] [-threshold 0.5] [-allow a,b | -deny c] [-box x,y,w,h] [-backend tflite|ollama|llamacpp]",
			filepath.Base(os.Args[0]))
	}
	if !utils.FileExists(modelPath) {
		log.Fatalf("model file not found: %s", modelPath)
	}
	if !utils.IsImageFile(in) {
		log.Fatalf("unsupported input file: %s", in)
	}

	var labels *labelmap.Map
	if labelsPath != "" {
		if !utils.FileExists(labelsPath) {
			log.Fatalf("label file not found: %s", labelsPath)
		}
		var err error
		labels, err = labelmap.FromFile(labelsPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	clsOpts := options.ClassificationOptions{
		MaxResults: options.Int(maxResults),
	}
	if !math.IsNaN(threshold) {
		clsOpts.ScoreThreshold = options.Float(threshold)
	}
	if allow != "" {
		clsOpts.ClassNameAllowlist = splitList(allow)
	}
	if deny != "" {
		clsOpts.ClassNameDenylist = splitList(deny)
	}

	// Remote backends score the label set instead of running the model
	// bytes; they still require a resolvable model source.
	var factory engine.Factory
	switch backend {
	case "tflite":
		// nil factory selects the default TFLite backend
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		if labels == nil {
			log.Fatal("-labels is required for the ollama backend")
		}
		factory = func([]byte, int) (engine.Executor, error) {
			return ollama.New(url, remoteModel, labels.Names())
		}
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		if labels == nil {
			log.Fatal("-labels is required for the llamacpp backend")
		}
		factory = func([]byte, int) (engine.Executor, error) {
			return llamacpp.New(url, remoteModel, labels.Names())
		}
	default:
		log.Fatalf("Unknown backend: %s (use 'tflite', 'ollama' or 'llamacpp')", backend)
	}

	classifier, err := imageclassifier.New(imageclassifier.Options{
		Base: options.BaseOptions{
			ModelFile:  options.ExternalFile{FileName: modelPath},
			NumThreads: threads,
		},
		Classification: clsOpts,
		Labels:         labels,
		Engine:         factory,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer classifier.Close()

	img, err := imageio.Load(in)
	if err != nil {
		log.Fatal(err)
	}

	var region *types.BoundingBox
	if box != "" {
		region, err = parseBox(box)
		if err != nil {
			log.Fatal(err)
		}
	}

	if dumpCrop != "" && region != nil {
		cropped, err := preprocess.Crop(img, *region)
		if err != nil {
			log.Fatal(err)
		}
		if err := utils.EnsureDir(filepath.Dir(dumpCrop)); err != nil {
			log.Fatal(err)
		}
		format := utils.GetFileExtension(dumpCrop)
		if err := imageio.Save(cropped, dumpCrop, format, dumpQuality, false); err != nil {
			log.Printf("crop dump failed: %v", err)
		} else {
			log.Printf("wrote %s", dumpCrop)
		}
	}

	result, err := classifier.ClassifyRegion(context.Background(), img, region)
	if err != nil {
		log.Fatal(err)
	}

	for _, head := range result.Classifications {
		log.Printf("head=%d categories=%d", head.HeadIndex, len(head.Classes))
		for _, class := range head.Classes {
			log.Printf("  %4d %-24s %.4f", class.Index, class.ClassName, class.Score)
		}
	}

	js, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(js))
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBox(s string) (*types.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid -box %q: want x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid -box %q: %w", s, err)
		}
		vals[i] = v
	}
	return &types.BoundingBox{OriginX: vals[0], OriginY: vals[1], Width: vals[2], Height: vals[3]}, nil
}
