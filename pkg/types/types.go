// Package types holds the data model shared across the classification
// pipeline and its JSON interchange projection.
package types

import "encoding/json"

// BoundingBox is a pixel-space rectangle used to crop the input image
// before inference. Coordinates are in source-image pixels; all fields
// must be non-negative.
type BoundingBox struct {
	OriginX int `json:"originX,omitempty"`
	OriginY int `json:"originY,omitempty"`
	Width   int `json:"width,omitempty"`
	Height  int `json:"height,omitempty"`
}

// Category is a single ranked class from one classification head. Score is
// carried at the model's native scale; no renormalization is applied.
// ClassName is empty when the label map has no entry for the index.
type Category struct {
	Index     int     `json:"index,omitempty"`
	Score     float64 `json:"score,omitempty"`
	ClassName string  `json:"className,omitempty"`
}

// Classifications holds the ranked categories produced by one head.
// Classes is empty, never absent, when every class was filtered out.
type Classifications struct {
	HeadIndex int        `json:"headIndex,omitempty"`
	Classes   []Category `json:"classes,omitempty"`
}

// ClassificationResult is the full output of one classification call, one
// Classifications entry per head in head-index order. Results are freshly
// constructed per call and owned by the caller.
type ClassificationResult struct {
	Classifications []Classifications `json:"classifications,omitempty"`
}

// JSON renders the result in the interchange projection. Fields at their
// default value are omitted (a headIndex of 0 is elided); decoders must
// tolerate the asymmetry.
func (r ClassificationResult) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// ResultFromJSON decodes the interchange projection produced by JSON.
// Omitted fields decode to their defaults.
func ResultFromJSON(data []byte) (ClassificationResult, error) {
	var r ClassificationResult
	if err := json.Unmarshal(data, &r); err != nil {
		return ClassificationResult{}, err
	}
	return r, nil
}
