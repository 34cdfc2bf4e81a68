// Package detect provides object detection over camera frames.
package detect

import (
	"errors"
)

// Sentinel errors for detection backends.
var (
	// ErrModelNotFound is returned when the model file is missing.
	ErrModelNotFound = errors.New("detect: model file not found")

	// ErrDetectorClosed is returned when detecting after Close.
	ErrDetectorClosed = errors.New("detect: detector closed")
)

// Box is a bounding box in normalized image coordinates (0-1).
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection represents one detected object in a single frame.
type Detection struct {
	// Label is the human-readable class name (e.g., "person", "chair").
	Label string `json:"label"`

	// Confidence is the detection confidence (0-1).
	Confidence float64 `json:"confidence"`

	// Box is the bounding box in normalized coordinates.
	Box Box `json:"box"`
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds objects in a JPEG frame and returns them in
	// model output order.
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources.
	Close() error
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float32 // Minimum confidence (default 0.5)
	NMSThresh        float32 // Non-max suppression threshold
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for YOLOv8n.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Labels extracts the distinct class labels from a detection list,
// preserving detector output order. Repeated instances of the same
// class collapse to a single label.
func Labels(dets []Detection) []string {
	seen := make(map[string]struct{}, len(dets))
	var labels []string
	for _, d := range dets {
		if _, ok := seen[d.Label]; ok {
			continue
		}
		seen[d.Label] = struct{}{}
		labels = append(labels, d.Label)
	}
	return labels
}
