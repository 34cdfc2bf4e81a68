// Package camera provides JPEG frame sources for the detection loop.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Sentinel errors for frame capture.
var (
	// ErrCameraClosed is returned when reading from a closed camera.
	ErrCameraClosed = errors.New("camera: closed")

	// ErrNoFrame is returned when the device produced no frame.
	ErrNoFrame = errors.New("camera: no frame available")
)

// Source produces JPEG frames for detection.
type Source interface {
	// Frame captures and returns the current frame as JPEG bytes.
	Frame() ([]byte, error)

	// Close releases the device.
	Close() error
}

// Config holds capture configuration.
type Config struct {
	// DeviceID is the video device index.
	DeviceID int `json:"device_id"`

	// Width and Height request a capture resolution. Zero keeps the
	// device default.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Quality is the JPEG encode quality, 1-100.
	Quality int `json:"quality"`
}

// DefaultConfig returns capture defaults suitable for detection: the
// model downscales to 640x640 anyway, so capturing larger only costs
// encode time.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    640,
		Height:   480,
		Quality:  85,
	}
}

// Validate checks the config values.
func (c Config) Validate() error {
	if c.DeviceID < 0 {
		return fmt.Errorf("camera: device id must not be negative, got %d", c.DeviceID)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("camera: quality must be 1-100, got %d", c.Quality)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("camera: resolution must not be negative")
	}
	return nil
}

// Webcam captures frames from a local video device.
type Webcam struct {
	quality int

	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenWebcam opens the configured video device.
func OpenWebcam(cfg Config) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", cfg.DeviceID, err)
	}

	if cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	return &Webcam{
		quality: cfg.Quality,
		cap:     cap,
		mat:     gocv.NewMat(),
	}, nil
}

// Frame grabs the current frame and encodes it as JPEG.
func (w *Webcam) Frame() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrCameraClosed
	}

	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.mat,
		[]int{gocv.IMWriteJpegQuality, w.quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.mat.Close()
	return w.cap.Close()
}

// Compile-time interface check.
var _ Source = (*Webcam)(nil)
