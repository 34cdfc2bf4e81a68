// Package config provides configuration helpers for go-sense commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the sense pipeline.
const (
	DefaultWebPort    = "8090"
	DefaultCameraID   = 0
	DefaultModelPath  = "models/yolov8n.onnx"
	DefaultSpeechLang = "en-US"
)

// Env returns the value of an environment variable or a default.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns an integer environment variable or a default.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// WebPort returns the dashboard port from SENSE_WEB_PORT.
func WebPort() string {
	return Env("SENSE_WEB_PORT", DefaultWebPort)
}

// CameraID returns the capture device index from SENSE_CAMERA_ID.
func CameraID() int {
	return EnvInt("SENSE_CAMERA_ID", DefaultCameraID)
}

// ModelPath returns the detector model path from SENSE_MODEL_PATH.
func ModelPath() string {
	return Env("SENSE_MODEL_PATH", DefaultModelPath)
}

// SpeechLang returns the announcement language tag from SENSE_SPEECH_LANG.
func SpeechLang() string {
	return Env("SENSE_SPEECH_LANG", DefaultSpeechLang)
}

// RecognizerURL returns the streaming recognition endpoint from SENSE_STT_URL.
// Empty means transcription stays disabled (protocol absence).
func RecognizerURL() string {
	return os.Getenv("SENSE_STT_URL")
}

// RecognizerKey returns the recognition API key from SENSE_STT_KEY.
func RecognizerKey() string {
	return os.Getenv("SENSE_STT_KEY")
}

// SynthesizerURL returns the remote TTS endpoint from SENSE_TTS_URL.
func SynthesizerURL() string {
	return os.Getenv("SENSE_TTS_URL")
}

// SynthesizerKey returns the TTS API key from SENSE_TTS_KEY.
func SynthesizerKey() string {
	return os.Getenv("SENSE_TTS_KEY")
}
