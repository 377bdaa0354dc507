// Package models defines data models and configuration structures for crash video recording.
package models

import (
	"math"

	"github.com/darkace1998/crash-video-recorder/constants"
)

// RecordingConfig describes one circular-buffer recording session.
type RecordingConfig struct {
	BufferSeconds float64 `json:"buffer_seconds" yaml:"buffer_seconds"` // seconds of footage kept
	TargetFPS     int     `json:"target_fps"     yaml:"target_fps"`
	Width         int     `json:"width"          yaml:"width"`
	Height        int     `json:"height"         yaml:"height"`
	RecordUI      bool    `json:"record_ui"      yaml:"record_ui"`
	EnableAudio   bool    `json:"enable_audio"   yaml:"enable_audio"`
	QualityPreset int     `json:"quality_preset" yaml:"quality_preset"` // 0-100
}

// DefaultRecordingConfig returns the settings used when nothing is configured.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{
		BufferSeconds: constants.DefaultBufferSeconds,
		TargetFPS:     constants.DefaultTargetFPS,
		Width:         constants.DefaultWidth,
		Height:        constants.DefaultHeight,
		RecordUI:      true,
		EnableAudio:   false,
		QualityPreset: constants.DefaultQualityPreset,
	}
}

// MobilePreset trades length and quality for a small footprint on handheld devices.
func MobilePreset() RecordingConfig {
	return RecordingConfig{
		BufferSeconds: 15,
		TargetFPS:     20,
		Width:         1280,
		Height:        720,
		RecordUI:      true,
		EnableAudio:   false,
		QualityPreset: 30,
	}
}

// DesktopPreset is the standard 1080p profile for PC and console.
func DesktopPreset() RecordingConfig {
	return RecordingConfig{
		BufferSeconds: 30,
		TargetFPS:     30,
		Width:         1920,
		Height:        1080,
		RecordUI:      true,
		EnableAudio:   false,
		QualityPreset: 50,
	}
}

// Clamp returns a copy with every field forced into its valid range.
// Out-of-range values are never rejected.
func (c RecordingConfig) Clamp() RecordingConfig {
	out := c
	if math.IsNaN(out.BufferSeconds) {
		out.BufferSeconds = constants.DefaultBufferSeconds
	}
	out.BufferSeconds = clampFloat(out.BufferSeconds, constants.MinBufferSeconds, constants.MaxBufferSeconds)
	out.TargetFPS = clampInt(out.TargetFPS, constants.MinTargetFPS, constants.MaxTargetFPS)
	out.QualityPreset = clampInt(out.QualityPreset, constants.MinQualityPreset, constants.MaxQualityPreset)
	if out.Width <= 0 {
		out.Width = constants.DefaultWidth
	}
	if out.Height <= 0 {
		out.Height = constants.DefaultHeight
	}
	return out
}

// Bitrate maps the quality preset linearly onto 2-10 Mbps.
func (c RecordingConfig) Bitrate() int {
	q := clampInt(c.QualityPreset, constants.MinQualityPreset, constants.MaxQualityPreset)
	span := constants.MaxVideoBitrate - constants.MinVideoBitrate
	return constants.MinVideoBitrate + q*span/constants.MaxQualityPreset
}

// EncoderSettings carries the encoder parameters handed to the recorder.
type EncoderSettings struct {
	VideoBitrate int `json:"video_bitrate"`
}

// RecordRequest is everything a recorder needs to begin a circular-buffer capture.
type RecordRequest struct {
	Path          string
	FPS           int
	Width         int
	Height        int
	Encoder       EncoderSettings
	RecordUI      bool
	EnableAudio   bool
	BufferSeconds float64
}

// NewRecordRequest builds the recorder request for a clamped config.
func NewRecordRequest(path string, cfg RecordingConfig) RecordRequest {
	return RecordRequest{
		Path:          path,
		FPS:           cfg.TargetFPS,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Encoder:       EncoderSettings{VideoBitrate: cfg.Bitrate()},
		RecordUI:      cfg.RecordUI,
		EnableAudio:   cfg.EnableAudio,
		BufferSeconds: cfg.BufferSeconds,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
