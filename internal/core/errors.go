// Package core defines sentinel errors.
package core

import "errors"

var (
	// Recording file errors
	ErrNotFound         = errors.New("cueloop: recording not found")
	ErrInvalidFormat    = errors.New("cueloop: not a cueloop recording")
	ErrCorruptRecording = errors.New("cueloop: corrupt recording")
	ErrEmptyRecording   = errors.New("cueloop: recording contains no frames")

	// Transport errors
	ErrTransport = errors.New("cueloop: transport send failed")

	// Session errors
	ErrRecorderActive  = errors.New("cueloop: recording already in progress")
	ErrRecorderIdle    = errors.New("cueloop: no recording in progress")
	ErrPlaybackActive  = errors.New("cueloop: playback in progress")
	ErrRateOutOfRange  = errors.New("cueloop: playback rate out of range")
	ErrDaemonNotActive = errors.New("cueloop: daemon not running")
)
