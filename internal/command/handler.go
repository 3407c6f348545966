// Package command implements the local control plane: a JSON-RPC channel
// over a Unix domain socket between the CLI and the daemon.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cueloop.dev/cueloop/internal/control"
	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/log"
	"cueloop.dev/cueloop/internal/recording"
)

// Command is one control plane request.
type Command struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     string          `json:"id"`
}

// Response is the reply to a Command.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo carries a failure to the CLI. Data holds method-specific
// context, e.g. the available recordings after a failed play.
type ErrorInfo struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes, JSON-RPC conventions.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Request/result parameter shapes shared by client and handler.
type (
	RecordStartParams struct {
		Name string `json:"name"`
	}
	RecordStartResult struct {
		Path string `json:"path"`
	}
	RecordStopResult struct {
		Path    string `json:"path"`
		Packets int    `json:"packets"`
	}
	PlayParams struct {
		Name string `json:"name"`
	}
	RateParams struct {
		FPS int `json:"fps"`
	}
	HighlightParams struct {
		Universe int `json:"universe"`
		Channel  int `json:"channel"`
		Times    int `json:"times"`
	}
	ToggleResult struct {
		Enabled bool `json:"enabled"`
	}
	ListResult struct {
		Recordings []recording.Info `json:"recordings"`
	}
)

// Handler dispatches control plane commands onto the controller.
type Handler struct {
	ctrl         *control.Controller
	shutdownFunc func()
	statsFunc    func() interface{}
	started      time.Time
}

// NewHandler creates a command handler.
func NewHandler(ctrl *control.Controller) *Handler {
	return &Handler{ctrl: ctrl, started: time.Now()}
}

// SetShutdownFunc sets the callback invoked by daemon_shutdown.
func (h *Handler) SetShutdownFunc(fn func()) {
	h.shutdownFunc = fn
}

// SetStatsFunc sets the provider behind daemon_stats.
func (h *Handler) SetStatsFunc(fn func() interface{}) {
	h.statsFunc = fn
}

// Handle processes a command and returns its response. Command failures come
// back as responses; the daemon itself never falls over on a bad request.
func (h *Handler) Handle(cmd Command) Response {
	log.GetLogger().WithFields(map[string]interface{}{
		"method": cmd.Method, "id": cmd.ID,
	}).Debug("handling command")

	switch cmd.Method {
	case "record_start":
		return h.handleRecordStart(cmd)
	case "record_stop":
		return h.handleRecordStop(cmd)
	case "play":
		return h.handlePlay(cmd)
	case "playback_stop":
		h.ctrl.StopPlayback()
		return okResponse(cmd.ID, "stopped")
	case "passthrough_toggle":
		return okResult(cmd.ID, ToggleResult{Enabled: h.ctrl.TogglePassthrough()})
	case "rate_set":
		return h.handleRateSet(cmd)
	case "blackout":
		h.ctrl.Blackout()
		return okResponse(cmd.ID, "blackout sent")
	case "highlight":
		return h.handleHighlight(cmd)
	case "list":
		return h.handleList(cmd)
	case "daemon_status":
		return okResult(cmd.ID, h.ctrl.Status())
	case "daemon_stats":
		if h.statsFunc == nil {
			return errResponse(cmd.ID, ErrCodeInternalError, "stats not available", nil)
		}
		return okResult(cmd.ID, h.statsFunc())
	case "daemon_shutdown":
		if h.shutdownFunc != nil {
			go h.shutdownFunc()
		}
		return okResponse(cmd.ID, "shutting down")
	default:
		return errResponse(cmd.ID, ErrCodeMethodNotFound, fmt.Sprintf("unknown method %q", cmd.Method), nil)
	}
}

func (h *Handler) handleRecordStart(cmd Command) Response {
	var params RecordStartParams
	if err := decodeParams(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, err.Error(), nil)
	}
	path, err := h.ctrl.StartRecording(params.Name)
	if err != nil {
		return errResponse(cmd.ID, ErrCodeInternalError, err.Error(), nil)
	}
	return okResult(cmd.ID, RecordStartResult{Path: path})
}

func (h *Handler) handleRecordStop(cmd Command) Response {
	path, packets, err := h.ctrl.StopRecording()
	if err != nil {
		return errResponse(cmd.ID, ErrCodeInternalError, err.Error(), nil)
	}
	return okResult(cmd.ID, RecordStopResult{Path: path, Packets: packets})
}

func (h *Handler) handlePlay(cmd Command) Response {
	var params PlayParams
	if err := decodeParams(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, err.Error(), nil)
	}
	if params.Name == "" {
		return errResponse(cmd.ID, ErrCodeInvalidParams, "recording name is required", nil)
	}
	if err := h.ctrl.Play(params.Name); err != nil {
		// A failed play leaves the daemon idle; tell the operator what is
		// actually available.
		var available []recording.Info
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidFormat) {
			available, _ = h.ctrl.List()
		}
		return errResponse(cmd.ID, ErrCodeInternalError, err.Error(), ListResult{Recordings: available})
	}
	return okResponse(cmd.ID, "playing")
}

func (h *Handler) handleRateSet(cmd Command) Response {
	var params RateParams
	if err := decodeParams(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, err.Error(), nil)
	}
	if err := h.ctrl.SetRate(params.FPS); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, err.Error(), nil)
	}
	return okResponse(cmd.ID, fmt.Sprintf("rate set to %d fps", params.FPS))
}

func (h *Handler) handleHighlight(cmd Command) Response {
	var params HighlightParams
	if err := decodeParams(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, err.Error(), nil)
	}
	if err := h.ctrl.Highlight(params.Universe, params.Channel, params.Times); err != nil {
		return errResponse(cmd.ID, ErrCodeInternalError, err.Error(), nil)
	}
	return okResponse(cmd.ID, "highlight done")
}

func (h *Handler) handleList(cmd Command) Response {
	infos, err := h.ctrl.List()
	if err != nil {
		return errResponse(cmd.ID, ErrCodeInternalError, err.Error(), nil)
	}
	return okResult(cmd.ID, ListResult{Recordings: infos})
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func okResponse(id, msg string) Response {
	return Response{ID: id, Result: msg}
}

func okResult(id string, result interface{}) Response {
	return Response{ID: id, Result: result}
}

func errResponse(id string, code int, msg string, data interface{}) Response {
	return Response{ID: id, Error: &ErrorInfo{Code: code, Message: msg, Data: data}}
}
