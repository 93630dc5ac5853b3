package cli

import (
	"encoding/json"
	"errors"
	"os"
)

// jsonOutput is set by --json.
var jsonOutput bool

// Response is the envelope every command prints in --json mode.
type Response struct {
	OK       bool        `json:"ok"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
	Warnings []Warning   `json:"warnings,omitempty"`
	Meta     *Meta       `json:"meta,omitempty"`
}

// ErrorInfo is a failed command's error with a stable code.
type ErrorInfo struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Warning is a non-fatal problem, optionally about one entity or type.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Meta carries counts and timings.
type Meta struct {
	Count       int   `json:"count,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
}

func isJSONOutput() bool {
	return jsonOutput
}

func writeResponse(resp Response) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func outputSuccess(data interface{}, meta *Meta) {
	writeResponse(Response{OK: true, Data: data, Meta: meta})
}

func outputSuccessWithWarnings(data interface{}, warnings []Warning, meta *Meta) {
	writeResponse(Response{OK: true, Data: data, Warnings: warnings, Meta: meta})
}

// handleErrorWithDetails reports a failure. In --json mode the envelope is
// printed and nil returned so cobra stays quiet; otherwise the message is
// returned for cobra to print.
func handleErrorWithDetails(code, message, suggestion string, details interface{}) error {
	if !jsonOutput {
		return errors.New(message)
	}
	writeResponse(Response{Error: &ErrorInfo{
		Code:       code,
		Message:    message,
		Details:    details,
		Suggestion: suggestion,
	}})
	return nil
}

func handleErrorMsg(code, message, suggestion string) error {
	return handleErrorWithDetails(code, message, suggestion, nil)
}

func handleError(code string, err error, suggestion string) error {
	if !jsonOutput {
		return err
	}
	return handleErrorWithDetails(code, err.Error(), suggestion, nil)
}
