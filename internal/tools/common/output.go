package common

import (
	"encoding/json"
	"io"
	"os"
	"time"
)

// CIResult is the machine-readable outcome a tool prints in --ci mode.
type CIResult struct {
	OK         bool     `json:"ok"`
	Tool       string   `json:"tool"`
	Title      string   `json:"title"`
	DurationMS int64    `json:"duration_ms"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func NewCIResult(tool, title string, elapsed time.Duration, details []string, err error) CIResult {
	res := CIResult{
		OK:         err == nil,
		Tool:       tool,
		Title:      title,
		DurationMS: elapsed.Milliseconds(),
		Details:    details,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func WriteCIResult(w io.Writer, res CIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func PrintCIResult(res CIResult) {
	_ = WriteCIResult(os.Stdout, res)
}
