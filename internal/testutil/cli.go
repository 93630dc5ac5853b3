package testutil

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// erdepBinary is built once per test process.
var erdepBinary struct {
	sync.Mutex
	path string
}

// CLIResult is the decoded --json envelope of one erdep run.
type CLIResult struct {
	OK       bool                   `json:"ok"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Error    *CLIError              `json:"error,omitempty"`
	Warnings []CLIWarning           `json:"warnings,omitempty"`
	Meta     *CLIMeta               `json:"meta,omitempty"`

	RawJSON  string `json:"-"`
	Stderr   string `json:"-"`
	ExitCode int    `json:"-"`
}

// CLIError is the error part of the envelope.
type CLIError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// CLIWarning is one non-fatal warning.
type CLIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// CLIMeta is the meta part of the envelope.
type CLIMeta struct {
	Count int `json:"count,omitempty"`
}

// BuildCLI compiles ./cmd/erdep into a temp directory and returns the
// binary path. The binary is reused by later calls.
func BuildCLI(t *testing.T) string {
	t.Helper()

	erdepBinary.Lock()
	defer erdepBinary.Unlock()

	if erdepBinary.path != "" {
		if _, err := os.Stat(erdepBinary.path); err == nil {
			return erdepBinary.path
		}
	}

	root, err := moduleRoot()
	if err != nil {
		t.Fatalf("locate module root: %v", err)
	}
	dir, err := os.MkdirTemp("", "erdep-cli-*")
	if err != nil {
		t.Fatalf("create build dir: %v", err)
	}
	name := "erdep"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	bin := filepath.Join(dir, name)

	build := exec.Command("go", "build", "-o", bin, "./cmd/erdep")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build erdep: %v\n%s", err, out)
	}
	erdepBinary.path = bin
	return bin
}

// moduleRoot walks up from the working directory to the go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// RunCLI runs erdep against the site's erdep.toml with --json and decodes
// the result. The site must be OnDisk with a config from WriteConfig.
func (s *Site) RunCLI(args ...string) *CLIResult {
	s.t.Helper()
	return s.runCLI(nil, args)
}

// RunCLIWithStdin is RunCLI with stdin attached.
func (s *Site) RunCLIWithStdin(stdin string, args ...string) *CLIResult {
	s.t.Helper()
	return s.runCLI(strings.NewReader(stdin), args)
}

func (s *Site) runCLI(stdin io.Reader, args []string) *CLIResult {
	s.t.Helper()

	configPath := filepath.Join(s.Dir, "erdep.toml")
	if _, err := os.Stat(configPath); err != nil {
		s.t.Fatalf("RunCLI requires WriteConfig: %v", err)
	}

	cmd := exec.Command(BuildCLI(s.t), append([]string{"--config", configPath, "--json"}, args...)...)
	cmd.Stdin = stdin
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()

	res := &CLIResult{}
	if jsonErr := json.Unmarshal(out, res); jsonErr != nil {
		res.OK = false
		res.Error = &CLIError{Code: "PARSE_ERROR", Message: "decode output: " + jsonErr.Error()}
	}
	res.RawJSON = string(out)
	res.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -1
	}
	return res
}

// MustSucceed fails the test unless the command reported ok.
func (r *CLIResult) MustSucceed(t *testing.T) *CLIResult {
	t.Helper()
	if !r.OK {
		t.Fatalf("expected success, got %s\nstdout: %s\nstderr: %s", r.describeError(), r.RawJSON, r.Stderr)
	}
	return r
}

// MustFail fails the test unless the command failed with code.
func (r *CLIResult) MustFail(t *testing.T, code string) *CLIResult {
	t.Helper()
	if r.OK {
		t.Fatalf("expected %s, but the command succeeded\nstdout: %s", code, r.RawJSON)
	}
	if r.Error == nil || r.Error.Code != code {
		t.Fatalf("expected %s, got %s\nstdout: %s", code, r.describeError(), r.RawJSON)
	}
	return r
}

func (r *CLIResult) describeError() string {
	if r.Error == nil {
		return "no error"
	}
	return r.Error.Code + ": " + r.Error.Message
}

// DataList returns Data[key] as a list, or nil.
func (r *CLIResult) DataList(key string) []interface{} {
	list, _ := r.Data[key].([]interface{})
	return list
}

// DataString returns Data[key] as a string, or "".
func (r *CLIResult) DataString(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// DataNumber returns Data[key] as a number, or 0.
func (r *CLIResult) DataNumber(key string) float64 {
	n, _ := r.Data[key].(float64)
	return n
}
