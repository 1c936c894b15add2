package scraper

import (
	"errors"
	"fmt"
	"strings"
)

// OpCode identifies a session operation in diagnostics.
type OpCode int

const (
	OpInit              OpCode = 1
	OpNavigate          OpCode = 2
	OpClick             OpCode = 3
	OpType              OpCode = 4
	OpSelect            OpCode = 5
	OpScreenshot        OpCode = 6
	OpExtractOne        OpCode = 7
	OpExtractMany       OpCode = 8
	OpWaitFixed         OpCode = 9
	OpWaitForElement    OpCode = 10
	OpWaitForNavigation OpCode = 11
	OpClose             OpCode = 12
	OpCurrentURL        OpCode = 13
	OpElementExists     OpCode = 14
	OpPage              OpCode = 15
)

var opNames = map[OpCode]string{
	OpInit:              "init",
	OpNavigate:          "navigate",
	OpClick:             "click",
	OpType:              "type",
	OpSelect:            "select",
	OpScreenshot:        "screenshot",
	OpExtractOne:        "extractOne",
	OpExtractMany:       "extractMany",
	OpWaitFixed:         "waitFixed",
	OpWaitForElement:    "waitForElement",
	OpWaitForNavigation: "waitForNavigation",
	OpClose:             "close",
	OpCurrentURL:        "currentUrl",
	OpElementExists:     "elementExists",
	OpPage:              "page",
}

func (code OpCode) String() string {
	if name, ok := opNames[code]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(code))
}

var (
	ErrSessionNotReady = errors.New("session is not initialized")
	ErrSessionClosed   = errors.New("session is already closed")
	ErrElementTimeout  = errors.New("element did not appear")
	ErrNotFound        = errors.New("element or property not found")
	ErrNavigation      = errors.New("navigation failed")
	ErrNoBrowser       = errors.New("no browser found")
)

// OperationError is returned by every failed Session operation.
type OperationError struct {
	Code OpCode
	Err  error
}

func (err *OperationError) Error() string {
	return fmt.Sprintf("%d: %v: %v", int(err.Code), err.Code, err.Err)
}

func (err *OperationError) Unwrap() error {
	return err.Err
}

// BrowserLaunchError means no browser could be started. It is fatal to a run.
type BrowserLaunchError struct {
	ExecPath   string   // empty when probing found nothing
	Candidates []string // probed locations
	Err        error
}

func (error BrowserLaunchError) Error() string {
	if error.ExecPath == "" {
		return fmt.Sprintf("%v (probed: %v)", error.Err, strings.Join(error.Candidates, ", "))
	}
	return fmt.Sprintf("couldn't launch %v: %v", error.ExecPath, error.Err)
}

func (error BrowserLaunchError) Unwrap() error {
	return error.Err
}

// IsTimeout reports whether err is an element wait timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrElementTimeout)
}

// IsFatal reports whether err leaves the session unusable for the rest of a run.
func IsFatal(err error) bool {
	var launchErr BrowserLaunchError
	if errors.As(err, &launchErr) {
		return true
	}
	return errors.Is(err, ErrSessionNotReady) || errors.Is(err, ErrSessionClosed)
}
