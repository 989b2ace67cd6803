// Package internalerr defines the error kinds raised while configuring and
// running annotation pipelines. Every typed error reports its kind through
// errors.Is against the matching sentinel and exposes its cause via Unwrap.
package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per kind.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrUnknownCapability = errors.New("unknown capability")
	ErrUnknownPipeline   = errors.New("unknown pipeline")
	ErrMalformedPipeline = errors.New("malformed pipeline")
	ErrInstantiation     = errors.New("instantiation error")
	ErrInvocation        = errors.New("invocation error")
	ErrTypeContract      = errors.New("type contract violation")
	ErrFormat            = errors.New("format error")
	ErrIO                = errors.New("i/o error")
)

// ConfigurationError reports a missing or unusable configuration entry or file.
type ConfigurationError struct {
	Key     string // property key or file path involved
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration"
	if e.Key != "" {
		msg += " " + e.Key
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// UnknownCapabilityError reports a lookup of a capability that was never registered.
type UnknownCapabilityError struct {
	Capability string
	Pipeline   string // chain that referenced it, if any
}

func (e *UnknownCapabilityError) Error() string {
	if e.Pipeline != "" {
		return fmt.Sprintf("pipeline %q references unknown capability %q", e.Pipeline, e.Capability)
	}
	return fmt.Sprintf("unknown capability %q", e.Capability)
}

func (e *UnknownCapabilityError) Is(target error) bool { return target == ErrUnknownCapability }

// UnknownPipelineError reports a lookup of a chain that was never registered.
type UnknownPipelineError struct {
	Pipeline string
}

func (e *UnknownPipelineError) Error() string {
	return fmt.Sprintf("unknown pipeline %q", e.Pipeline)
}

func (e *UnknownPipelineError) Is(target error) bool { return target == ErrUnknownPipeline }

// MalformedPipelineError reports a chain definition that cannot be parsed.
type MalformedPipelineError struct {
	Pipeline   string
	Definition string
	Message    string
}

func (e *MalformedPipelineError) Error() string {
	return fmt.Sprintf("malformed pipeline %q (%q): %s", e.Pipeline, e.Definition, e.Message)
}

func (e *MalformedPipelineError) Is(target error) bool { return target == ErrMalformedPipeline }

// InstantiationError reports a stage implementation whose construction failed.
type InstantiationError struct {
	Capability     string
	Implementation string
	Err            error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiate %s (%s): %v", e.Capability, e.Implementation, e.Err)
}

func (e *InstantiationError) Unwrap() error        { return e.Err }
func (e *InstantiationError) Is(target error) bool { return target == ErrInstantiation }

// InvocationError reports a stage that failed while applying to a value.
type InvocationError struct {
	Stage string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *InvocationError) Unwrap() error        { return e.Err }
func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// TypeContractError reports a value of the wrong kind flowing through a chain.
type TypeContractError struct {
	Pipeline string
	Stage    string
	Want     string
	Got      string
}

func (e *TypeContractError) Error() string {
	where := e.Pipeline
	if e.Stage != "" {
		if where != "" {
			where += "/"
		}
		where += e.Stage
	}
	return fmt.Sprintf("type contract %s: want %s, got %s", where, e.Want, e.Got)
}

func (e *TypeContractError) Is(target error) bool { return target == ErrTypeContract }

// FormatError reports input that a loader cannot parse.
type FormatError struct {
	Format  string
	Path    string
	Line    int // 1-based, 0 when not line oriented
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	msg := fmt.Sprintf("parse %s %s: %s", e.Format, loc, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error        { return e.Err }
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// IOError reports a file that could not be opened, read or written.
type IOError struct {
	Op   string // "open", "read", "write", "create"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error        { return e.Err }
func (e *IOError) Is(target error) bool { return target == ErrIO }
