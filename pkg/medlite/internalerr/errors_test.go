package internalerr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestKindsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&ConfigurationError{Key: "k", Message: "missing"}, ErrConfiguration},
		{&UnknownCapabilityError{Capability: "tokenizer"}, ErrUnknownCapability},
		{&UnknownPipelineError{Pipeline: "simple.sentence"}, ErrUnknownPipeline},
		{&MalformedPipelineError{Pipeline: "p", Message: "empty"}, ErrMalformedPipeline},
		{&InstantiationError{Capability: "c", Err: errors.New("boom")}, ErrInstantiation},
		{&InvocationError{Stage: "s", Err: errors.New("boom")}, ErrInvocation},
		{&TypeContractError{Want: "sentence", Got: "passage"}, ErrTypeContract},
		{&FormatError{Format: "chemdner", Message: "bad"}, ErrFormat},
		{&IOError{Op: "open", Path: "x", Err: fs.ErrNotExist}, ErrIO},
	}

	all := []error{ErrConfiguration, ErrUnknownCapability, ErrUnknownPipeline, ErrMalformedPipeline,
		ErrInstantiation, ErrInvocation, ErrTypeContract, ErrFormat, ErrIO}

	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("%T should match %v", tc.err, tc.sentinel)
		}
		for _, other := range all {
			if other != tc.sentinel && errors.Is(tc.err, other) {
				t.Errorf("%T should not match %v", tc.err, other)
			}
		}
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	err := &IOError{Op: "open", Path: "/missing", Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("IOError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("load: %w", &InvocationError{Stage: "entity-lookup", Err: errors.New("index closed")})
	var inv *InvocationError
	if !errors.As(wrapped, &inv) {
		t.Fatal("errors.As should find the InvocationError")
	}
	if inv.Stage != "entity-lookup" {
		t.Errorf("Stage = %q", inv.Stage)
	}
}

func TestMessages(t *testing.T) {
	err := &FormatError{Format: "chemdner", Path: "in.txt", Line: 3, Message: "expected 3 fields"}
	if !strings.Contains(err.Error(), "in.txt:3") {
		t.Errorf("line number missing from %q", err.Error())
	}
	uc := &UnknownCapabilityError{Capability: "tagger", Pipeline: "simple.sentence"}
	if !strings.Contains(uc.Error(), "simple.sentence") {
		t.Errorf("pipeline missing from %q", uc.Error())
	}
}
