// Package plugin resolves capability names ("tokenizer", "entity-lookup", ...)
// to stage instances built once from configuration at startup.
package plugin

import (
	"context"
	"fmt"
	"io"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

// Kind tags the type of value a stage accepts or produces.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSentence
	KindPassage
)

func (k Kind) String() string {
	switch k {
	case KindSentence:
		return "sentence"
	case KindPassage:
		return "passage"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of a value flowing through a chain.
func KindOf(v any) Kind {
	switch x := v.(type) {
	case *bioc.Sentence:
		if x != nil {
			return KindSentence
		}
	case *bioc.Passage:
		if x != nil {
			return KindPassage
		}
	}
	return KindUnknown
}

// Signature declares a stage's input and output kinds so chains can be
// type checked when they are registered.
type Signature struct {
	In  Kind
	Out Kind
}

func (s Signature) String() string { return s.In.String() + "→" + s.Out.String() }

// Stage is one unit of document transformation.
type Stage interface {
	Name() string
	Signature() Signature
	// Apply transforms a value of kind Signature().In into one of kind
	// Signature().Out. Stages may modify and return their input.
	Apply(ctx context.Context, in any) (any, error)
}

// FuncStage adapts a typed function to Stage. An optional Closer releases
// resources acquired when the stage was built.
type FuncStage struct {
	name   string
	sig    Signature
	apply  func(ctx context.Context, in any) (any, error)
	closer io.Closer
}

// NewSentenceStage wraps a sentence→sentence function.
func NewSentenceStage(name string, fn func(ctx context.Context, s *bioc.Sentence) (*bioc.Sentence, error)) *FuncStage {
	return &FuncStage{
		name: name,
		sig:  Signature{In: KindSentence, Out: KindSentence},
		apply: func(ctx context.Context, in any) (any, error) {
			s, ok := in.(*bioc.Sentence)
			if !ok || s == nil {
				return nil, &internalerr.TypeContractError{Stage: name, Want: KindSentence.String(), Got: Describe(in)}
			}
			out, err := fn(ctx, s)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// NewPassageStage wraps a passage→passage function.
func NewPassageStage(name string, fn func(ctx context.Context, p *bioc.Passage) (*bioc.Passage, error)) *FuncStage {
	return &FuncStage{
		name: name,
		sig:  Signature{In: KindPassage, Out: KindPassage},
		apply: func(ctx context.Context, in any) (any, error) {
			p, ok := in.(*bioc.Passage)
			if !ok || p == nil {
				return nil, &internalerr.TypeContractError{Stage: name, Want: KindPassage.String(), Got: Describe(in)}
			}
			out, err := fn(ctx, p)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// WithCloser attaches a resource to release when the registry is closed.
func (s *FuncStage) WithCloser(c io.Closer) *FuncStage {
	s.closer = c
	return s
}

func (s *FuncStage) Name() string         { return s.name }
func (s *FuncStage) Signature() Signature { return s.sig }

func (s *FuncStage) Apply(ctx context.Context, in any) (any, error) {
	return s.apply(ctx, in)
}

// Close releases the attached resource, if any.
func (s *FuncStage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Describe names the kind (or Go type) of a value for error messages.
func Describe(v any) string {
	if k := KindOf(v); k != KindUnknown {
		return k.String()
	}
	return fmt.Sprintf("%T", v)
}
