// Package executor drives documents through registered pipelines:
//
//	collection → document → passage → sentence
//
// Each level rebuilds its container from processed children through the
// bioc builders. Inputs are never mutated; every run works on deep copies,
// so repeated runs over the same input produce the same output.
package executor

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
)

// Chains supplies registered pipelines. *pipeline.Registry satisfies it.
type Chains interface {
	Get(name string) ([]plugin.Stage, error)
}

// Segmenter splits a passage into sentences carrying absolute offsets.
type Segmenter interface {
	Segment(ctx context.Context, p *bioc.Passage) ([]*bioc.Sentence, error)
}

// SegmenterFunc adapts a function to Segmenter.
type SegmenterFunc func(ctx context.Context, p *bioc.Passage) ([]*bioc.Sentence, error)

func (f SegmenterFunc) Segment(ctx context.Context, p *bioc.Passage) ([]*bioc.Sentence, error) {
	return f(ctx, p)
}

// Options configures an Executor.
type Options struct {
	Chains Chains
	// Segmenter is consulted for passages without sentences when
	// SegmentSentences is set. Otherwise the whole passage is one sentence.
	Segmenter        Segmenter
	SentencePipeline string
	// PassagePipeline, when non-empty, runs on each passage before
	// segmentation.
	PassagePipeline  string
	SegmentSentences bool
	// Workers > 1 processes documents concurrently. Output order always
	// matches input order.
	Workers int
	Logger  *slog.Logger
}

// Executor applies chains over the document hierarchy. It holds no
// per-run state and is safe for concurrent use once built.
type Executor struct {
	opts Options
	log  *slog.Logger
}

// New validates opts and returns an executor.
func New(opts Options) (*Executor, error) {
	if opts.Chains == nil {
		return nil, &internalerr.ConfigurationError{Message: "executor needs a pipeline registry"}
	}
	if opts.SentencePipeline == "" {
		return nil, &internalerr.ConfigurationError{Message: "no sentence pipeline configured"}
	}
	if opts.SegmentSentences && opts.Segmenter == nil {
		return nil, &internalerr.ConfigurationError{Message: "sentence segmentation enabled without a segmenter"}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Executor{opts: opts, log: logging.Or(opts.Logger)}, nil
}

// chains holds the stages fetched for one unit of work.
type chains struct {
	sentence []plugin.Stage
	passage  []plugin.Stage
}

// resolve fetches the configured pipelines. It runs before any sentence of
// a document is touched, so an unknown pipeline leaves nothing processed.
func (e *Executor) resolve() (chains, error) {
	var c chains
	var err error
	if c.sentence, err = e.opts.Chains.Get(e.opts.SentencePipeline); err != nil {
		return chains{}, err
	}
	if e.opts.PassagePipeline != "" {
		if c.passage, err = e.opts.Chains.Get(e.opts.PassagePipeline); err != nil {
			return chains{}, err
		}
	}
	return c, nil
}

// ProcessCollection processes every document and returns a new collection
// with the input's source, date, key and infons. Any document failure
// aborts the whole collection and no partial collection is returned.
func (e *Executor) ProcessCollection(ctx context.Context, c *bioc.Collection) (*bioc.Collection, error) {
	docs, err := e.ProcessDocuments(ctx, c.Documents)
	if err != nil {
		return nil, err
	}
	b := bioc.NewCollectionBuilder(c)
	for _, d := range docs {
		b.AddDocument(d)
	}
	return b.Build(), nil
}

// ProcessDocuments processes docs in order, or with Options.Workers
// concurrent workers. The result is in input order either way. When
// several documents fail, the error of the lowest-indexed one is returned.
func (e *Executor) ProcessDocuments(ctx context.Context, docs []*bioc.Document) ([]*bioc.Document, error) {
	c, err := e.resolve()
	if err != nil {
		return nil, err
	}

	if e.opts.Workers <= 1 || len(docs) <= 1 {
		out := make([]*bioc.Document, 0, len(docs))
		for _, d := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pd, err := e.processDocument(ctx, d, c)
			if err != nil {
				return nil, err
			}
			out = append(out, pd)
		}
		return out, nil
	}

	out := make([]*bioc.Document, len(docs))
	errs := make([]error, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			pd, err := e.processDocument(gctx, d, c)
			if err != nil {
				errs[i] = err
				return err
			}
			out[i] = pd
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return nil, firstError(errs, werr)
	}
	return out, nil
}

// firstError picks the lowest-indexed error that is not a cancellation
// caused by another worker failing.
func firstError(errs []error, fallback error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return fallback
}

// ProcessDocument processes every passage of d in order and returns a new
// document with the same identifier, infons and relations.
func (e *Executor) ProcessDocument(ctx context.Context, d *bioc.Document) (*bioc.Document, error) {
	c, err := e.resolve()
	if err != nil {
		return nil, err
	}
	return e.processDocument(ctx, d, c)
}

func (e *Executor) processDocument(ctx context.Context, d *bioc.Document, c chains) (*bioc.Document, error) {
	log := logging.FromContext(ctx, e.log)
	log.Debug("document start", "doc_id", d.ID, "passages", len(d.Passages))

	b := bioc.NewDocumentBuilder(d)
	sentences, annotations := 0, 0
	for _, p := range d.Passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pp, err := e.processPassage(ctx, p, c)
		if err != nil {
			log.Debug("document failed", "doc_id", d.ID, "error", err)
			return nil, err
		}
		sentences += len(pp.Sentences)
		for _, s := range pp.Sentences {
			annotations += len(s.Annotations)
		}
		b.AddPassage(pp)
	}

	log.Info("document processed", "doc_id", d.ID, "passages", len(d.Passages), "sentences", sentences, "annotations", annotations)
	return b.Build(), nil
}

// ProcessPassage runs the passage pipeline (if any), segments the passage
// when it has no sentences, and runs the sentence pipeline over each
// sentence. Text, offset, infons and passage annotations are kept.
func (e *Executor) ProcessPassage(ctx context.Context, p *bioc.Passage) (*bioc.Passage, error) {
	c, err := e.resolve()
	if err != nil {
		return nil, err
	}
	return e.processPassage(ctx, p, c)
}

func (e *Executor) processPassage(ctx context.Context, p *bioc.Passage, c chains) (*bioc.Passage, error) {
	work := p.Clone()
	if len(c.passage) > 0 {
		out, err := runChain(ctx, e.opts.PassagePipeline, c.passage, work, plugin.KindPassage)
		if err != nil {
			return nil, err
		}
		work = out.(*bioc.Passage)
	}

	if len(work.Sentences) == 0 {
		sents, err := e.segment(ctx, work)
		if err != nil {
			return nil, err
		}
		work.Sentences = sents
	}

	processed, err := e.processSentences(ctx, work.Sentences, c.sentence)
	if err != nil {
		return nil, err
	}

	b := bioc.NewPassageBuilder(work)
	for _, s := range processed {
		b.AddSentence(s)
	}
	return b.Build(), nil
}

func (e *Executor) segment(ctx context.Context, p *bioc.Passage) ([]*bioc.Sentence, error) {
	if !e.opts.SegmentSentences {
		if p.Text == "" {
			return nil, nil
		}
		return []*bioc.Sentence{{Offset: p.Offset, Text: p.Text}}, nil
	}
	sents, err := e.opts.Segmenter.Segment(ctx, p)
	if err != nil {
		return nil, asStageError("segmenter", err)
	}
	return sents, nil
}

// ProcessSentences runs the sentence pipeline over every sentence of p and
// returns the processed sentences in their original order.
func (e *Executor) ProcessSentences(ctx context.Context, p *bioc.Passage) ([]*bioc.Sentence, error) {
	c, err := e.resolve()
	if err != nil {
		return nil, err
	}
	return e.processSentences(ctx, p.Sentences, c.sentence)
}

func (e *Executor) processSentences(ctx context.Context, in []*bioc.Sentence, stages []plugin.Stage) ([]*bioc.Sentence, error) {
	out := make([]*bioc.Sentence, 0, len(in))
	for _, s := range in {
		ps, err := e.applySentence(ctx, s, e.opts.SentencePipeline, stages)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

// ProcessSentence threads a copy of s through the named pipeline. The
// chain must end with a sentence; anything else is a TypeContractError.
func (e *Executor) ProcessSentence(ctx context.Context, s *bioc.Sentence, pipelineName string) (*bioc.Sentence, error) {
	stages, err := e.opts.Chains.Get(pipelineName)
	if err != nil {
		return nil, err
	}
	return e.applySentence(ctx, s, pipelineName, stages)
}

func (e *Executor) applySentence(ctx context.Context, s *bioc.Sentence, name string, stages []plugin.Stage) (*bioc.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := runChain(ctx, name, stages, s.Clone(), plugin.KindSentence)
	if err != nil {
		return nil, err
	}
	return out.(*bioc.Sentence), nil
}

// runChain threads v through stages in order. Stage failures become an
// InvocationError naming the stage unless they already carry a kind.
func runChain(ctx context.Context, name string, stages []plugin.Stage, v any, want plugin.Kind) (any, error) {
	last := ""
	for _, st := range stages {
		out, err := st.Apply(ctx, v)
		if err != nil {
			return nil, asStageError(st.Name(), err)
		}
		v = out
		last = st.Name()
	}
	if plugin.KindOf(v) != want {
		return nil, &internalerr.TypeContractError{
			Pipeline: name,
			Stage:    last,
			Want:     want.String(),
			Got:      plugin.Describe(v),
		}
	}
	return v, nil
}

func asStageError(stage string, err error) error {
	if errors.Is(err, internalerr.ErrInvocation) || errors.Is(err, internalerr.ErrTypeContract) {
		return err
	}
	return &internalerr.InvocationError{Stage: stage, Err: err}
}
