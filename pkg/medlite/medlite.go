// Package medlite is the annotation engine facade. It builds the plugin
// registry, the pipeline registry and the executor from one configuration
// and exposes the processing entry points.
package medlite

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/document"
	"github.com/cognicore/medlite/pkg/medlite/executor"
	"github.com/cognicore/medlite/pkg/medlite/ingest"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
	"github.com/cognicore/medlite/pkg/medlite/pipeline"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
)

// Engine is the main annotation engine facade.
type Engine struct {
	cfg     *config.Config
	plugins *plugin.Registry
	chains  *pipeline.Registry
	exec    *executor.Executor
	log     *slog.Logger
}

// Options configures an Engine.
type Options struct {
	Config *config.Config
	// Catalog maps implementation references to factories; nil means the
	// built-in ingest catalog.
	Catalog plugin.Catalog
	Logger  *slog.Logger
}

// New registers every configured plugin and pipeline and builds the
// executor. Initialization completes before New returns; on failure every
// stage built so far is closed.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, &internalerr.ConfigurationError{Message: "no configuration"}
	}
	cfg := opts.Config
	log := logging.FromContext(ctx, opts.Logger)
	catalog := opts.Catalog
	if catalog == nil {
		catalog = ingest.Catalog()
	}

	plugins := plugin.NewRegistry(catalog, log)
	if err := plugins.RegisterAll(ctx, cfg); err != nil {
		return nil, err
	}

	chains := pipeline.NewRegistry(plugins, log)
	if err := chains.RegisterChains(config.PipelinePrefix, cfg); err != nil {
		return nil, errors.Join(err, plugins.Close())
	}

	sentenceChain := cfg.String(config.KeySentencePipeline, config.DefaultSentenceChain)
	passageChain := cfg.String(config.KeyPassagePipeline, "")
	if err := checkChain(chains, sentenceChain, plugin.KindSentence); err != nil {
		return nil, errors.Join(err, plugins.Close())
	}
	if passageChain != "" {
		if err := checkChain(chains, passageChain, plugin.KindPassage); err != nil {
			return nil, errors.Join(err, plugins.Close())
		}
	}

	workers, err := cfg.Int(config.KeyWorkers, 1)
	if err != nil {
		return nil, errors.Join(err, plugins.Close())
	}

	exec, err := executor.New(executor.Options{
		Chains:           chains,
		Segmenter:        ingest.SegmenterFromConfig(cfg),
		SentencePipeline: sentenceChain,
		PassagePipeline:  passageChain,
		SegmentSentences: cfg.Bool(config.KeySegmentSentences, true),
		Workers:          workers,
		Logger:           log,
	})
	if err != nil {
		return nil, errors.Join(err, plugins.Close())
	}

	log.Info("engine ready",
		"plugins", plugins.List(),
		"pipelines", chains.List(),
		"sentence_pipeline", sentenceChain,
		"workers", workers)

	return &Engine{cfg: cfg, plugins: plugins, chains: chains, exec: exec, log: log}, nil
}

// checkChain reports whether the named chain is registered and maps kind
// to kind.
func checkChain(chains *pipeline.Registry, name string, kind plugin.Kind) error {
	c, err := chains.Chain(name)
	if err != nil {
		return err
	}
	want := plugin.Signature{In: kind, Out: kind}
	if c.Signature != want {
		return &internalerr.TypeContractError{
			Pipeline: name,
			Stage:    strings.Join(c.Capabilities, ","),
			Want:     want.String(),
			Got:      c.Signature.String(),
		}
	}
	return nil
}

// Close releases every stage resource. The engine is unusable afterwards.
func (e *Engine) Close() error {
	return e.plugins.Close()
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Plugins lists the registered capabilities in registration order.
func (e *Engine) Plugins() []string { return e.plugins.List() }

// Pipelines lists the registered chains as "name: a,b,c".
func (e *Engine) Pipelines() []string { return e.chains.List() }

// ProcessCollection processes every document of c and returns a new
// collection with c's metadata.
func (e *Engine) ProcessCollection(ctx context.Context, c *bioc.Collection) (*bioc.Collection, error) {
	return e.exec.ProcessCollection(ctx, c)
}

// ProcessDocuments processes docs and returns results in input order.
func (e *Engine) ProcessDocuments(ctx context.Context, docs []*bioc.Document) ([]*bioc.Document, error) {
	return e.exec.ProcessDocuments(ctx, docs)
}

// ProcessDocument processes a single document.
func (e *Engine) ProcessDocument(ctx context.Context, d *bioc.Document) (*bioc.Document, error) {
	return e.exec.ProcessDocument(ctx, d)
}

// ProcessPassage processes a single passage.
func (e *Engine) ProcessPassage(ctx context.Context, p *bioc.Passage) (*bioc.Passage, error) {
	return e.exec.ProcessPassage(ctx, p)
}

// ProcessSentence runs the named pipeline over one sentence.
func (e *Engine) ProcessSentence(ctx context.Context, s *bioc.Sentence, pipelineName string) (*bioc.Sentence, error) {
	return e.exec.ProcessSentence(ctx, s, pipelineName)
}

// ProcessFiles loads paths in the given input format and processes the
// resulting collection.
func (e *Engine) ProcessFiles(ctx context.Context, format string, paths ...string) (*bioc.Collection, error) {
	in, err := document.LoadCollection(format, paths...)
	if err != nil {
		return nil, err
	}
	e.log.Info("input loaded", "format", format, "files", len(paths), "documents", len(in.Documents))
	return e.exec.ProcessCollection(ctx, in)
}
