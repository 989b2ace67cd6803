// Package ingest provides the built-in sentence and passage stages
// (segmenter, tokenizer, part-of-speech tagger, entity lookup) and the
// catalog that maps their implementation references to factories.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/lexicon"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
	"github.com/cognicore/medlite/pkg/medlite/stoplist"
	"github.com/cognicore/medlite/pkg/medlite/store"
	"github.com/cognicore/medlite/pkg/medlite/store/memstore"
	"github.com/cognicore/medlite/pkg/medlite/store/sqlite"
)

// Implementation references accepted in metamaplite.plugin.* keys.
const (
	RefSentenceSegmenter  = "medlite.ingest.SentenceSegmenter"
	RefTokenizer          = "medlite.ingest.Tokenizer"
	RefPartOfSpeechTagger = "medlite.ingest.PartOfSpeechTagger"
	RefEntityLookup       = "medlite.ingest.EntityLookup"
)

// Catalog returns the factories for the built-in stages.
func Catalog() plugin.Catalog {
	return plugin.Catalog{
		RefSentenceSegmenter:  newSegmenterStage,
		RefTokenizer:          newTokenizerStage,
		RefPartOfSpeechTagger: newTaggerStage,
		RefEntityLookup:       newEntityLookupStage,
	}
}

// SegmenterFromConfig builds the segmenter with any configured extra
// abbreviations.
func SegmenterFromConfig(cfg *config.Config) *Segmenter {
	return NewSegmenter(cfg.List(config.KeyAbbreviations)...)
}

func newSegmenterStage(ctx context.Context, capability string, cfg *config.Config) (plugin.Stage, error) {
	return SegmenterFromConfig(cfg).Stage(capability), nil
}

func newTokenizerStage(ctx context.Context, capability string, cfg *config.Config) (plugin.Stage, error) {
	return Tokenizer{}.Stage(capability), nil
}

func newTaggerStage(ctx context.Context, capability string, cfg *config.Config) (plugin.Stage, error) {
	path, _ := cfg.Get(config.KeyPOSLexicon)
	if path == "" {
		return NewTagger(nil).Stage(capability), nil
	}
	lex, err := config.LoadPOSLexicon(path)
	if err != nil {
		return nil, fmt.Errorf("load pos lexicon: %w", err)
	}
	return NewTagger(lex.Tags).Stage(capability), nil
}

func newEntityLookupStage(ctx context.Context, capability string, cfg *config.Config) (plugin.Stage, error) {
	log := logging.FromContext(ctx, nil)

	index, err := OpenIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := LookupOptions{
		SemanticTypes: cfg.Selector(config.KeySemanticGroup),
		Sources:       cfg.Selector(config.KeySourceSet),
	}
	if opts.ResultLength, err = cfg.Int(config.KeyResultLength, config.DefaultResultLength); err != nil {
		index.Close()
		return nil, err
	}
	if opts.CacheSize, err = cfg.Int(config.KeyLookupCacheSize, config.DefaultLookupCache); err != nil {
		index.Close()
		return nil, err
	}

	if path, _ := cfg.Get(config.KeyLexiconFile); path != "" {
		if opts.Lexicon, err = lexicon.LoadFromYAML(path); err != nil {
			index.Close()
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
	}

	if path, _ := cfg.Get(config.KeyExcludedTermsFile); path != "" {
		opts.Excluded, err = stoplist.Load(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("excluded terms file not found, no terms excluded", "path", path)
		case err != nil:
			index.Close()
			return nil, fmt.Errorf("load excluded terms: %w", err)
		}
	}

	el, err := NewEntityLookup(index, opts)
	if err != nil {
		index.Close()
		return nil, err
	}
	log.Info("entity lookup ready",
		"concepts", index.Len(),
		"max_term_words", index.MaxTermLength(),
		"result_length", opts.ResultLength,
		"cache_size", opts.CacheSize)
	return el.Stage(capability).WithCloser(el), nil
}

// IndexFileName is the SQLite index looked for in metamaplite.index.directory.
const IndexFileName = "concepts.db"

// OpenIndex opens the configured concept index: the SQLite database named by
// metamaplite.concept.index when set, else the YAML dictionary named by
// metamaplite.concept.dictionary, else concepts.db in
// metamaplite.index.directory when that file exists.
func OpenIndex(ctx context.Context, cfg *config.Config) (store.ConceptIndex, error) {
	if path, _ := cfg.Get(config.KeyConceptIndex); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("concept index: %w", err)
		}
		return openSQLiteIndex(ctx, path)
	}
	if path, _ := cfg.Get(config.KeyConceptDictionary); path != "" {
		idx, err := memstore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load concept dictionary %s: %w", path, err)
		}
		return idx, nil
	}
	if dir, _ := cfg.Get(config.KeyIndexDirectory); dir != "" {
		path := filepath.Join(dir, IndexFileName)
		if _, err := os.Stat(path); err == nil {
			return openSQLiteIndex(ctx, path)
		}
	}
	return nil, fmt.Errorf("neither %s nor %s is configured", config.KeyConceptIndex, config.KeyConceptDictionary)
}

func openSQLiteIndex(ctx context.Context, path string) (store.ConceptIndex, error) {
	idx, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open concept index %s: %w", path, err)
	}
	return idx, nil
}
