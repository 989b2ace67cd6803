// Package config reads the properties configuration that drives plugin and
// pipeline registration, and the YAML resources (concept dictionaries,
// part-of-speech lexicons) that stages load at construction time.
package config

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/magiconair/properties"

	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

// Well-known keys.
const (
	PluginPrefix   = "metamaplite.plugin"
	PipelinePrefix = "metamaplite.pipeline"

	KeySentencePipeline  = "metamaplite.sentence.pipeline"
	KeyPassagePipeline   = "metamaplite.passage.pipeline"
	KeySegmentSentences  = "metamaplite.segment.sentences"
	KeyWorkers           = "metamaplite.workers"
	KeyResultLength      = "metamaplite.entitylookup.resultlength"
	KeyLookupCacheSize   = "metamaplite.entitylookup.cachesize"
	KeySemanticGroup     = "metamaplite.semanticgroup"
	KeySourceSet         = "metamaplite.sourceset"
	KeyExcludedTermsFile = "metamaplite.excluded.termsfile"
	KeyConceptDictionary = "metamaplite.concept.dictionary"
	KeyConceptIndex      = "metamaplite.concept.index"
	KeyPOSLexicon        = "metamaplite.pos.lexicon"
	KeyLexiconFile       = "metamaplite.lexicon.file"
	KeyAbbreviations     = "metamaplite.segment.abbreviations"
	KeyIndexDirectory    = "metamaplite.index.directory"
	KeyInputType         = "metamaplite.document.inputtype"
	KeyOutputFormat      = "metamaplite.outputformat"
	KeyOutputExtension   = "metamaplite.outputextension"
	KeyLogLevel          = "metamaplite.log.level"
	KeyLogFormat         = "metamaplite.log.format"
	EnvPropertyFile      = "METAMAPLITE_PROPERTY_FILE"
	DefaultPropertyFile  = "config/metamaplite.properties"
	PipelinePropertyFile = "config/bioc.metamaplite.properties"
	DefaultSentenceChain = "simple.sentence"
	DefaultLookupCache   = 4096
	DefaultResultLength  = 5
	allSelector          = "all"
)

// Config is an immutable-after-startup view over merged properties.
type Config struct {
	props *properties.Properties
}

// Defaults returns the built-in configuration every file is merged over.
func Defaults() *Config {
	p := properties.NewProperties()
	set := func(k, v string) { _, _, _ = p.Set(k, v) }
	set(KeyIndexDirectory, "data/ivf/strict")
	set(KeyExcludedTermsFile, "data/specialterms.txt")
	set(KeyInputType, "freetext")
	set(KeyOutputFormat, "mmi")
	set(KeySemanticGroup, allSelector)
	set(KeySourceSet, allSelector)
	set(KeySegmentSentences, "true")
	set(KeySentencePipeline, DefaultSentenceChain)
	set(KeyPassagePipeline, "")
	set(KeyResultLength, strconv.Itoa(DefaultResultLength))
	set(KeyLookupCacheSize, strconv.Itoa(DefaultLookupCache))
	set(KeyWorkers, "1")
	set(KeyLogLevel, "info")
	set(KeyLogFormat, "text")
	return &Config{props: p}
}

// Parse merges properties text over the defaults.
func Parse(text string) (*Config, error) {
	p, err := properties.LoadString(text)
	if err != nil {
		return nil, &internalerr.ConfigurationError{Message: "parse properties", Err: err}
	}
	cfg := Defaults()
	cfg.props.Merge(p)
	return cfg, nil
}

// LoadFile reads a properties file and merges it over the defaults.
// A missing or unreadable file is a ConfigurationError.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &internalerr.ConfigurationError{Key: path, Message: "read configuration file", Err: err}
	}
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, &internalerr.ConfigurationError{Key: path, Message: "parse configuration file", Err: err}
	}
	cfg := Defaults()
	cfg.props.Merge(p)
	return cfg, nil
}

// ResolvePath picks the configuration file: an explicit path wins, then the
// METAMAPLITE_PROPERTY_FILE environment variable, then the first candidate
// that exists, then the first candidate.
func ResolvePath(explicit string, candidates ...string) string {
	if explicit != "" {
		return explicit
	}
	if env := strings.TrimSpace(os.Getenv(EnvPropertyFile)); env != "" {
		return env
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		} else if !errors.Is(err, fs.ErrNotExist) {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return DefaultPropertyFile
}

// Get returns the trimmed value for key.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.props.Get(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// String returns the value for key or def when unset or blank.
func (c *Config) String(key, def string) string {
	if v, ok := c.Get(key); ok && v != "" {
		return v
	}
	return def
}

// Int returns the integer value for key or def when unset. A value that is
// not an integer is a ConfigurationError.
func (c *Config) Int(key string, def int) (int, error) {
	v, ok := c.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &internalerr.ConfigurationError{Key: key, Message: "not an integer", Err: err}
	}
	return n, nil
}

// Bool returns the boolean value for key or def when unset.
func (c *Config) Bool(key string, def bool) bool {
	return c.props.GetBool(key, def)
}

// List splits a comma separated value, dropping blanks.
func (c *Config) List(key string) []string {
	v, _ := c.Get(key)
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Selector returns the comma separated set for key, or nil when the value
// is "all" (or unset), meaning no restriction.
func (c *Config) Selector(key string) map[string]struct{} {
	items := c.List(key)
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if strings.EqualFold(it, allSelector) {
			return nil
		}
		set[it] = struct{}{}
	}
	return set
}

// Set overrides a value, e.g. from a command line flag.
func (c *Config) Set(key, value string) error {
	if _, _, err := c.props.Set(key, value); err != nil {
		return &internalerr.ConfigurationError{Key: key, Message: "set value", Err: err}
	}
	return nil
}

// WithPrefix returns every key below prefix (with "prefix." removed) and its
// value.
func (c *Config) WithPrefix(prefix string) map[string]string {
	sub := c.props.FilterStripPrefix(prefix + ".")
	out := make(map[string]string, sub.Len())
	for _, k := range sub.Keys() {
		v, _ := sub.Get(k)
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// Keys returns all keys in sorted order.
func (c *Config) Keys() []string {
	keys := c.props.Keys()
	sort.Strings(keys)
	return keys
}
