// Package pipeline maps pipeline names to ordered chains of registered
// stages. Chains are parsed, resolved and type checked at registration so
// that a bad definition fails at startup rather than on the first sentence.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
)

// Resolver looks up stages by capability name. *plugin.Registry satisfies it.
type Resolver interface {
	Resolve(capability string) (plugin.Stage, error)
}

// Chain is a registered pipeline.
type Chain struct {
	Name         string
	Capabilities []string
	Signature    plugin.Signature
	stages       []plugin.Stage
}

// Registry holds named chains. Like the plugin registry it is written
// during initialization only.
type Registry struct {
	plugins Resolver
	chains  map[string]*Chain
	log     *slog.Logger
}

// NewRegistry creates an empty pipeline registry resolving stages through plugins.
func NewRegistry(plugins Resolver, log *slog.Logger) *Registry {
	return &Registry{
		plugins: plugins,
		chains:  make(map[string]*Chain),
		log:     logging.Or(log),
	}
}

// RegisterChains registers every "<prefix>.<name> = a,b,c" entry in cfg.
// Names are registered in sorted order so the first failure is stable.
func (r *Registry) RegisterChains(prefix string, cfg *config.Config) error {
	defs := cfg.WithPrefix(prefix)
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.Define(name, defs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Define parses and registers a single chain definition.
func (r *Registry) Define(name, definition string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &internalerr.MalformedPipelineError{Definition: definition, Message: "empty pipeline name"}
	}
	if _, dup := r.chains[name]; dup {
		return &internalerr.MalformedPipelineError{Pipeline: name, Definition: definition, Message: "pipeline defined twice"}
	}

	caps, err := Parse(definition)
	if err != nil {
		return &internalerr.MalformedPipelineError{Pipeline: name, Definition: definition, Message: err.Error()}
	}

	chain := &Chain{Name: name, Capabilities: caps}
	for i, c := range caps {
		st, err := r.plugins.Resolve(c)
		if err != nil {
			return &internalerr.UnknownCapabilityError{Capability: c, Pipeline: name}
		}
		if i > 0 {
			prev := chain.stages[i-1]
			if prev.Signature().Out != st.Signature().In {
				return &internalerr.TypeContractError{
					Pipeline: name,
					Stage:    c,
					Want:     prev.Signature().Out.String(),
					Got:      st.Signature().In.String(),
				}
			}
		}
		chain.stages = append(chain.stages, st)
	}
	chain.Signature = plugin.Signature{
		In:  chain.stages[0].Signature().In,
		Out: chain.stages[len(chain.stages)-1].Signature().Out,
	}

	r.chains[name] = chain
	r.log.Info("pipeline registered", "name", name, "stages", strings.Join(caps, ","), "signature", chain.Signature.String())
	return nil
}

// Parse splits a chain definition on commas (or "|") into trimmed
// capability names. An empty definition or an empty element is an error.
func Parse(definition string) ([]string, error) {
	definition = strings.TrimSpace(definition)
	if definition == "" {
		return nil, fmt.Errorf("no stages listed")
	}
	sep := ","
	if strings.Contains(definition, "|") {
		if strings.Contains(definition, ",") {
			return nil, fmt.Errorf("mixed separators")
		}
		sep = "|"
	}

	parts := strings.Split(definition, sep)
	caps := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("empty stage at position %d", i+1)
		}
		caps = append(caps, p)
	}
	return caps, nil
}

// Get returns the stages of the named chain in configured order. The slice
// is a copy; callers cannot alter the registered chain.
func (r *Registry) Get(name string) ([]plugin.Stage, error) {
	c, ok := r.chains[name]
	if !ok {
		return nil, &internalerr.UnknownPipelineError{Pipeline: name}
	}
	return append([]plugin.Stage(nil), c.stages...), nil
}

// Chain returns the description of a registered chain.
func (r *Registry) Chain(name string) (Chain, error) {
	c, ok := r.chains[name]
	if !ok {
		return Chain{}, &internalerr.UnknownPipelineError{Pipeline: name}
	}
	return Chain{
		Name:         c.Name,
		Capabilities: append([]string(nil), c.Capabilities...),
		Signature:    c.Signature,
	}, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.chains[name]
	return ok
}

// List returns "name: a,b,c" for every chain, sorted by name.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.chains))
	for n := range r.chains {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n+": "+strings.Join(r.chains[n].Capabilities, ","))
	}
	return out
}
