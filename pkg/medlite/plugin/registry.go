package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

// Factory builds a stage for capability from configuration.
type Factory func(ctx context.Context, capability string, cfg *config.Config) (Stage, error)

// Catalog maps implementation references, the values of
// metamaplite.plugin.<capability> keys, to factories.
type Catalog map[string]Factory

// References returns the catalog keys in sorted order.
func (c Catalog) References() []string {
	refs := make([]string, 0, len(c))
	for ref := range c {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Registry holds the stages registered for a run. It is populated during a
// single initialization phase and is read-only afterwards, so it can be
// shared by concurrent workers without locking.
type Registry struct {
	catalog Catalog
	stages  map[string]Stage
	order   []string
	log     *slog.Logger
}

// NewRegistry creates an empty registry backed by catalog.
func NewRegistry(catalog Catalog, log *slog.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		stages:  make(map[string]Stage),
		log:     logging.Or(log),
	}
}

// Register instantiates the implementation configured for capability and
// caches it under that name.
func (r *Registry) Register(ctx context.Context, capability string, cfg *config.Config) error {
	key := config.PluginPrefix + "." + capability
	if _, dup := r.stages[capability]; dup {
		return &internalerr.ConfigurationError{Key: key, Message: "capability registered twice"}
	}

	ref, ok := cfg.Get(key)
	if !ok || ref == "" {
		return &internalerr.ConfigurationError{Key: key, Message: "no implementation configured"}
	}
	factory, ok := r.catalog[ref]
	if !ok {
		return &internalerr.ConfigurationError{Key: key, Message: "unknown implementation " + ref}
	}

	stage, err := factory(ctx, capability, cfg)
	if err != nil {
		return &internalerr.InstantiationError{Capability: capability, Implementation: ref, Err: err}
	}
	if stage == nil {
		return &internalerr.InstantiationError{Capability: capability, Implementation: ref, Err: errors.New("factory returned no stage")}
	}

	r.stages[capability] = stage
	r.order = append(r.order, capability)
	r.log.Debug("plugin registered", "capability", capability, "implementation", ref, "signature", stage.Signature().String())
	return nil
}

// RegisterAll registers every capability named by a metamaplite.plugin.*
// key, in sorted order. On failure the stages built so far are closed.
func (r *Registry) RegisterAll(ctx context.Context, cfg *config.Config) error {
	mappings := cfg.WithPrefix(config.PluginPrefix)
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.Register(ctx, name, cfg); err != nil {
			_ = r.Close()
			return err
		}
	}

	r.log.Info("plugins registered", "count", len(names), "capabilities", names)
	return nil
}

// Resolve returns the stage registered for capability.
func (r *Registry) Resolve(capability string) (Stage, error) {
	s, ok := r.stages[capability]
	if !ok {
		return nil, &internalerr.UnknownCapabilityError{Capability: capability}
	}
	return s, nil
}

// List returns the registered capabilities in registration order.
func (r *Registry) List() []string {
	return append([]string(nil), r.order...)
}

// Close releases stage resources in reverse registration order and empties
// the registry.
func (r *Registry) Close() error {
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		if c, ok := r.stages[r.order[i]].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	r.stages = make(map[string]Stage)
	r.order = nil
	return errors.Join(errs...)
}
