package indicator

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// ErrUnknownIndicator is returned when a chain names an unregistered indicator
var ErrUnknownIndicator = errors.New("unknown indicator")

// Step is one link of an indicator chain, e.g. sma:5
type Step struct {
	Name     string
	Lookback int
}

func (s Step) String() string {
	return fmt.Sprintf("%s:%d", s.Name, s.Lookback)
}

// Chained is a hub built from a Step, widened to reusable values so the next
// step can consume it.
type Chained interface {
	stream.Provider[models.Reusable]
	Unsubscribe() error
	Err() error
}

// HubFactory subscribes a new hub to provider
type HubFactory func(provider stream.Provider[models.Reusable], lookback int, opts ...stream.Option) (Chained, error)

// SeriesFunc computes the batch counterpart of a hub
type SeriesFunc func(items []models.Reusable, lookback int) ([]models.Reusable, error)

// Definition describes how to build one indicator in both forms
type Definition struct {
	Name   string
	NewHub HubFactory
	Series SeriesFunc
}

// Registry maps indicator names to their definitions
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]Definition),
	}
}

// DefaultRegistry returns a registry holding every single-input indicator
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []Definition{
		chainable("sma", NewSMAHub[models.Reusable], SMASeries[models.Reusable]),
		chainable("ema", NewEMAHub[models.Reusable], EMASeries[models.Reusable]),
		chainable("rsi", NewRSIHub[models.Reusable], RSISeries[models.Reusable]),
		chainable("roc", NewROCHub[models.Reusable], ROCSeries[models.Reusable]),
	} {
		// names are unique, so registration cannot fail
		_ = r.Register(def)
	}
	return r
}

// chainable adapts a typed hub constructor and series function to the
// reusable signatures a chain needs.
func chainable[R models.Reusable, H interface {
	stream.Provider[R]
	Unsubscribe() error
	Err() error
}](
	name string,
	newHub func(stream.Provider[models.Reusable], int, ...stream.Option) (H, error),
	series func([]models.Reusable, int) ([]R, error),
) Definition {
	return Definition{
		Name: name,
		NewHub: func(provider stream.Provider[models.Reusable], lookback int, opts ...stream.Option) (Chained, error) {
			hub, err := newHub(provider, lookback, opts...)
			if err != nil {
				return nil, err
			}
			return chained{Provider: stream.AsReusable[R](hub), hub: hub}, nil
		},
		Series: func(items []models.Reusable, lookback int) ([]models.Reusable, error) {
			results, err := series(items, lookback)
			if err != nil {
				return nil, err
			}
			return models.ToReusable(results), nil
		},
	}
}

type chained struct {
	stream.Provider[models.Reusable]
	hub interface {
		Unsubscribe() error
		Err() error
	}
}

func (c chained) Unsubscribe() error { return c.hub.Unsubscribe() }
func (c chained) Err() error         { return c.hub.Err() }

// Register adds a definition to the registry
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("indicator name cannot be empty")
	}
	if def.NewHub == nil || def.Series == nil {
		return fmt.Errorf("indicator %q needs both a hub factory and a series function", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Name]; exists {
		return fmt.Errorf("indicator %q already registered", def.Name)
	}

	r.definitions[def.Name] = def
	return nil
}

// Get retrieves a definition by name
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[name]
	if !exists {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownIndicator, name)
	}

	return def, nil
}

// List returns the registered names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// ParseChain parses a comma separated chain such as "sma:5,ema:10". Names
// are case insensitive; every step needs a lookback.
func ParseChain(s string) ([]Step, error) {
	var steps []Step
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, lookback, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("chain step %q must look like name:lookback", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(lookback))
		if err != nil {
			return nil, fmt.Errorf("chain step %q: invalid lookback: %w", part, err)
		}

		steps = append(steps, Step{Name: strings.ToLower(strings.TrimSpace(name)), Lookback: n})
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("chain %q has no steps", s)
	}
	return steps, nil
}

// BuildHubChain subscribes one hub per step, each consuming the previous
// one, starting at source. On error every hub built so far is detached.
func (r *Registry) BuildHubChain(source stream.Provider[models.Reusable], steps []Step, opts ...stream.Option) ([]Chained, error) {
	hubs := make([]Chained, 0, len(steps))
	upstream := source

	for _, step := range steps {
		def, err := r.Get(step.Name)
		if err != nil {
			return nil, multierr.Append(err, unsubscribeAll(hubs))
		}

		hub, err := def.NewHub(upstream, step.Lookback, opts...)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("%s: %w", step, err), unsubscribeAll(hubs))
		}

		hubs = append(hubs, hub)
		upstream = hub
	}

	return hubs, nil
}

// BuildSeriesChain runs the batch form of every step over items and
// returns each step's output.
func (r *Registry) BuildSeriesChain(items []models.Reusable, steps []Step) ([][]models.Reusable, error) {
	outputs := make([][]models.Reusable, 0, len(steps))
	input := items

	for _, step := range steps {
		def, err := r.Get(step.Name)
		if err != nil {
			return nil, err
		}

		output, err := def.Series(input, step.Lookback)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step, err)
		}

		outputs = append(outputs, output)
		input = output
	}

	return outputs, nil
}

// unsubscribeAll detaches hubs newest first
func unsubscribeAll(hubs []Chained) error {
	var err error
	for i := len(hubs) - 1; i >= 0; i-- {
		err = multierr.Append(err, hubs[i].Unsubscribe())
	}
	return err
}
