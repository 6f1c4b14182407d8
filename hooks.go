package modhost

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

// DefaultHookOrder is the order given to hooks registered through the
// convenience interfaces.
const DefaultHookOrder = 32

// Hook is one lifecycle callback. Hooks of a phase run in descending Order.
// Hooks with equal Order run in no particular order.
type Hook struct {
	Name  string
	Phase State
	Order int
	Fn    func(ctx context.Context) error
}

// HookProvider is implemented by module instances that declare their hooks
// explicitly.
type HookProvider interface {
	LifecycleHooks() []Hook
}

// LoadHook registers OnLoad for the LOADED phase.
type LoadHook interface {
	OnLoad(ctx context.Context) error
}

// Startable registers Start for the STARTED phase.
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable registers Stop for the STOPPED phase.
type Stoppable interface {
	Stop(ctx context.Context) error
}

// UnloadHook registers OnUnload for the UNLOADED phase, which fires while the
// module is being unloaded.
type UnloadHook interface {
	OnUnload(ctx context.Context) error
}

// HookFailure records a hook that returned an error or panicked.
type HookFailure struct {
	Hook  string
	Phase State
	Err   error
}

func (f HookFailure) Error() string {
	return fmt.Sprintf("hook %s (%s) failed: %v", f.Hook, f.Phase, f.Err)
}

func (f HookFailure) Unwrap() error { return f.Err }

// HookRegistry holds the hooks of one module instance grouped by phase.
// It is built once and not modified afterwards.
type HookRegistry struct {
	hooks map[State][]Hook
}

// NewHookRegistry scans instance for hooks.
func NewHookRegistry(instance any) *HookRegistry {
	r := &HookRegistry{hooks: make(map[State][]Hook)}
	if instance == nil {
		return r
	}

	if hp, ok := instance.(HookProvider); ok {
		for _, h := range hp.LifecycleHooks() {
			r.add(h)
		}
	}
	typeName := fmt.Sprintf("%T", instance)
	if h, ok := instance.(LoadHook); ok {
		r.add(Hook{Name: typeName + ".OnLoad", Phase: StateLoaded, Order: DefaultHookOrder, Fn: h.OnLoad})
	}
	if h, ok := instance.(Startable); ok {
		r.add(Hook{Name: typeName + ".Start", Phase: StateStarted, Order: DefaultHookOrder, Fn: h.Start})
	}
	if h, ok := instance.(Stoppable); ok {
		r.add(Hook{Name: typeName + ".Stop", Phase: StateStopped, Order: DefaultHookOrder, Fn: h.Stop})
	}
	if h, ok := instance.(UnloadHook); ok {
		r.add(Hook{Name: typeName + ".OnUnload", Phase: StateUnloaded, Order: DefaultHookOrder, Fn: h.OnUnload})
	}

	for phase, hooks := range r.hooks {
		sort.Slice(hooks, func(i, j int) bool { return hooks[i].Order > hooks[j].Order })
		r.hooks[phase] = hooks
	}
	return r
}

func (r *HookRegistry) add(h Hook) {
	if h.Fn == nil {
		return
	}
	if h.Name == "" {
		h.Name = fmt.Sprintf("%s#%d", h.Phase, len(r.hooks[h.Phase]))
	}
	r.hooks[h.Phase] = append(r.hooks[h.Phase], h)
}

// Hooks returns the hooks of phase in firing order.
func (r *HookRegistry) Hooks(phase State) []Hook {
	return slices.Clone(r.hooks[phase])
}

// Len returns the number of registered hooks over all phases.
func (r *HookRegistry) Len() int {
	n := 0
	for _, hooks := range r.hooks {
		n += len(hooks)
	}
	return n
}

// Fire runs every hook of phase. A hook that errors or panics is logged and
// reported; the remaining hooks still run. UNUSABLE hooks are never fired.
func (r *HookRegistry) Fire(ctx context.Context, phase State, logger Logger, attrs ...any) []HookFailure {
	if phase == StateUnusable {
		return nil
	}
	var failures []HookFailure
	for _, h := range r.hooks[phase] {
		if err := runHook(ctx, h); err != nil {
			failures = append(failures, HookFailure{Hook: h.Name, Phase: phase, Err: err})
			if logger != nil {
				logger.Error("Lifecycle hook failed", slices.Concat(attrs, []any{"hook", h.Name, "phase", phase.String(), "error", err})...)
			}
		}
	}
	return failures
}

func runHook(ctx context.Context, h Hook) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h.Fn(ctx)
}
