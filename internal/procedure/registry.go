package procedure

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
)

// Factory constructs a fresh procedure instance from decoded arguments.
type Factory func() Procedure

// Entry describes a registered procedure without instantiating it.
type Entry struct {
	Name        string
	Description string
	// NeedsHardware marks procedures that require a connected
	// controller to run.
	NeedsHardware bool
}

type registration struct {
	entry   Entry
	factory Factory
}

// Registry manages the set of known procedures.
type Registry struct {
	mu         sync.RWMutex
	procedures map[string]registration
}

// NewRegistry creates an empty procedure registry.
func NewRegistry() *Registry {
	return &Registry{
		procedures: make(map[string]registration),
	}
}

// Register adds a procedure under entry.Name.
// A procedure with the same name is replaced.
func (r *Registry) Register(entry Entry, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procedures[entry.Name] = registration{entry: entry, factory: factory}
}

// Entries returns metadata for all registered procedures, sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.procedures))
	for _, reg := range r.procedures {
		entries = append(entries, reg.entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Lookup returns the metadata for a single procedure.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.procedures[name]
	return reg.entry, ok
}

// Build instantiates a procedure and decodes args into its fields.
// Unknown argument keys are rejected so typos surface before hardware
// is touched.
func (r *Registry) Build(name string, args map[string]interface{}) (Procedure, error) {
	r.mu.RLock()
	reg, ok := r.procedures[name]
	r.mu.RUnlock()
	if !ok {
		return nil, qcerrors.WithSuggestion(qcerrors.ErrNotFound,
			fmt.Sprintf("unknown procedure: %s", name),
			"run 'qcman procedures' to list available procedures")
	}

	proc := reg.factory()
	if len(args) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           proc,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build argument decoder: %w", err)
		}
		if err := dec.Decode(args); err != nil {
			qerr := qcerrors.Wrap(err, qcerrors.ErrProcedure,
				fmt.Sprintf("invalid arguments for procedure %s", name))
			qerr.Suggestion = "check the argument names and types with 'qcman procedures'"
			return nil, qerr
		}
	}
	return proc, nil
}
