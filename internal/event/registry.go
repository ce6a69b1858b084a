package event

import (
	"strings"
	"sync"
)

// Model is one registered event shape: a dotted path and a constructor that
// attempts to build the shape from a normalized payload.
type Model struct {
	Path  string
	Parse func(data map[string]any) (Event, error)
}

// Registry maps dotted paths to event models. It is an explicit dependency
// of the resolver, constructed at startup from the built-in models plus any
// external registrations.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewRegistry creates a registry holding the given models.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{
		models: make(map[string]Model, len(models)),
	}
	for _, m := range models {
		r.models[m.Path] = m
	}
	return r
}

// Register adds a model. Registering at an already-used path silently
// overwrites the previous model.
func (r *Registry) Register(m Model) {
	r.mu.Lock()
	r.models[m.Path] = m
	r.mu.Unlock()
}

// Lookup returns every model whose path is a prefix of (or equal to) the
// queried dotted path, most-specific-first.
func (r *Registry) Lookup(path string) []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := strings.Split(path, ".")
	models := make([]Model, 0, len(segments))
	for i := len(segments); i >= 1; i-- {
		if m, ok := r.models[strings.Join(segments[:i], ".")]; ok {
			models = append(models, m)
		}
	}
	return models
}

// BuiltinModels returns the static model set every bridge starts with.
func BuiltinModels() []Model {
	return []Model{
		{Path: "meta_event.lifecycle", Parse: parseShape[MetaEvent](nil)},
		{Path: "meta_event.heartbeat", Parse: parseShape[MetaEvent](nil)},
		{Path: "message", Parse: parseShape((*MessageEvent).validate)},
		{Path: "message.private", Parse: parseShape((*PrivateMessageEvent).validate)},
		{Path: "message.group", Parse: parseShape((*ChannelMessageEvent).validate)},
		{Path: "notice", Parse: parseShape((*NoticeEvent).validate)},
	}
}

// parseShape builds a Model parse function for a concrete shape: decode the
// normalized payload into it, then run its validator.
func parseShape[T any](validate func(*T) error) func(map[string]any) (Event, error) {
	return func(data map[string]any) (Event, error) {
		var shape T
		if err := decodeInto(data, &shape); err != nil {
			return nil, err
		}
		if validate != nil {
			if err := validate(&shape); err != nil {
				return nil, err
			}
		}
		return any(&shape).(Event), nil
	}
}
