package orders

import "context"

type action func(ctx context.Context, e Event) error

type actionFactory struct {
	actions map[string]action
}

func newActionFactory(onCreated, onCanceled action) *actionFactory {
	return &actionFactory{
		actions: map[string]action{
			StatusCreated:  onCreated,
			StatusCanceled: onCanceled,
		},
	}
}

func (f *actionFactory) get(status string) (action, bool) {
	fn, ok := f.actions[status]
	return fn, ok
}
