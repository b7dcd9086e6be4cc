package fastview

import (
	"context"
	"errors"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder is a pattern for constructing one or more views that use a common view-model.
// The main responsibility for ViewBuilder is Build(): building views and wiring up chans/context.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel             // The source type of data, e.g. models.Frame
	viewModelFn func(DataModel) ViewModel    // Converts input data models to view models.
	builderFns  []ViewBuilderFunc[ViewModel] // The set of functions for building views.
	batchRate   time.Duration                // Window over which ele-updates are coalesced.
	done        <-chan struct{}              // Okay if nil
}

// DefaultBatchRate is the coalescing window used when WithBatchRate is not called.
const DefaultBatchRate = time.Millisecond * 20

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{
		batchRate: DefaultBatchRate,
	}
}

// WithModel creates a new channel derived from the passed function to convert
// items to the target view-model data type.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view from an input view-model channel and a 'done' channel for cleanup.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view to the list of views to build.
// They are returned in the same order as built when Build() is called.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// WithBatchRate sets the window within which redundant ele-updates are coalesced.
func (vb *ViewBuilder[DataModel, ViewModel]) WithBatchRate(
	rate time.Duration,
) *ViewBuilder[DataModel, ViewModel] {
	vb.batchRate = rate
	return vb
}

// WithContext ensures that all downstream channels are closed when context is cancelled.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// ErrNoViews is returned when Build() is called before the caller has added any views.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before  WithModel() has been called.
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Views is the result of a Build: the views, in the order added, and their
// ele-updates fanned into a single batched channel.
type Views struct {
	Components []ViewComponent
	Updates    <-chan []EleUpdate
}

// Build executes the stored builders, connecting the channels together and returning
// a single aggregated ele-update channel and all the views.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (*Views, error) {
	if len(vb.builderFns) == 0 {
		return nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.builderFns))
	views := &Views{}
	for i, build := range vb.builderFns {
		views.Components = append(views.Components, build(vb.done, vmChans[i]))
	}
	views.Updates = fanIn(vb.done, views.Components, vb.batchRate)
	return views, nil
}

// fanIn aggregates the views' ele-update channels into a single batched channel.
func fanIn(
	done <-chan struct{},
	views []ViewComponent,
	rate time.Duration,
) <-chan []EleUpdate {
	inputs := make([]<-chan []EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		rate)
}

// batchify batches within the passed time frame before sending, over-writing previously
// received values for the same ele-id. This ensures that redundant updates for the
// same ele-id are not sent, and only the latest values are sent. A batch is sent
// one rate period after its first update arrives.
func batchify(
	done <-chan struct{},
	source <-chan []EleUpdate,
	rate time.Duration,
) <-chan []EleUpdate {
	output := make(chan []EleUpdate)

	go func() {
		defer close(output)

		data := map[string]EleUpdate{}
		send := func() bool {
			select {
			case output <- slicedVals(data):
				data = map[string]EleUpdate{}
				return true
			case <-done:
				return false
			}
		}

		var flush <-chan time.Time
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					if len(data) > 0 {
						send()
					}
					return
				}
				// Intentionally overwrites pre-exisiting values for an ele-id within this batch's time frame.
				for _, update := range updates {
					data[update.EleId] = update
				}
				if flush == nil && len(data) > 0 {
					flush = time.After(rate)
				}
			case <-flush:
				flush = nil
				if !send() {
					return
				}
			}
		}
	}()

	return output
}

// returns the values of a map as a slice
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
