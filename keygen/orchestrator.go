package keygen

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/base-org/setup-key-generator/circuits"
)

// Store is the persistence surface the orchestrator needs: an idempotency
// probe and an atomic publish. Implemented by storage.ArtifactStore.
type Store interface {
	ExistsValid(ct circuits.CircuitType, formatVersion uint32) (bool, error)
	Persist(ct circuits.CircuitType, formatVersion uint32, pk, vk []byte, tag [16]byte) error
}

// Options tune a generation run. Zero values select the defaults.
type Options struct {
	// Force regenerates circuits whose artifacts are already valid.
	Force bool
	// MaxAttempts bounds synthesis attempts per circuit (default 3).
	MaxAttempts int
	// RetryBackoff is the wait before the first retry, doubling after
	// each transient failure (default 2s).
	RetryBackoff time.Duration
}

// Orchestrator runs the full pipeline for a set of catalog entries:
// skip-if-present, lease a device, synthesize with bounded retries,
// validate, persist atomically, and collect per-circuit outcomes. Per-circuit
// failures never abort the run; the summary tells the caller what is missing.
type Orchestrator struct {
	entries []*circuits.Metadata
	synth   Synthesizer
	store   Store
	devices *DevicePool
	opts    Options
}

func NewOrchestrator(entries []*circuits.Metadata, synth Synthesizer, store Store, devices *DevicePool, opts Options) *Orchestrator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	return &Orchestrator{
		entries: entries,
		synth:   synth,
		store:   store,
		devices: devices,
		opts:    opts,
	}
}

// Run processes every entry and returns one outcome per dispatched entry, in
// catalog order. Cancelling ctx stops new dispatches; in-flight circuits
// finish or abandon cleanly (the store's atomic publish guarantees no partial
// artifact either way) and still appear in the summary.
func (o *Orchestrator) Run(ctx context.Context) *RunSummary {
	index := make(map[circuits.CircuitType]int, len(o.entries))
	for i, m := range o.entries {
		index[m.Type] = i
	}

	var mu sync.Mutex
	outcomes := make([]Outcome, 0, len(o.entries))

	var g errgroup.Group
	g.SetLimit(o.devices.Size())
	for _, meta := range o.entries {
		if ctx.Err() != nil {
			log.Warn("Run cancelled, not dispatching remaining circuits", "next", meta.Type)
			break
		}
		meta := meta
		g.Go(func() error {
			out := o.processOne(ctx, meta)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Workers complete in wall-clock order; the summary is re-sorted into
	// catalog order so runs are diffable.
	sortOutcomes(outcomes, index)
	return &RunSummary{Outcomes: outcomes}
}

func (o *Orchestrator) processOne(ctx context.Context, meta *circuits.Metadata) Outcome {
	if !o.opts.Force {
		ok, err := o.store.ExistsValid(meta.Type, FormatVersion)
		if err != nil {
			log.Warn("Artifact probe failed, regenerating", "circuit", meta.Type, "error", err)
		} else if ok {
			log.Info("Valid artifact already present", "circuit", meta.Type)
			return Outcome{Circuit: meta.Type, Status: SkippedAlreadyPresent}
		}
	}

	device, err := o.devices.Acquire(ctx)
	if err != nil {
		return Outcome{Circuit: meta.Type, Status: Failed, Err: err}
	}
	defer o.devices.Release(device)

	km, err := o.synthesize(ctx, meta, device)
	if err != nil {
		log.Error("Synthesis failed", "circuit", meta.Type, "device", device, "error", err)
		return Outcome{Circuit: meta.Type, Status: Failed, Err: err}
	}

	if report := Validate(meta, km); !report.OK {
		log.Error("Validation failed", "circuit", meta.Type, "reason", report.Reason)
		return Outcome{Circuit: meta.Type, Status: Failed, Err: errors.New("validation failed: " + report.Reason)}
	}

	if err := o.store.Persist(meta.Type, FormatVersion, km.ProvingKey, km.VerifyingKey, km.PkTag); err != nil {
		log.Error("Persisting artifact failed", "circuit", meta.Type, "error", err)
		return Outcome{Circuit: meta.Type, Status: Failed, Err: err}
	}

	log.Info("Setup key generated", "circuit", meta.Type, "device", device)
	return Outcome{Circuit: meta.Type, Status: Generated}
}

// synthesize retries transient failures with doubling backoff. Fatal
// failures, validation problems and exhausted retries all end the circuit's
// attempt; they never end the run.
func (o *Orchestrator) synthesize(ctx context.Context, meta *circuits.Metadata, device DeviceHandle) (*KeyMaterial, error) {
	backoff := o.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		km, err := o.synth.Synthesize(ctx, meta, device)
		if err == nil {
			return km, nil
		}
		var transient *TransientError
		if !errors.As(err, &transient) || attempt >= o.opts.MaxAttempts {
			return nil, err
		}
		log.Warn("Transient synthesis failure, retrying", "circuit", meta.Type, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
}

func sortOutcomes(outcomes []Outcome, index map[circuits.CircuitType]int) {
	sort.Slice(outcomes, func(i, j int) bool {
		return index[outcomes[i].Circuit] < index[outcomes[j].Circuit]
	})
}
