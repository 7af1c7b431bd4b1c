package linkverify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/config"
	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
)

// verifyAPI is the slice of Client the controller needs.
type verifyAPI interface {
	Generate(ctx context.Context, channel models.ChannelID) (*Issued, error)
	Status(ctx context.Context, nonce string) (*StatusResult, error)
}

// Hooks are the controller's outbound notifications. Either may be nil.
type Hooks struct {
	// OnPending fires once a nonce is issued and the deep link is ready to
	// hand to the user.
	OnPending func(channel models.ChannelID, state State)
	// OnComplete fires exactly once per attempt when verification lands.
	OnComplete func(channel models.ChannelID, link LinkInfo)
}

// Controller drives one verification attempt per channel: it requests a
// nonce, polls the status endpoint at a fixed cadence, enforces a hard
// deadline anchored at the attempt's StartedAt, and persists every transition
// so a restarted agent resumes instead of starting over.
//
// Per channel there is at most one polling loop. A generation counter guards
// every transition: results from a loop that has been superseded by a retry
// or a new start are dropped rather than applied to the fresh attempt's slot.
type Controller struct {
	api   verifyAPI
	store *Store
	cfg   config.VerificationConfig
	hooks Hooks
	log   *zap.SugaredLogger

	mu     sync.Mutex
	states map[models.ChannelID]State
	gens   map[models.ChannelID]int
	stops  map[models.ChannelID]context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a Controller over the given API client and snapshot
// store.
func NewController(api verifyAPI, store *Store, cfg config.VerificationConfig, hooks Hooks, log *zap.SugaredLogger) *Controller {
	return &Controller{
		api:    api,
		store:  store,
		cfg:    cfg,
		hooks:  hooks,
		log:    log,
		states: make(map[models.ChannelID]State),
		gens:   make(map[models.ChannelID]int),
		stops:  make(map[models.ChannelID]context.CancelFunc),
	}
}

// StateOf returns the channel's current snapshot.
func (c *Controller) StateOf(channel models.ChannelID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[channel]
	if !ok {
		return NewIdle()
	}
	return state
}

// Start begins a verification attempt for the channel. Any loop already
// running for the channel is cancelled first.
func (c *Controller) Start(ctx context.Context, channel models.ChannelID) (State, error) {
	c.mu.Lock()
	c.cancelLocked(channel)
	gen := c.gens[channel]
	c.mu.Unlock()

	issued, err := c.api.Generate(ctx, channel)
	if err != nil {
		state := NewError(err.Error())
		c.commit(channel, gen, state)
		return state, err
	}

	pending := PendingInfo{
		Nonce:     issued.Nonce,
		DeepLink:  issued.DeepLink,
		Command:   issued.Command,
		StartedAt: time.Now().UTC(),
	}
	state := NewPending(pending)
	if !c.commit(channel, gen, state) {
		// A newer start or retry superseded this attempt while the nonce
		// request was in flight.
		return c.StateOf(channel), nil
	}
	c.spawn(ctx, channel, gen, pending)

	if c.hooks.OnPending != nil {
		c.hooks.OnPending(channel, state)
	}
	return state, nil
}

// Retry clears the channel's loop and persisted snapshot, then starts a
// fresh attempt.
func (c *Controller) Retry(ctx context.Context, channel models.ChannelID) (State, error) {
	c.mu.Lock()
	c.cancelLocked(channel)
	delete(c.states, channel)
	c.mu.Unlock()

	if err := c.store.Clear(channel); err != nil {
		return NewIdle(), err
	}
	return c.Start(ctx, channel)
}

// Resume rehydrates persisted snapshots. Terminal states come back verbatim;
// pending entries within the retention window restart their polling loop with
// the deadline recomputed from the stored StartedAt, so a reload never
// extends an attempt's effective lifetime.
func (c *Controller) Resume(ctx context.Context) error {
	snapshots, err := c.store.Load(time.Now().UTC(), c.cfg.ResumeBuffer)
	if err != nil {
		return err
	}

	for channel, state := range snapshots {
		c.mu.Lock()
		c.cancelLocked(channel)
		gen := c.gens[channel]
		c.states[channel] = state
		c.mu.Unlock()

		if state.Phase == PhasePending {
			c.spawn(ctx, channel, gen, *state.Pending)
		}
	}
	return nil
}

// Stop cancels every polling loop and waits for them to exit. Snapshots stay
// persisted for the next Resume.
func (c *Controller) Stop() {
	c.mu.Lock()
	for channel := range c.stops {
		c.cancelLocked(channel)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// cancelLocked invalidates the channel's running loop, if any, and bumps the
// generation so in-flight results from it are dropped.
func (c *Controller) cancelLocked(channel models.ChannelID) {
	if cancel, ok := c.stops[channel]; ok {
		cancel()
		delete(c.stops, channel)
	}
	c.gens[channel]++
}

// commit applies a transition if gen still owns the channel's slot. Terminal
// transitions tear the loop down; every applied state is persisted.
func (c *Controller) commit(channel models.ChannelID, gen int, state State) bool {
	c.mu.Lock()
	if c.gens[channel] != gen {
		c.mu.Unlock()
		return false
	}
	c.states[channel] = state
	if state.Terminal() {
		if cancel, ok := c.stops[channel]; ok {
			cancel()
			delete(c.stops, channel)
		}
	}
	c.mu.Unlock()

	if err := c.store.Save(channel, state); err != nil && c.log != nil {
		c.log.Errorw("failed to persist verification snapshot",
			"channel", channel,
			"phase", state.Phase,
			"error", err,
		)
	}
	return true
}

// spawn arms the channel's poll loop under the given generation.
func (c *Controller) spawn(ctx context.Context, channel models.ChannelID, gen int, pending PendingInfo) {
	loopCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.gens[channel] != gen {
		c.mu.Unlock()
		cancel()
		return
	}
	c.stops[channel] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(loopCtx, channel, gen, pending)
}

// run is the per-attempt polling loop: a fixed-cadence poll ticker racing a
// hard deadline anchored at the attempt's StartedAt. The deadline fires even
// while polls keep answering "pending".
func (c *Controller) run(ctx context.Context, channel models.ChannelID, gen int, pending PendingInfo) {
	defer c.wg.Done()

	deadline := pending.StartedAt.Add(c.cfg.NonceTTL)
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	expiry := time.NewTimer(remaining)
	defer expiry.Stop()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-expiry.C:
			c.commit(channel, gen, NewExpired(apperrors.ErrNonceExpired.Message))
			return

		case <-ticker.C:
			result, err := c.api.Status(ctx, pending.Nonce)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.commit(channel, gen, NewError(err.Error()))
				return
			}

			switch result.Outcome {
			case StatusDone:
				if result.Link == nil {
					c.commit(channel, gen, NewError("status response carried no link"))
					return
				}
				if c.commit(channel, gen, NewDone(*result.Link)) && c.hooks.OnComplete != nil {
					c.hooks.OnComplete(channel, *result.Link)
				}
				return
			case StatusExpired:
				c.commit(channel, gen, NewExpired(result.Message))
				return
			default:
				// Not resolved yet; next tick tries again.
			}
		}
	}
}
