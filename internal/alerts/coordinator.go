package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sparta-defense/internal/alertlog"
	"sparta-defense/internal/cooldown"
	"sparta-defense/internal/history"
	"sparta-defense/internal/panel"
	"sparta-defense/internal/presence"
	"sparta-defense/internal/registry"
	"sparta-defense/internal/stats"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownGuild = errors.New("unknown guild")

const platformTimeout = 30 * time.Second

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

type pendingRepublish struct {
	timer Timer
}

type Publisher interface {
	Upsert(ctx context.Context, serverID, channelID string, doc panel.Document) (panel.Published, error)
}

type Emitter interface {
	Emit(ctx context.Context, record alertlog.Record) alertlog.Record
}

type StatsSource interface {
	Compute(guild string, now time.Time) stats.Stats
}

type Options struct {
	ServerID         string
	PanelChannelID   string
	Cooldown         time.Duration
	RefreshInterval  time.Duration
	HistoryMax       int
	HistoryRetention time.Duration
}

// Deps are the collaborators of a Coordinator. Only Logger is required.
type Deps struct {
	Provider  presence.Provider
	Publisher Publisher
	Emitter   Emitter
	Stats     StatsSource
	Clock     Clock
	Logger    *zap.Logger
}

// Coordinator owns the alert state of one server: groups, cooldowns, history,
// member counts and the published panel.
type Coordinator struct {
	opts      Options
	clock     Clock
	logger    *zap.Logger
	cooldowns *cooldown.Manager
	history   *history.History
	stats     StatsSource
	provider  presence.Provider
	publisher Publisher
	emitter   Emitter

	groupsMu sync.RWMutex
	groups   []registry.Group

	countsMu    sync.RWMutex
	counts      map[string]int
	refreshedAt time.Time
	lastAttempt time.Time
	countsCalls singleflight.Group

	refreshSem *semaphore.Weighted
	publishMu  sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*pendingRepublish

	runMu  sync.Mutex
	cancel context.CancelFunc
	loop   *conc.WaitGroup
}

func New(opts Options, deps Deps) *Coordinator {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Minute
	}
	c := &Coordinator{
		opts:       opts,
		clock:      deps.Clock,
		logger:     deps.Logger,
		cooldowns:  cooldown.New(opts.Cooldown),
		history:    history.New(opts.HistoryMax, opts.HistoryRetention),
		provider:   deps.Provider,
		publisher:  deps.Publisher,
		emitter:    deps.Emitter,
		stats:      deps.Stats,
		counts:     make(map[string]int),
		timers:     make(map[string]*pendingRepublish),
		refreshSem: semaphore.NewWeighted(1),
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.stats == nil {
		c.stats = stats.New(c.history, c)
	}
	return c
}

// SetGroups replaces the alertable groups.
func (c *Coordinator) SetGroups(groups []registry.Group) {
	next := make([]registry.Group, len(groups))
	copy(next, groups)

	c.groupsMu.Lock()
	c.groups = next
	c.groupsMu.Unlock()
}

func (c *Coordinator) Groups() []registry.Group {
	c.groupsMu.RLock()
	defer c.groupsMu.RUnlock()
	out := make([]registry.Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// MemberCount returns the last known connected-member count of a guild.
func (c *Coordinator) MemberCount(guild string) int {
	c.countsMu.RLock()
	defer c.countsMu.RUnlock()
	return c.counts[guild]
}

func (c *Coordinator) Counts() map[string]int {
	c.countsMu.RLock()
	defer c.countsMu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for guild, count := range c.counts {
		out[guild] = count
	}
	return out
}

// Alert runs one alert request through the cooldown gate, records it,
// republishes the panel and emits the alert log. It never panics.
func (c *Coordinator) Alert(ctx context.Context, guildName, initiatorID string) Outcome {
	var out Outcome
	recovered := panics.Try(func() {
		out = c.alert(ctx, guildName, initiatorID)
	})
	if recovered != nil {
		err := recovered.AsError()
		c.logger.Error("alert request panicked", zap.String("guild", guildName), zap.String("initiator_id", initiatorID), zap.Error(err))
		return Outcome{Status: StatusInternalError, Err: err}
	}
	return out
}

func (c *Coordinator) alert(ctx context.Context, guildName, initiatorID string) Outcome {
	group, ok := registry.Find(c.Groups(), guildName)
	if !ok {
		return Outcome{Status: StatusUnknownGuild, Err: fmt.Errorf("%w: %q", ErrUnknownGuild, guildName)}
	}

	now := c.clock.Now()
	if remaining, ok := c.cooldowns.TryAcquire(group.Name, now); !ok {
		c.logger.Debug("alert on cooldown", zap.String("guild", group.Name), zap.Duration("remaining", remaining))
		return Outcome{Status: StatusCooldown, Group: group, Remaining: remaining}
	}

	c.history.Record(group.Name, initiatorID, now)
	c.refreshCounts(ctx, false)
	current := c.stats.Compute(group.Name, now)
	c.publish(ctx)
	c.scheduleRepublish(group.Name, c.cooldowns.Duration())

	record := alertlog.Record{
		ServerID:    c.opts.ServerID,
		GuildName:   group.Name,
		RoleID:      group.RoleID,
		InitiatorID: initiatorID,
		MemberCount: current.MemberCount,
		CreatedAt:   now,
	}
	if c.emitter != nil {
		record = c.emitter.Emit(ctx, record)
	}
	return Outcome{Status: StatusActivated, Group: group, Stats: current, Record: record}
}

// Refresh updates member counts, drops expired state and republishes the
// panel. It returns false without doing anything when another refresh is in
// progress. force bypasses the member-count freshness check.
func (c *Coordinator) Refresh(ctx context.Context, force bool) bool {
	if !c.refreshSem.TryAcquire(1) {
		c.logger.Debug("refresh skipped, previous one still running")
		return false
	}
	defer c.refreshSem.Release(1)

	c.refreshCounts(ctx, force)
	now := c.clock.Now()
	if swept := c.cooldowns.Sweep(now); swept > 0 {
		c.logger.Debug("cooldowns swept", zap.Int("count", swept))
	}
	c.history.Prune(now)
	c.publish(ctx)
	return true
}

// Run refreshes immediately and then on every tick until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	c.Refresh(ctx, true)

	ticker := time.NewTicker(c.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx, true)
		}
	}
}

// Start launches Run in the background. Calling Start twice is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loop = conc.NewWaitGroup()
	c.loop.Go(func() { c.Run(ctx) })
	c.logger.Info("alert loop started", zap.Duration("interval", c.opts.RefreshInterval))
}

// Stop cancels the loop and pending cooldown republishes, then waits for the
// loop to exit.
func (c *Coordinator) Stop() {
	c.cancelRepublishes()

	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.loop.Wait()
	c.cancel = nil
	c.loop = nil
	c.logger.Info("alert loop stopped")
}

// Snapshot renders the current state without publishing it.
func (c *Coordinator) Snapshot() panel.Document {
	return c.render(c.clock.Now())
}

func (c *Coordinator) refreshCounts(ctx context.Context, force bool) {
	if c.provider == nil {
		return
	}
	// failed attempts count too, so a broken provider is not hammered
	c.countsMu.RLock()
	fresh := !c.lastAttempt.IsZero() && c.clock.Now().Sub(c.lastAttempt) < c.opts.RefreshInterval
	c.countsMu.RUnlock()
	if fresh && !force {
		return
	}

	_, err, shared := c.countsCalls.Do("counts", func() (any, error) {
		c.countsMu.Lock()
		c.lastAttempt = c.clock.Now()
		c.countsMu.Unlock()

		// shared by every waiter, so it must not die with the first caller
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), platformTimeout)
		defer cancel()

		counts, err := c.provider.Refresh(callCtx, c.opts.ServerID, registry.Roles(c.Groups()))
		if err != nil {
			return nil, err
		}
		c.countsMu.Lock()
		c.counts = counts
		c.refreshedAt = c.clock.Now()
		c.countsMu.Unlock()
		return nil, nil
	})
	if err != nil {
		c.countsMu.RLock()
		lastSuccess := c.refreshedAt
		c.countsMu.RUnlock()
		c.logger.Warn("member count refresh failed, keeping previous counts",
			zap.Bool("shared", shared),
			zap.Time("last_success", lastSuccess),
			zap.Error(err),
		)
	}
}

// scheduleRepublish re-renders the panel once the guild's cooldown is over so
// its button is enabled again without waiting for the next tick.
func (c *Coordinator) scheduleRepublish(guild string, after time.Duration) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()

	if previous := c.timers[guild]; previous != nil {
		previous.timer.Stop()
	}
	entry := &pendingRepublish{}
	entry.timer = c.clock.AfterFunc(after, func() {
		c.timersMu.Lock()
		if c.timers[guild] == entry {
			delete(c.timers, guild)
		}
		c.timersMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), platformTimeout)
		defer cancel()
		c.logger.Debug("cooldown over, republishing panel", zap.String("guild", guild))
		c.publish(ctx)
	})
	c.timers[guild] = entry
}

func (c *Coordinator) cancelRepublishes() {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	for guild, entry := range c.timers {
		entry.timer.Stop()
		delete(c.timers, guild)
	}
}

func (c *Coordinator) publish(ctx context.Context) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	doc := c.render(c.clock.Now())
	if c.publisher == nil {
		return
	}
	if _, err := c.publisher.Upsert(ctx, c.opts.ServerID, c.opts.PanelChannelID, doc); err != nil {
		c.logger.Warn("panel publish failed", zap.String("server_id", c.opts.ServerID), zap.Error(err))
	}
}

func (c *Coordinator) render(now time.Time) panel.Document {
	groups := c.Groups()
	in := panel.Input{
		Groups:    groups,
		Counts:    c.Counts(),
		Stats:     make(map[string]stats.Stats, len(groups)),
		Cooldowns: make(map[string]time.Duration, len(groups)),
		Now:       now,
	}
	for _, group := range groups {
		var current stats.Stats
		if recovered := panics.Try(func() { current = c.stats.Compute(group.Name, now) }); recovered != nil {
			c.logger.Error("stats failed, rendering zero stats", zap.String("guild", group.Name), zap.Error(recovered.AsError()))
			current = stats.Stats{}
		}
		in.Stats[group.Name] = current
		in.Cooldowns[group.Name] = c.cooldowns.Remaining(group.Name, now)
	}
	return panel.Render(in)
}
