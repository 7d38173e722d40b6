package alertlog

import (
	"context"
	"time"

	"sparta-defense/internal/storage"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Record is emitted once per activated alert.
type Record struct {
	ID          string    `json:"id"`
	ServerID    string    `json:"server_id"`
	GuildName   string    `json:"guild_name"`
	RoleID      string    `json:"role_id"`
	InitiatorID string    `json:"initiator_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	AddAlertLog(ctx context.Context, log storage.AlertLog) error
}

// Notifier delivers a record downstream. Returning backoff.Permanent stops
// retries.
type Notifier func(ctx context.Context, record Record) error

type Logger struct {
	store      Store
	logger     *zap.Logger
	notify     Notifier
	retries    uint64
	newBackOff func() backoff.BackOff
	wg         conc.WaitGroup
}

func NewLogger(store Store, logger *zap.Logger, retries int) *Logger {
	return &Logger{
		store:   store,
		logger:  logger,
		retries: uint64(max(0, retries)),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

func (l *Logger) SetNotifier(notify Notifier) {
	l.notify = notify
}

// SetBackOff replaces the retry policy factory.
func (l *Logger) SetBackOff(factory func() backoff.BackOff) {
	l.newBackOff = factory
}

// Emit persists the record and hands it to the notifier in the background.
// It never blocks on delivery.
func (l *Logger) Emit(ctx context.Context, record Record) Record {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if l.store != nil {
		err := l.store.AddAlertLog(ctx, storage.AlertLog{
			ID:          record.ID,
			ServerID:    record.ServerID,
			GuildName:   record.GuildName,
			InitiatorID: record.InitiatorID,
			MemberCount: record.MemberCount,
			CreatedAt:   record.CreatedAt,
		})
		if err != nil {
			l.logger.Warn("alert log persist failed", zap.String("id", record.ID), zap.Error(err))
		}
	}

	l.logger.Info("alert",
		zap.String("id", record.ID),
		zap.String("server_id", record.ServerID),
		zap.String("guild", record.GuildName),
		zap.String("initiator_id", record.InitiatorID),
		zap.Int("member_count", record.MemberCount),
	)

	if l.notify != nil {
		deliverCtx := context.WithoutCancel(ctx)
		l.wg.Go(func() { l.deliver(deliverCtx, record) })
	}
	return record
}

// Wait blocks until every pending delivery has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) deliver(ctx context.Context, record Record) {
	attempt := 0
	operation := func() error {
		attempt++
		return l.notify(ctx, record)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(l.newBackOff(), l.retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		l.logger.Error("alert notification failed",
			zap.String("id", record.ID),
			zap.String("guild", record.GuildName),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}
}
