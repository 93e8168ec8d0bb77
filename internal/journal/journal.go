// Package journal appends session transitions (phase changes, accepted
// matches, connectivity) to Postgres. Writes happen on the recorder's own
// goroutine; the sink methods only enqueue.
package journal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mirakyux/micept/internal/engine"
)

const (
	queueSize    = 128
	writeTimeout = 5 * time.Second

	KindPhase        = "phase"
	KindAccepted     = "accepted"
	KindConnectivity = "connectivity"
)

var ErrNoDSN = errors.New("journal: empty database url")

// Transition is one journal row.
type Transition struct {
	ID         uint      `gorm:"primaryKey"`
	Kind       string    `gorm:"size:32;index;not null"`
	Phase      string    `gorm:"size:64"`
	Connected  bool      `gorm:"not null"`
	Message    string    `gorm:"size:256"`
	Summoner   string    `gorm:"size:128"`
	RecordedAt time.Time `gorm:"index;not null"`
}

func (Transition) TableName() string { return "session_transitions" }

// InsertFunc persists one row.
type InsertFunc func(ctx context.Context, t *Transition) error

type Recorder struct {
	insert InsertFunc
	logger *zap.Logger
	now    func() time.Time
	queue  chan Transition
	db     *gorm.DB

	// summoner is touched only by the sink callers, which are the
	// reconciliation goroutine.
	summoner string
}

// Open connects, migrates the table and returns a recorder writing to it.
func Open(dsn string, logger *zap.Logger) (*Recorder, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Transition{}); err != nil {
		return nil, multierr.Append(err, closeDB(db))
	}
	r := New(func(ctx context.Context, t *Transition) error {
		return db.WithContext(ctx).Create(t).Error
	}, logger)
	r.db = db
	return r, nil
}

// New builds a recorder around insert.
func New(insert InsertFunc, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		insert: insert,
		logger: logger,
		now:    time.Now,
		queue:  make(chan Transition, queueSize),
	}
}

// Run writes queued rows until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case t := <-r.queue:
			r.write(context.Background(), t)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case t := <-r.queue:
			r.write(context.Background(), t)
		default:
			return
		}
	}
}

func (r *Recorder) write(parent context.Context, t Transition) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()
	if err := r.insert(ctx, &t); err != nil {
		r.logger.Warn("journal write failed", zap.String("kind", t.Kind), zap.Error(err))
	}
}

// Close releases the database connection, if any.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return closeDB(r.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Recorder) enqueue(t Transition) {
	t.Summoner = r.summoner
	t.RecordedAt = r.now().UTC()
	select {
	case r.queue <- t:
	default:
		r.logger.Warn("journal queue full, transition dropped", zap.String("kind", t.Kind))
	}
}

func (r *Recorder) ConnectivityChanged(connected bool) {
	if !connected {
		r.summoner = ""
	}
	r.enqueue(Transition{Kind: KindConnectivity, Connected: connected})
}

func (r *Recorder) SummonerUpdated(s engine.Summoner) {
	r.summoner = s.DisplayName
}

func (r *Recorder) GameflowChanged(p engine.Phase) {
	r.enqueue(Transition{Kind: KindPhase, Phase: p.String(), Connected: true})
}

func (r *Recorder) MatchAccepted(message string) {
	r.enqueue(Transition{Kind: KindAccepted, Phase: engine.PhaseReadyCheck.String(), Connected: true, Message: message})
}
