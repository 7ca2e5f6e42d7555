// Package audit keeps an append-only log of computed predictions. Recording
// is best effort: it never blocks a request and never changes its result.
package audit

import (
	"context"
	"time"

	"github.com/dermrisk/backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entry is one logged prediction. It holds no patient identifier.
type Entry struct {
	ID               uuid.UUID              `json:"id"`
	ModelVersion     string                 `json:"model_version"`
	Observations     scoring.ObservationSet `json:"observations"`
	RiskScore        float64                `json:"risk_score"`
	FeaturesSelected int                    `json:"features_selected"`
	RiskLevel        string                 `json:"risk_level"`
	CreatedAt        time.Time              `json:"created_at"`
}

// NewEntry stamps an assessment with a fresh ID and the current time.
func NewEntry(modelVersion string, a scoring.Assessment) Entry {
	return Entry{
		ID:               uuid.New(),
		ModelVersion:     modelVersion,
		Observations:     a.Observations,
		RiskScore:        a.Score,
		FeaturesSelected: a.Selected,
		RiskLevel:        a.Band.Level,
		CreatedAt:        time.Now().UTC(),
	}
}

// Sink persists entries.
type Sink interface {
	InsertPrediction(ctx context.Context, e Entry) error
}

// Recorder accepts entries without blocking. Record reports false when the
// entry was dropped.
type Recorder interface {
	Record(e Entry) bool
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(Entry) bool { return true }

const drainTimeout = 5 * time.Second

// AsyncRecorder queues entries for a single background writer.
type AsyncRecorder struct {
	sink   Sink
	queue  chan Entry
	onDrop func()
}

// NewAsyncRecorder builds a recorder with room for buffer pending entries.
// onDrop, if not nil, is called each time an entry is dropped.
func NewAsyncRecorder(sink Sink, buffer int, onDrop func()) *AsyncRecorder {
	if buffer < 1 {
		buffer = 1
	}
	return &AsyncRecorder{
		sink:   sink,
		queue:  make(chan Entry, buffer),
		onDrop: onDrop,
	}
}

func (r *AsyncRecorder) Record(e Entry) bool {
	select {
	case r.queue <- e:
		return true
	default:
		log.Warn().Str("entry_id", e.ID.String()).Msg("[audit] queue full, dropping prediction")
		if r.onDrop != nil {
			r.onDrop()
		}
		return false
	}
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left with a short deadline. Write failures are logged, not returned.
func (r *AsyncRecorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(context.WithoutCancel(ctx), e)
		case <-ctx.Done():
			r.drain()
			return nil
		}
	}
}

func (r *AsyncRecorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-r.queue:
			r.write(ctx, e)
		default:
			return
		}
	}
}

func (r *AsyncRecorder) write(ctx context.Context, e Entry) {
	if err := r.sink.InsertPrediction(ctx, e); err != nil {
		log.Error().Err(err).Str("entry_id", e.ID.String()).Msg("[audit] failed to store prediction")
	}
}
