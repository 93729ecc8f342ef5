package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/golocalevents/internal/domain"
	"example.com/golocalevents/internal/store"
)

// Importer is satisfied by *store.Store.
type Importer interface {
	Import(ctx context.Context, drafts []domain.Draft) (store.ImportResult, error)
}

// Ingestor batches bulk-submitted drafts so a large upload costs one
// write-through per batch instead of one per event.
type Ingestor struct {
	queue        chan domain.Draft
	importer     Importer
	batchMaxSize int
	batchMaxWait time.Duration
	log          *zap.Logger
	done         chan struct{}
}

func NewIngestor(importer Importer, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	if batchMaxSize < 1 {
		batchMaxSize = 1
	}
	return &Ingestor{
		queue:        make(chan domain.Draft, queueMaxSize),
		importer:     importer,
		batchMaxSize: batchMaxSize,
		batchMaxWait: batchMaxWait,
		log:          log,
		done:         make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled; the pending batch is
// flushed on the way out.
func (ig *Ingestor) Start(ctx context.Context) {
	go func() {
		defer close(ig.done)

		batch := make([]domain.Draft, 0, ig.batchMaxSize)
		t := time.NewTimer(ig.batchMaxWait)
		defer t.Stop()

		resetTimer := func() {
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(ig.batchMaxWait)
		}

		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				resetTimer()
				return
			}
			res, err := ig.importer.Import(ctx, batch)
			if err != nil {
				ig.log.Error("batch import failed", zap.Error(err), zap.Int("dropped", len(batch)))
			} else {
				ig.log.Info("batch import ok",
					zap.Int("created", len(res.Created)),
					zap.Int("skipped", res.Skipped),
					zap.Int("invalid", res.Invalid),
					zap.Int("size", len(batch)))
			}
			batch = batch[:0]
			resetTimer()
		}

		for {
			select {
			case <-ctx.Done():
				// drain what was already accepted
				bg := context.WithoutCancel(ctx)
			drain:
				for {
					select {
					case d := <-ig.queue:
						batch = append(batch, d)
						if len(batch) >= ig.batchMaxSize {
							flush(bg)
						}
					default:
						break drain
					}
				}
				flush(bg)
				return
			case d := <-ig.queue:
				batch = append(batch, d)
				if len(batch) >= ig.batchMaxSize {
					flush(ctx)
				}
			case <-t.C:
				flush(ctx)
			}
		}
	}()
}

// Enqueue never blocks; false means the queue is full.
func (ig *Ingestor) Enqueue(d domain.Draft) bool {
	select {
	case ig.queue <- d:
		return true
	default:
		return false
	}
}

// Wait blocks until the flush loop has exited.
func (ig *Ingestor) Wait() {
	<-ig.done
}
