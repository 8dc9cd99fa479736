package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aegisgate/identityd/internal/domain/audit"
)

// AuditService provides async audit logging with a buffered channel and
// background worker, so emitting a decision record never adds latency to the
// evaluation path.
type AuditService struct {
	store         audit.AuditStore
	auditChan     chan audit.AuditRecord
	done          chan struct{}
	wg            sync.WaitGroup
	stopOnce      sync.Once
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	channelSize int
	sendTimeout time.Duration
	dropCount   atomic.Int64

	warningThreshold int
	lastWarning      atomic.Int64
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AuditOption {
	return func(s *AuditService) { s.batchSize = size }
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) { s.flushInterval = interval }
}

// WithChannelSize sets the size of the audit channel buffer.
func WithChannelSize(size int) AuditOption {
	return func(s *AuditService) {
		s.auditChan = make(chan audit.AuditRecord, size)
		s.channelSize = size
	}
}

// WithSendTimeout sets the backpressure timeout: 0 drops immediately on a
// full channel, >0 blocks up to this duration before dropping.
func WithSendTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) { s.sendTimeout = timeout }
}

// WithWarningThreshold sets the channel depth warning percentage (0-100).
func WithWarningThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.warningThreshold = percent
	}
}

// NewAuditService creates an AuditService over the given store.
func NewAuditService(store audit.AuditStore, logger *slog.Logger, opts ...AuditOption) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	defaultChannelSize := 1000
	s := &AuditService{
		store:            store,
		auditChan:        make(chan audit.AuditRecord, defaultChannelSize),
		done:             make(chan struct{}),
		logger:           logger,
		batchSize:        100,
		flushInterval:    time.Second,
		channelSize:      defaultChannelSize,
		sendTimeout:      100 * time.Millisecond,
		warningThreshold: 80,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the background worker that batches and writes audit records.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record enqueues an audit record. Fast path is non-blocking; a full channel
// blocks up to sendTimeout before the record is dropped and counted. Record
// must never be called for a cancelled evaluation.
func (s *AuditService) Record(record audit.AuditRecord) {
	if s.warningThreshold > 0 {
		depth := len(s.auditChan)
		threshold := s.channelSize * s.warningThreshold / 100
		if depth >= threshold {
			s.warnChannelDepth(depth)
		}
	}

	select {
	case s.auditChan <- record:
		return
	default:
	}

	if s.sendTimeout <= 0 {
		s.recordDrop(record)
		return
	}

	select {
	case s.auditChan <- record:
		return
	case <-time.After(s.sendTimeout):
		s.recordDrop(record)
	}
}

func (s *AuditService) recordDrop(record audit.AuditRecord) {
	drops := s.dropCount.Add(1)
	s.logger.Warn("audit record dropped",
		"correlation_id", record.CorrelationID,
		"decision", record.Decision,
		"total_drops", drops,
	)
}

func (s *AuditService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()
	if now-last < int64(time.Second) {
		return
	}
	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("audit channel approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedRecords returns the total number of records dropped under backpressure.
func (s *AuditService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// ChannelDepth returns the current number of records buffered in the channel.
func (s *AuditService) ChannelDepth() int {
	return len(s.auditChan)
}

// ChannelCapacity returns the channel's buffer size.
func (s *AuditService) ChannelCapacity() int {
	return s.channelSize
}

// Stop signals the worker to stop and waits for it to finish, flushing any
// pending records first. Calling Stop more than once is safe.
func (s *AuditService) Stop() {
	s.stopOnce.Do(func() { close(s.auditChan) })
	s.wg.Wait()
}

func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.AuditRecord, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case record, ok := <-s.auditChan:
			if !ok {
				if len(batch) > 0 {
					flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					s.flush(flushCtx, batch)
					cancel()
				}
				return
			}
			batch = append(batch, record)
			if len(batch) >= s.batchSize {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			for record := range s.auditChan {
				batch = append(batch, record)
			}
			if len(batch) > 0 {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.flush(flushCtx, batch)
				cancel()
			}
			return
		}
	}
}

func (s *AuditService) flush(ctx context.Context, batch []audit.AuditRecord) {
	if err := s.store.Append(ctx, batch...); err != nil {
		s.logger.Error("failed to write audit batch", "error", err, "count", len(batch))
	}
}
