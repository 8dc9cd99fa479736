package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aegisgate/identityd/internal/domain/audit"
	"go.uber.org/goleak"
)

// mockSlowAuditStore simulates a slow backend for testing backpressure.
type mockSlowAuditStore struct {
	delay time.Duration
}

func (m *mockSlowAuditStore) Append(_ context.Context, _ ...audit.AuditRecord) error {
	time.Sleep(m.delay)
	return nil
}
func (m *mockSlowAuditStore) Recent(int) []audit.AuditRecord { return nil }
func (m *mockSlowAuditStore) Flush(context.Context) error    { return nil }
func (m *mockSlowAuditStore) Close() error                   { return nil }

func TestAuditService_OverflowWithTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	slowStore := &mockSlowAuditStore{delay: 50 * time.Millisecond}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewAuditService(slowStore, logger,
		WithChannelSize(2),
		WithSendTimeout(10*time.Millisecond),
		WithBatchSize(1),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	for i := 0; i < 10; i++ {
		svc.Record(audit.AuditRecord{
			CorrelationID: fmt.Sprintf("corr_%d", i),
			Timestamp:     time.Now(),
		})
	}

	time.Sleep(150 * time.Millisecond)

	if drops := svc.DroppedRecords(); drops == 0 {
		t.Error("expected some records to be dropped due to timeout")
	}

	if capacity := svc.ChannelCapacity(); capacity != 2 {
		t.Errorf("expected capacity=2, got %d", capacity)
	}

	cancel()
	svc.Stop()
}

func TestAuditService_ChannelDepthWarning(t *testing.T) {
	defer goleak.VerifyNone(t)

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	slowStore := &mockSlowAuditStore{delay: 100 * time.Millisecond}

	svc := NewAuditService(slowStore, logger,
		WithChannelSize(10),
		WithWarningThreshold(80),
		WithSendTimeout(0),
	)

	for i := 0; i < 9; i++ {
		select {
		case svc.auditChan <- audit.AuditRecord{CorrelationID: fmt.Sprintf("corr_%d", i)}:
		default:
			t.Fatalf("channel unexpectedly full at %d", i)
		}
	}

	svc.Record(audit.AuditRecord{CorrelationID: "trigger"})

	if !strings.Contains(logBuf.String(), "approaching capacity") {
		t.Errorf("expected warning log about channel capacity, got: %s", logBuf.String())
	}

	close(svc.auditChan)
	for range svc.auditChan {
	}
}

func TestAuditService_DroppedRecordsCounter(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slowStore := &mockSlowAuditStore{delay: 500 * time.Millisecond}

	svc := NewAuditService(slowStore, logger,
		WithChannelSize(1),
		WithSendTimeout(0),
		WithBatchSize(1),
	)

	if drops := svc.DroppedRecords(); drops != 0 {
		t.Errorf("expected 0 initial drops, got %d", drops)
	}

	select {
	case svc.auditChan <- audit.AuditRecord{CorrelationID: "fill"}:
	default:
		t.Fatal("failed to fill channel")
	}

	svc.Record(audit.AuditRecord{CorrelationID: "drop1"})
	svc.Record(audit.AuditRecord{CorrelationID: "drop2"})
	svc.Record(audit.AuditRecord{CorrelationID: "drop3"})

	if drops := svc.DroppedRecords(); drops != 3 {
		t.Errorf("expected 3 drops, got %d", drops)
	}

	close(svc.auditChan)
	for range svc.auditChan {
	}
}

func TestAuditService_NoDropWithSufficientBuffer(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slowStore := &mockSlowAuditStore{delay: 10 * time.Millisecond}

	svc := NewAuditService(slowStore, logger,
		WithChannelSize(100),
		WithSendTimeout(100*time.Millisecond),
		WithBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	for i := 0; i < 50; i++ {
		svc.Record(audit.AuditRecord{
			CorrelationID: fmt.Sprintf("corr_%d", i),
			Timestamp:     time.Now(),
		})
	}

	time.Sleep(200 * time.Millisecond)

	if drops := svc.DroppedRecords(); drops != 0 {
		t.Errorf("expected 0 drops with large buffer, got %d", drops)
	}

	cancel()
	svc.Stop()
}

// mockTrackingStore tracks Append calls, counting each as a flush.
type mockTrackingStore struct {
	onAppend func()
}

func (m *mockTrackingStore) Append(_ context.Context, _ ...audit.AuditRecord) error {
	if m.onAppend != nil {
		m.onAppend()
	}
	return nil
}
func (m *mockTrackingStore) Recent(int) []audit.AuditRecord { return nil }
func (m *mockTrackingStore) Flush(context.Context) error    { return nil }
func (m *mockTrackingStore) Close() error                   { return nil }

func TestAuditService_FlushesOnBatchSize(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var flushCount int
	store := &mockTrackingStore{onAppend: func() {
		mu.Lock()
		flushCount++
		mu.Unlock()
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAuditService(store, logger,
		WithChannelSize(20),
		WithBatchSize(5),
		WithFlushInterval(10*time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	for i := 0; i < 5; i++ {
		svc.Record(audit.AuditRecord{CorrelationID: fmt.Sprintf("corr_%d", i)})
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	count := flushCount
	mu.Unlock()
	if count == 0 {
		t.Error("expected a flush once batchSize records were recorded")
	}

	cancel()
	svc.Stop()
}

func TestAuditService_FlushesOnTicker(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var flushCount int
	store := &mockTrackingStore{onAppend: func() {
		mu.Lock()
		flushCount++
		mu.Unlock()
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAuditService(store, logger,
		WithChannelSize(20),
		WithBatchSize(100),
		WithFlushInterval(20*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	svc.Record(audit.AuditRecord{CorrelationID: "only-one"})
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	count := flushCount
	mu.Unlock()
	if count == 0 {
		t.Error("expected the flush ticker to flush the pending record")
	}

	cancel()
	svc.Stop()
}

func TestAuditService_StopFlushesPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var flushedRecords int
	store := &mockTrackingStore{onAppend: func() {
		mu.Lock()
		flushedRecords++
		mu.Unlock()
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAuditService(store, logger,
		WithChannelSize(20),
		WithBatchSize(100),
		WithFlushInterval(10*time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	svc.Record(audit.AuditRecord{CorrelationID: "pending"})
	svc.Stop()

	mu.Lock()
	count := flushedRecords
	mu.Unlock()
	if count == 0 {
		t.Error("expected Stop to flush pending records before returning")
	}
}

func TestAuditService_DropCounterConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slowStore := &mockSlowAuditStore{delay: time.Second}

	svc := NewAuditService(slowStore, logger,
		WithChannelSize(1),
		WithSendTimeout(0),
		WithBatchSize(1),
	)

	select {
	case svc.auditChan <- audit.AuditRecord{CorrelationID: "fill"}:
	default:
		t.Fatal("failed to fill channel")
	}

	const goroutines = 10
	const dropsPerGoroutine = 100
	expectedTotal := goroutines * dropsPerGoroutine

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < dropsPerGoroutine; j++ {
				svc.Record(audit.AuditRecord{CorrelationID: fmt.Sprintf("drop_%d_%d", id, j)})
			}
		}(i)
	}
	wg.Wait()

	if drops := svc.DroppedRecords(); drops != int64(expectedTotal) {
		t.Errorf("expected %d concurrent drops, got %d", expectedTotal, drops)
	}

	close(svc.auditChan)
	for range svc.auditChan {
	}
}
