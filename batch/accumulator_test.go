package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abbas701/Surveillance-robot/telemetry"
)

// fakeInserter records flushed batches and can be made slow or failing
type fakeInserter struct {
	mu      sync.Mutex
	batches [][]telemetry.Row
	err     error
	block   chan struct{} // when set, InsertRows waits for a receive
	entered chan struct{} // signalled when InsertRows begins
}

func (f *fakeInserter) InsertRows(_ context.Context, rows []telemetry.Row) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, rows)
	return nil
}

func (f *fakeInserter) flushed() [][]telemetry.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]telemetry.Row, len(f.batches))
	copy(out, f.batches)
	return out
}

func rowWith(accelX float64) telemetry.Row {
	return telemetry.Row{AccelX: &accelX, Timestamp: time.Now().UTC()}
}

func TestOfferFlushesAtMaxSize(t *testing.T) {
	ins := &fakeInserter{}
	a := New(ins, 10, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 9; i++ {
		a.Offer(ctx, rowWith(float64(i)))
	}
	assert.Empty(t, ins.flushed())
	assert.Equal(t, 9, a.Len())

	// The 10th offer triggers exactly one synchronous flush
	a.Offer(ctx, rowWith(10))
	batches := ins.flushed()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 10)
	assert.Equal(t, 0, a.Len())
}

func TestFlushPreservesOfferOrder(t *testing.T) {
	ins := &fakeInserter{}
	a := New(ins, 5, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		a.Offer(ctx, rowWith(float64(i)))
	}

	batches := ins.flushed()
	require.Len(t, batches, 1)
	for i, row := range batches[0] {
		require.NotNil(t, row.AccelX)
		assert.Equal(t, float64(i+1), *row.AccelX)
	}
}

func TestTimerFlushesPartialBatch(t *testing.T) {
	ins := &fakeInserter{}
	a := New(ins, 100, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	a.Offer(ctx, rowWith(1))
	a.Offer(ctx, rowWith(2))
	a.Offer(ctx, rowWith(3))

	require.Eventually(t, func() bool {
		return len(ins.flushed()) == 1
	}, time.Second, 5*time.Millisecond)

	batches := ins.flushed()
	assert.Len(t, batches[0], 3)
	assert.Equal(t, 0, a.Len())

	// No further flushes while the buffer stays empty
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, ins.flushed(), 1)
}

func TestOffersDuringInFlightFlushGoToNextBatch(t *testing.T) {
	ins := &fakeInserter{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	a := New(ins, 3, time.Hour)
	ctx := context.Background()

	a.Offer(ctx, rowWith(1))
	a.Offer(ctx, rowWith(2))

	// This offer fills the batch and blocks inside the store round trip
	flushDone := make(chan struct{})
	go func() {
		a.Offer(ctx, rowWith(3))
		close(flushDone)
	}()
	<-ins.entered

	// Offers during the in-flight flush are accepted without blocking
	a.Offer(ctx, rowWith(4))
	a.Offer(ctx, rowWith(5))
	assert.Equal(t, 2, a.Len())

	close(ins.block)
	<-flushDone

	batches := ins.flushed()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 3)
	assert.Equal(t, 3.0, *batches[0][2].AccelX)

	// The late offers appear in the next flush, not the first, not lost
	a.Offer(ctx, rowWith(6))
	batches = ins.flushed()
	require.Len(t, batches, 2)
	require.Len(t, batches[1], 3)
	assert.Equal(t, 4.0, *batches[1][0].AccelX)
	assert.Equal(t, 6.0, *batches[1][2].AccelX)
}

func TestFailedFlushDropsBatch(t *testing.T) {
	boom := errors.New("store down")
	ins := &fakeInserter{err: boom}

	var droppedRows int
	var droppedErr error
	a := New(ins, 2, time.Hour, WithDropHook(func(n int, err error) {
		droppedRows = n
		droppedErr = err
	}))
	ctx := context.Background()

	a.Offer(ctx, rowWith(1))
	a.Offer(ctx, rowWith(2))

	// Batch dropped: buffer empty, nothing recorded, hook informed
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, ins.flushed())
	assert.Equal(t, 2, droppedRows)
	assert.ErrorIs(t, droppedErr, boom)

	// The pipeline keeps accepting rows afterwards
	ins.mu.Lock()
	ins.err = nil
	ins.mu.Unlock()
	a.Offer(ctx, rowWith(3))
	a.Offer(ctx, rowWith(4))
	require.Len(t, ins.flushed(), 1)
}

func TestFlushEmptyIsNoop(t *testing.T) {
	ins := &fakeInserter{}
	a := New(ins, 10, time.Hour)
	a.Flush(context.Background())
	assert.Empty(t, ins.flushed())
}

func TestTickerStopsOnCancel(t *testing.T) {
	ins := &fakeInserter{}
	a := New(ins, 10, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	cancel()
	assert.True(t, a.Wait(time.Second))

	// No flush after shutdown even with pending rows
	a.Offer(context.Background(), rowWith(1))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, ins.flushed())
	assert.Equal(t, 1, a.Len())
}

func TestConcurrentOffers(t *testing.T) {
	ins := &fakeInserter{}
	a := New(ins, 10, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	const writers = 4
	const perWriter = 250
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				a.Offer(ctx, rowWith(1))
			}
		}()
	}
	wg.Wait()
	a.Flush(ctx)

	total := 0
	for _, b := range ins.flushed() {
		total += len(b)
	}
	assert.Equal(t, writers*perWriter, total)
	assert.Equal(t, 0, a.Len())
}
