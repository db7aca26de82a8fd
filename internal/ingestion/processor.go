package ingestion

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/usecase/tracking"
)

const processTimeout = 10 * time.Second

var ErrProcessorStopped = errors.New("processor is stopped")

// Ingester stores a validated fix.
type Ingester interface {
	Ingest(ctx context.Context, req *tracking.IngestRequest) (*tracking.Ack, error)
}

// Processor fans queued fixes out to workers. Each device id hashes to one
// shard, so fixes of a device are ingested one at a time in arrival order
// while different devices proceed in parallel.
type Processor struct {
	ingester Ingester
	shards   []chan *tracking.IngestRequest

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	metrics *MetricsTracker
}

func NewProcessor(ingester Ingester, workerCount, bufferSize int) *Processor {
	if workerCount <= 0 {
		workerCount = 1
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}

	perShard := bufferSize / workerCount
	if perShard == 0 {
		perShard = 1
	}

	shards := make([]chan *tracking.IngestRequest, workerCount)
	for i := range shards {
		shards[i] = make(chan *tracking.IngestRequest, perShard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		ingester: ingester,
		shards:   shards,
		ctx:      ctx,
		cancel:   cancel,
		metrics:  NewMetricsTracker(),
	}
}

func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i, shard := range p.shards {
		p.wg.Add(1)
		go p.worker(i, shard)
	}

	logger.Info("Ingestion processor started", zap.Int("workers", len(p.shards)))
}

// Stop stops accepting messages, lets workers drain what is queued and
// waits for them.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, shard := range p.shards {
		close(shard)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	logger.Info("Ingestion processor stopped")
}

// Submit validates msg and queues it on its device shard. It never blocks:
// when the shard is full the message is dropped and counted.
func (p *Processor) Submit(msg *tracking.IngestRequest) error {
	p.metrics.Update(func(m *IngestMetrics) {
		m.MessagesReceived++
	})

	if err := ValidateLocationMessage(msg); err != nil {
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesInvalid++
		})
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrProcessorStopped
	}

	shard := p.shards[shardFor(msg.DeviceID, len(p.shards))]
	select {
	case shard <- msg:
		p.metrics.Update(func(m *IngestMetrics) {
			m.QueueDepth = p.queueDepth()
		})
		return nil
	default:
		logger.Warn("Ingestion shard full, dropping fix", zap.String("device_id", msg.DeviceID))
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesDropped++
		})
		return nil
	}
}

func (p *Processor) worker(id int, shard <-chan *tracking.IngestRequest) {
	defer p.wg.Done()

	log := logger.Named("ingestion").With(zap.Int("worker", id))
	log.Debug("Worker started")

	for msg := range shard {
		start := time.Now()

		ctx, cancel := context.WithTimeout(p.ctx, processTimeout)
		_, err := p.ingester.Ingest(ctx, msg)
		cancel()

		elapsed := time.Since(start)
		if err != nil {
			log.Warn("Failed to ingest fix",
				zap.String("device_id", msg.DeviceID),
				zap.Error(err),
			)
			p.metrics.Update(func(m *IngestMetrics) {
				m.MessagesFailed++
				m.QueueDepth = p.queueDepth()
			})
			continue
		}

		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesProcessed++
			m.LastProcessedAt = time.Now()
			m.QueueDepth = p.queueDepth()
			if m.AverageProcessingTime == 0 {
				m.AverageProcessingTime = elapsed
			} else {
				m.AverageProcessingTime = (m.AverageProcessingTime + elapsed) / 2
			}
		})
	}
}

func (p *Processor) queueDepth() int {
	depth := 0
	for _, shard := range p.shards {
		depth += len(shard)
	}
	return depth
}

func (p *Processor) GetMetrics() IngestMetrics {
	return p.metrics.Snapshot()
}

func shardFor(deviceID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(n))
}
