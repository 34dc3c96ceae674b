package workers

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/crossarb/internal/kafka"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/queue"
)

// Handler processes one decoded opportunity message.
type Handler func(context.Context, *queue.OpportunityMessage) error

// Reader is the part of *kafka.Reader a worker needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

// Run starts workerCount consumers in one group and blocks until ctx ends.
func Run(ctx context.Context, brokers []string, topic, group string, workerCount int, handler Handler) {
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			reader := kafka.NewReader(brokers, topic, group)
			defer reader.Close()
			logging.Debugf("[worker %d] consuming %s", id, topic)
			Consume(ctx, reader, handler)
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
}

// Consume reads until ctx ends. Read, decode and handler errors are logged
// and skipped.
func Consume(ctx context.Context, reader Reader, handler Handler) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("[worker] read error: %v", err)
			continue
		}

		opp, err := queue.DecodeOpportunity(msg.Value)
		if err != nil {
			logging.Errorf("[worker] %v", err)
			continue
		}

		if handler != nil {
			if err := handler(ctx, opp); err != nil {
				logging.Errorf("[worker] handler error for pair %s: %v", opp.PairID, err)
			}
		}
	}
}
