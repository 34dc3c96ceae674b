package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/crossarb/internal/matches"
)

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OpportunityMessage is the JSON value of one published opportunity.
type OpportunityMessage struct {
	RunID       string              `json:"run_id"`
	PairID      string              `json:"pair_id"`
	Rank        int                 `json:"rank"`
	ScannedAt   time.Time           `json:"scanned_at"`
	Opportunity matches.Opportunity `json:"opportunity"`
}

// PublishOpportunities writes one message per opportunity, keyed by pair id,
// in ranked order. Rank is 1-based.
func PublishOpportunities(ctx context.Context, writer Writer, runID string, ops []matches.Opportunity) error {
	if writer == nil || len(ops) == 0 {
		return nil
	}

	scanned := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(ops))
	for i := range ops {
		msg := OpportunityMessage{
			RunID:       runID,
			PairID:      ops[i].PairID(),
			Rank:        i + 1,
			ScannedAt:   scanned,
			Opportunity: ops[i],
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", msg.PairID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(msg.PairID), Value: payload})
	}
	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d opportunities: %w", len(msgs), err)
	}
	return nil
}

// DecodeOpportunity parses a message value written by PublishOpportunities.
func DecodeOpportunity(value []byte) (*OpportunityMessage, error) {
	var msg OpportunityMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return nil, fmt.Errorf("decode opportunity: %w", err)
	}
	if msg.PairID == "" {
		return nil, fmt.Errorf("decode opportunity: missing pair_id")
	}
	return &msg, nil
}
