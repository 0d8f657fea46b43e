// Package realtime fans investment index changes out to every API instance
// over Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/greenfina/greenfina/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const Channel = "investment:index"

type Publisher interface {
	Publish(ctx context.Context, index domain.InvestmentIndex) error
}

type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.InvestmentIndex, error)
}

type Feed struct {
	client redis.UniversalClient
	log    *zap.Logger
}

func NewFeed(client redis.UniversalClient, log *zap.Logger) *Feed {
	return &Feed{client: client, log: log}
}

func Encode(index domain.InvestmentIndex) ([]byte, error) {
	return json.Marshal(index)
}

func Decode(payload string) (domain.InvestmentIndex, error) {
	var index domain.InvestmentIndex
	if err := json.Unmarshal([]byte(payload), &index); err != nil {
		return domain.InvestmentIndex{}, fmt.Errorf("decode index update: %w", err)
	}
	return index, nil
}

func (f *Feed) Publish(ctx context.Context, index domain.InvestmentIndex) error {
	payload, err := Encode(index)
	if err != nil {
		return err
	}

	receivers, err := f.client.Publish(ctx, Channel, payload).Result()
	if err != nil {
		f.log.Error("Failed to publish index update", zap.String("index", index.Name), zap.Error(err))
		return fmt.Errorf("publish index update: %w", err)
	}

	f.log.Debug("Index update published",
		zap.String("index", index.Name),
		zap.Float64("value", index.Value),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Subscribe streams updates until ctx is done. The returned channel is
// closed when the subscription ends.
func (f *Feed) Subscribe(ctx context.Context) (<-chan domain.InvestmentIndex, error) {
	ps := f.client.Subscribe(ctx, Channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", Channel, err)
	}

	out := make(chan domain.InvestmentIndex, 8)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				index, err := Decode(msg.Payload)
				if err != nil {
					f.log.Warn("Dropping malformed index update", zap.Error(err))
					continue
				}
				select {
				case out <- index:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
