package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type MailProducer struct {
	client     *redis.Client
	streamName string
	maxLen     int64
}

func NewMailProducer(client *redis.Client, streamName string) *MailProducer {
	return &MailProducer{
		client:     client,
		streamName: streamName,
		maxLen:     10000,
	}
}

func (p *MailProducer) Publish(ctx context.Context, job *MailJob) error {
	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName,
		MaxLen: p.maxLen,
		Approx: true,
		Values: job.fields(),
	})

	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish mail job: %w", err)
	}

	job.ID = result.Val()
	return nil
}

func (p *MailProducer) StreamLength(ctx context.Context) (int64, error) {
	result := p.client.XLen(ctx, p.streamName)
	return result.Val(), result.Err()
}
