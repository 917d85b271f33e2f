package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/events"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/mailer"
	"github.com/Varun5711/clubhouse/internal/redis"
	redislib "github.com/redis/go-redis/v9"
)

type worker struct {
	client *redislib.Client
	sender events.Sender
	cfg    config.MailerConfig
	log    *logger.Logger
}

func main() {
	log := logger.New("mailer-worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.NewRedisClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	m := mailer.NewMailer(cfg.SMTP, log)
	if m.LogOnly() {
		log.Warn("SMTP is not configured, mails are only logged")
	}

	w := &worker{
		client: redisClient.GetClient(),
		sender: m,
		cfg:    cfg.Mailer,
		log:    log,
	}

	err = w.client.XGroupCreateMkStream(ctx, w.cfg.StreamName, w.cfg.ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Fatal("Failed to create consumer group: %v", err)
	}

	log.Info("Consuming %s as %s/%s", w.cfg.StreamName, w.cfg.ConsumerGroup, w.cfg.ConsumerName)
	w.run(ctx)
	log.Info("Shutting down")
}

func (w *worker) run(ctx context.Context) {
	lastClaim := time.Time{}

	for ctx.Err() == nil {
		if time.Since(lastClaim) >= w.cfg.RetryIdle {
			w.retryPending(ctx)
			lastClaim = time.Now()
		}

		streams, err := w.client.XReadGroup(ctx, &redislib.XReadGroupArgs{
			Group:    w.cfg.ConsumerGroup,
			Consumer: w.cfg.ConsumerName,
			Streams:  []string{w.cfg.StreamName, ">"},
			Count:    int64(w.cfg.BatchSize),
			Block:    w.cfg.BlockTime,
		}).Result()

		if err != nil {
			if errors.Is(err, redislib.Nil) || ctx.Err() != nil {
				continue
			}
			w.log.Error("Failed to read from stream: %v", err)
			sleep(ctx, w.cfg.PollInterval)
			continue
		}

		for _, stream := range streams {
			w.handle(ctx, stream.Messages, nil)
		}
	}
}

// retryPending takes over messages that stayed unacknowledged for RetryIdle,
// including the ones this consumer failed to send.
func (w *worker) retryPending(ctx context.Context) {
	start := "0-0"
	for {
		messages, next, err := w.client.XAutoClaim(ctx, &redislib.XAutoClaimArgs{
			Stream:   w.cfg.StreamName,
			Group:    w.cfg.ConsumerGroup,
			Consumer: w.cfg.ConsumerName,
			MinIdle:  w.cfg.RetryIdle,
			Start:    start,
			Count:    int64(w.cfg.BatchSize),
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error("Failed to claim pending mails: %v", err)
			}
			return
		}

		if len(messages) > 0 {
			w.log.Info("Retrying %d pending mails", len(messages))
			w.handle(ctx, messages, w.deliveryCounts(ctx, messages))
		}

		if next == "0-0" || len(messages) == 0 {
			return
		}
		start = next
	}
}

// deliveryCounts reads how often each claimed message has been delivered.
func (w *worker) deliveryCounts(ctx context.Context, messages []redislib.XMessage) map[string]int64 {
	pending, err := w.client.XPendingExt(ctx, &redislib.XPendingExtArgs{
		Stream:   w.cfg.StreamName,
		Group:    w.cfg.ConsumerGroup,
		Start:    messages[0].ID,
		End:      messages[len(messages)-1].ID,
		Count:    int64(len(messages)),
		Consumer: w.cfg.ConsumerName,
	}).Result()
	if err != nil {
		w.log.Error("Failed to read delivery counts: %v", err)
		return nil
	}

	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts
}

// handle sends each message and acknowledges the ones that are done with,
// sent or dropped. deliveries may be nil for first deliveries.
func (w *worker) handle(ctx context.Context, messages []redislib.XMessage, deliveries map[string]int64) {
	acked := make([]string, 0, len(messages))

	for _, msg := range messages {
		job, err := events.DecodeMailJob(msg.ID, msg.Values)
		if err != nil {
			w.log.Warn("Dropping message: %v", err)
			acked = append(acked, msg.ID)
			continue
		}

		if reason := job.GiveUpReason(time.Now(), deliveries[msg.ID], w.cfg.MaxDeliveries); reason != "" {
			w.log.Warn("Dropping %s mail %s to %s: %s", job.Kind, job.ID, job.To, reason)
			acked = append(acked, msg.ID)
			continue
		}

		if err := events.Dispatch(ctx, w.sender, job); err != nil {
			if errors.Is(err, events.ErrMalformedJob) {
				w.log.Warn("Dropping message: %v", err)
				acked = append(acked, msg.ID)
				continue
			}
			w.log.Error("Failed to send %s mail %s: %v", job.Kind, job.ID, err)
			continue
		}

		w.log.Debug("Sent %s mail %s", job.Kind, job.ID)
		acked = append(acked, msg.ID)
	}

	if len(acked) == 0 {
		return
	}
	if err := w.client.XAck(ctx, w.cfg.StreamName, w.cfg.ConsumerGroup, acked...).Err(); err != nil {
		w.log.Error("Failed to acknowledge messages: %v", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
