package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/resilience"
)

// Job is a unit of deferred work, typically a notification delivery.
type Job struct {
	Kind        string
	Payload     json.RawMessage
	Dedup       string
	MaxAttempts int
	RunAt       time.Time
}

type jobMessage struct {
	Kind        string          `json:"kind"`
	Dedup       string          `json:"dedup,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts"`
	AvailableAt int64           `json:"availableAt"`
}

// Enqueuer publishes jobs onto Redis sorted-set queues, one set per kind,
// scored by availability time.
type Enqueuer struct {
	R           *redis.Client
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue schedules the job. A job carrying a dedup key is accepted at most
// once per deduplication window; the duplicate is silently dropped.
func (e Enqueuer) Enqueue(ctx context.Context, job Job) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	kind := sanitizeKind(job.Kind)
	if kind == "" {
		return errors.New("queue: job kind is required")
	}
	msg := jobMessage{
		Kind:        kind,
		Dedup:       job.Dedup,
		Payload:     job.Payload,
		MaxAttempts: job.MaxAttempts,
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = e.MaxAttempts
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = 6
	}
	runAt := job.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	msg.AvailableAt = runAt.UnixNano()

	if msg.Dedup != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		fresh, err := e.R.SetNX(ctx, dedupKey(e.Prefix, kind, msg.Dedup), "1", ttl).Result()
		if err != nil {
			return fmt.Errorf("queue: dedup check: %w", err)
		}
		if !fresh {
			return nil
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: encode job: %w", err)
	}
	err = e.R.ZAdd(ctx, jobsKey(e.Prefix, kind), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", kind, err)
	}
	return nil
}

// Worker drains one job kind sequentially. Claimed jobs sit in a claim set
// with a visibility deadline so a crashed worker's jobs get redelivered.
type Worker struct {
	R           *redis.Client
	Prefix      string
	Kind        string
	Handler     func(context.Context, Job) error
	Visibility  time.Duration
	RetryBase   time.Duration
	RetryJitter float64
	IdleSleep   time.Duration
	Log         zerolog.Logger
}

// Run processes jobs until the context is cancelled.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	kind := sanitizeKind(w.Kind)
	if kind == "" {
		return errors.New("queue: worker kind is required")
	}
	visibility := w.Visibility
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	retryBase := w.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}
	idle := w.IdleSleep
	if idle <= 0 {
		idle = 100 * time.Millisecond
	}

	jobs := jobsKey(w.Prefix, kind)
	claimed := claimedKey(w.Prefix, kind)
	reclaim := time.NewTicker(time.Second)
	defer reclaim.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reclaim.C:
			if err := w.reclaimExpired(ctx, jobs, claimed); err != nil {
				return err
			}
		default:
		}

		res, err := w.R.ZPopMin(ctx, jobs, 1).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if err == redis.Nil {
				time.Sleep(idle)
				continue
			}
			return fmt.Errorf("queue: pop %s: %w", kind, err)
		}
		if len(res) == 0 {
			time.Sleep(idle)
			continue
		}
		raw, ok := res[0].Member.(string)
		if !ok {
			continue
		}
		msg, err := decodeJob(raw)
		if err != nil {
			w.Log.Warn().Err(err).Str("kind", kind).Msg("dropping undecodable job")
			continue
		}
		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			// Not due yet. Put it back and wait up to a second.
			w.R.ZAdd(ctx, jobs, redis.Z{Score: float64(msg.AvailableAt), Member: raw})
			sleep := time.Duration(msg.AvailableAt - now)
			if sleep > time.Second {
				sleep = time.Second
			}
			time.Sleep(sleep)
			continue
		}

		msg.Attempt++
		claimedRaw, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		deadline := time.Now().Add(visibility).UnixNano()
		if err := w.R.ZAdd(ctx, claimed, redis.Z{Score: float64(deadline), Member: claimedRaw}).Err(); err != nil {
			return fmt.Errorf("queue: claim %s: %w", kind, err)
		}

		job := Job{Kind: kind, Payload: msg.Payload, Dedup: msg.Dedup}
		if err := w.Handler(ctx, job); err != nil {
			w.Log.Warn().Err(err).Str("kind", kind).Int("attempt", msg.Attempt).Msg("job handler failed")
			w.retryOrBury(ctx, jobs, claimed, string(claimedRaw), msg, retryBase)
			continue
		}
		w.ack(ctx, claimed, string(claimedRaw), msg)
	}
}

func (w Worker) retryOrBury(ctx context.Context, jobs, claimed, raw string, msg jobMessage, base time.Duration) {
	_ = w.R.ZRem(ctx, claimed, raw).Err()
	if msg.MaxAttempts > 0 && msg.Attempt >= msg.MaxAttempts {
		encoded, err := json.Marshal(msg)
		if err != nil {
			return
		}
		_ = w.R.LPush(ctx, deadKey(w.Prefix, msg.Kind), encoded).Err()
		if msg.Dedup != "" {
			_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Kind, msg.Dedup)).Err()
		}
		w.Log.Error().Str("kind", msg.Kind).Int("attempts", msg.Attempt).Msg("job moved to dead letter list")
		return
	}
	delay := resilience.Backoff(base, msg.Attempt, w.RetryJitter)
	msg.AvailableAt = time.Now().Add(delay).UnixNano()
	encoded, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.R.ZAdd(ctx, jobs, redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
}

func (w Worker) ack(ctx context.Context, claimed, raw string, msg jobMessage) {
	_ = w.R.ZRem(ctx, claimed, raw).Err()
	if msg.Dedup != "" {
		_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Kind, msg.Dedup)).Err()
	}
}

// reclaimExpired moves jobs whose visibility deadline passed back onto the
// queue for redelivery.
func (w Worker) reclaimExpired(ctx context.Context, jobs, claimed string) error {
	cutoff := fmt.Sprintf("%f", float64(time.Now().UnixNano()))
	expired, err := w.R.ZRangeByScore(ctx, claimed, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("queue: reclaim scan: %w", err)
	}
	for _, raw := range expired {
		msg, err := decodeJob(raw)
		if err != nil {
			_ = w.R.ZRem(ctx, claimed, raw).Err()
			continue
		}
		_ = w.R.ZRem(ctx, claimed, raw).Err()
		msg.AvailableAt = time.Now().UnixNano()
		encoded, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = w.R.ZAdd(ctx, jobs, redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
	}
	return nil
}

func decodeJob(raw string) (jobMessage, error) {
	var msg jobMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return jobMessage{}, err
	}
	return msg, nil
}

func jobsKey(prefix, kind string) string {
	if prefix == "" {
		return "jobs:" + kind
	}
	return prefix + ":jobs:" + kind
}

func claimedKey(prefix, kind string) string {
	return jobsKey(prefix, kind) + ":claimed"
}

func deadKey(prefix, kind string) string {
	return jobsKey(prefix, kind) + ":dead"
}

func dedupKey(prefix, kind, dedup string) string {
	return jobsKey(prefix, kind) + ":once:" + dedup
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == ':' || c == '.':
		default:
			return ""
		}
	}
	return kind
}
