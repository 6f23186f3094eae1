package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
	"github.com/yungbote/jointbuy-backend/internal/realtime"
)

const (
	DefaultChannel = "sse"
	dialTimeout    = 5 * time.Second
)

var errNotInitialized = errors.New("redis purchase bus not initialized")

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// envelope is the payload published on the redis channel.
type envelope struct {
	Origin  string              `json:"origin"`
	SentAt  time.Time           `json:"sent_at"`
	Message realtime.SSEMessage `json:"message"`
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
	now     func() time.Time
}

// NewRedisBus connects to redis and verifies the connection with a ping.
func NewRedisBus(ctx context.Context, log *logger.Logger, opts RedisOptions) (Bus, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	origin := uuid.NewString()
	return &redisBus{
		log:     log.With("component", "RedisPurchaseBus", "channel", channel, "origin", origin),
		rdb:     rdb,
		channel: channel,
		origin:  origin,
		now:     time.Now,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return errNotInitialized
	}
	raw, err := encodeEnvelope(envelope{Origin: b.origin, SentAt: b.now().UTC(), Message: msg})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and hands every decoded message to onMsg until
// ctx is done. Messages published by this instance are forwarded too, since
// Publish never broadcasts locally.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return errNotInitialized
	}
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(m realtime.SSEMessage)) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok || m == nil {
				return
			}
			env, err := decodeEnvelope(m.Payload)
			if err != nil {
				b.log.Warn("dropping redis payload", "error", err)
				continue
			}
			onMsg(env.Message)
		}
	}
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func encodeEnvelope(env envelope) ([]byte, error) {
	if strings.TrimSpace(env.Message.Channel) == "" {
		return nil, errors.New("message without channel")
	}
	return json.Marshal(env)
}

func decodeEnvelope(payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return envelope{}, err
	}
	if strings.TrimSpace(env.Message.Channel) == "" {
		return envelope{}, errors.New("message without channel")
	}
	if env.Message.Event == "" {
		return envelope{}, fmt.Errorf("message on %s without event", env.Message.Channel)
	}
	return env, nil
}
