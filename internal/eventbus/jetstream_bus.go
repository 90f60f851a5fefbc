package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

const (
	// subjectPrefix события документа публикуются в tilemap.<type>
	subjectPrefix = "tilemap"
	// DefaultStream стрим JetStream по умолчанию
	DefaultStream = "TILEMAP"
	// dedupWindow окно дедупликации по Nats-Msg-Id
	dedupWindow = 2 * time.Minute
)

// JetStreamBus EventBus поверх NATS JetStream: изменения документа видны
// другим процессам (просмотрщикам, экспорту)
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к url и создаёт стрим, если его нет.
// retention: максимальный возраст сообщений (0: без ограничения).
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = DefaultStream
	}

	nc, err := nats.Connect(url, nats.Name("tiledit"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       stream,
			Subjects:   []string{subjectPrefix + ".>"}, // тип события содержит точки
			Retention:  nats.LimitsPolicy,
			MaxAge:     retention,
			Storage:    nats.FileStorage,
			Duplicates: dedupWindow,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

// Subject subject NATS для типа события
func Subject(eventType string) string {
	return subjectPrefix + "." + strings.TrimSpace(eventType)
}

// Publish публикует JSON конверта; ID конверта служит ключом дедупликации
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("encode envelope %s: %w", ev.ID, err)
	}
	if _, err := jb.js.Publish(Subject(ev.EventType), data, nats.Context(ctx), nats.MsgId(ev.ID)); err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного потребителя новых сообщений. Подписка
// снимается при отмене ctx.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subject := subjectPrefix + ".>"
	if len(f.Types) == 1 {
		subject = Subject(f.Types[0])
	}

	sub, err := jb.js.Subscribe(subject, func(msg *nats.Msg) {
		defer func() { _ = msg.Ack() }()
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.dropped.Add(1)
			return
		}
		if !f.match(&ev) {
			return
		}
		h(ctx, &ev)
		jb.consumed.Add(1)
	}, nats.BindStream(jb.stream), nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	js := &jetSub{s: sub, stop: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			js.Unsubscribe()
		case <-js.stop:
		}
	}()
	return js, nil
}

type jetSub struct {
	s    *nats.Subscription
	once atomic.Bool
	stop chan struct{}
}

func (j *jetSub) Unsubscribe() {
	if j.once.CompareAndSwap(false, true) {
		close(j.stop)
		_ = j.s.Unsubscribe()
	}
}

// Metrics счётчики публикаций и доставок этого процесса
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
