// Package jetstream implements the durable task queue on NATS JetStream:
// file-backed work-queue stream, pull consumer with one in-flight task per
// worker, explicit acks, and a dead-letter subject for tasks that exhaust
// their delivery budget.
package jetstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
	"github.com/finvault/docclassify/internal/infrastructure/resilience"
)

type Options struct {
	StreamName        string
	Subject           string
	DeadLetterSubject string
	Durable           string

	// MaxDeliver bounds redeliveries; a task that fails this many times is
	// moved to the dead-letter subject instead of looping forever.
	MaxDeliver int

	// TaskDeadline bounds one task end to end; a stuck extraction or
	// prediction must release the single prefetch slot.
	TaskDeadline time.Duration
	AckWait      time.Duration
	FetchWait    time.Duration
	PollInterval time.Duration

	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int

	Executor *resilience.Executor

	// OnDeadLetter is invoked after a task is moved to the dead-letter
	// subject, e.g. to bump a metric.
	OnDeadLetter func()

	// OnQueueLag receives the time a task spent in the stream before this
	// delivery attempt started.
	OnQueueLag func(lag time.Duration)
}

func (o Options) withDefaults() Options {
	if o.StreamName == "" {
		o.StreamName = "DOCUMENTS"
	}
	if o.Subject == "" {
		o.Subject = "documents.process"
	}
	if o.DeadLetterSubject == "" {
		o.DeadLetterSubject = o.Subject + ".dead"
	}
	if o.Durable == "" {
		o.Durable = "doc-workers"
	}
	if o.MaxDeliver <= 0 {
		o.MaxDeliver = 5
	}
	if o.TaskDeadline <= 0 {
		o.TaskDeadline = 5 * time.Minute
	}
	if o.AckWait <= 0 {
		o.AckWait = 2 * o.TaskDeadline
	}
	if o.FetchWait <= 0 {
		o.FetchWait = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 2 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 60
	}
	return o
}

type Queue struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	opts   Options
	logger *slog.Logger

	// publishRaw writes to the dead-letter subject; split out from the
	// JetStream context so the delivery disposition is testable.
	publishRaw func(subject string, data []byte) error
}

// delivery is one received message. The consumer only ever needs the
// payload, the delivery count, the publish time, and the three
// acknowledgement verbs.
type delivery interface {
	Payload() []byte
	Info() (numDelivered uint64, published time.Time, ok bool)
	Ack() error
	Nak() error
	Term() error
}

type natsDelivery struct {
	msg *nats.Msg
}

func (d natsDelivery) Payload() []byte { return d.msg.Data }

func (d natsDelivery) Info() (uint64, time.Time, bool) {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 0, time.Time{}, false
	}
	return meta.NumDelivered, meta.Timestamp, true
}

func (d natsDelivery) Ack() error  { return d.msg.Ack() }
func (d natsDelivery) Nak() error  { return d.msg.Nak() }
func (d natsDelivery) Term() error { return d.msg.Term() }

func New(url string, opts Options, logger *slog.Logger) (*Queue, error) {
	opts = opts.withDefaults()

	conn, err := nats.Connect(
		url,
		nats.Name("docclassify"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	q := &Queue{conn: conn, js: js, opts: opts, logger: logger}
	q.publishRaw = func(subject string, data []byte) error {
		_, err := js.Publish(subject, data)
		return err
	}
	if err := q.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// ensureStream creates the durable, file-backed stream on first start.
// Tasks survive broker restarts until acknowledged.
func (q *Queue) ensureStream() error {
	_, err := q.js.StreamInfo(q.opts.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}

	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:      q.opts.StreamName,
		Subjects:  []string{q.opts.Subject, q.opts.DeadLetterSubject},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil {
		return fmt.Errorf("add stream: %w", err)
	}
	return nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Publish enqueues a task durably. Failures after the retry/breaker budget
// are wrapped as broker errors so the dispatcher can fall back to inline
// processing.
func (q *Queue) Publish(ctx context.Context, task domain.ProcessingTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	call := func(callCtx context.Context) error {
		if _, err := q.js.Publish(q.opts.Subject, payload, nats.Context(callCtx)); err != nil {
			return fmt.Errorf("jetstream publish: %w", err)
		}
		return nil
	}

	if q.opts.Executor != nil {
		err = q.opts.Executor.Execute(ctx, "jetstream.publish", call, classifyBrokerError)
	} else {
		err = call(ctx)
	}
	return wrapBrokerIfNeeded("publish task", err)
}

// Consume pulls one task at a time (prefetch = 1) and acknowledges only
// after the handler reports success. Failed tasks are redelivered until
// the delivery budget runs out, then dead-lettered. Blocks until ctx is
// cancelled.
func (q *Queue) Consume(ctx context.Context, handler ports.TaskHandler) error {
	sub, err := q.js.PullSubscribe(
		q.opts.Subject,
		q.opts.Durable,
		nats.AckExplicit(),
		nats.AckWait(q.opts.AckWait),
		nats.MaxAckPending(1),
		nats.BindStream(q.opts.StreamName),
	)
	if err != nil {
		return wrapBrokerIfNeeded("pull subscribe", fmt.Errorf("pull subscribe: %w", err))
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			q.logger.Warn("unsubscribe failed", "error", err)
		}
	}()

	// Paces fetch attempts so an empty or unreachable broker does not turn
	// the loop into a busy spin.
	limiter := rate.NewLimiter(rate.Every(q.opts.PollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		msgs, err := sub.Fetch(1, nats.MaxWait(q.opts.FetchWait))
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			q.logger.Warn("fetch failed", "error", err)
			continue
		}
		for _, msg := range msgs {
			q.handleMessage(ctx, natsDelivery{msg: msg}, handler)
		}
	}
}

func (q *Queue) handleMessage(ctx context.Context, msg delivery, handler ports.TaskHandler) {
	var task domain.ProcessingTask
	if err := json.Unmarshal(msg.Payload(), &task); err != nil {
		// A payload that cannot even be decoded will never succeed.
		q.logger.Error("malformed task payload, dead-lettering", "error", err)
		q.deadLetter(msg, 0)
		return
	}

	numDelivered, published, haveInfo := msg.Info()
	if haveInfo && q.opts.OnQueueLag != nil {
		q.opts.OnQueueLag(time.Since(published))
	}

	taskCtx, cancel := context.WithTimeout(ctx, q.opts.TaskDeadline)
	outcome := handler(taskCtx, task)
	cancel()

	if outcome.Success {
		if err := msg.Ack(); err != nil {
			q.logger.Warn("ack failed", "document_id", task.DocumentID, "error", err)
		}
		return
	}

	q.logger.Error("task failed",
		"document_id", task.DocumentID,
		"error", outcome.Err,
	)

	if haveInfo && int(numDelivered) >= q.opts.MaxDeliver {
		q.logger.Error("delivery budget exhausted, dead-lettering",
			"document_id", task.DocumentID,
			"deliveries", numDelivered,
		)
		q.deadLetter(msg, task.DocumentID)
		return
	}

	if err := msg.Nak(); err != nil {
		q.logger.Warn("nak failed", "document_id", task.DocumentID, "error", err)
	}
}

// deadLetter republishes the raw payload to the dead-letter subject and
// terminates the original delivery so it leaves the main loop.
func (q *Queue) deadLetter(msg delivery, documentID int64) {
	if err := q.publishRaw(q.opts.DeadLetterSubject, msg.Payload()); err != nil {
		// The message stays in the stream and will be redelivered; better
		// one more loop than a lost task.
		q.logger.Error("dead-letter publish failed", "document_id", documentID, "error", err)
		if err := msg.Nak(); err != nil {
			q.logger.Warn("nak failed", "document_id", documentID, "error", err)
		}
		return
	}
	if err := msg.Term(); err != nil {
		q.logger.Warn("term failed", "document_id", documentID, "error", err)
	}
	if q.opts.OnDeadLetter != nil {
		q.opts.OnDeadLetter()
	}
}
