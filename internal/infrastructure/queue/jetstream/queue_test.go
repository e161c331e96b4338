package jetstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/finvault/docclassify/internal/core/domain"
)

type deliveryFake struct {
	payload      []byte
	numDelivered uint64
	published    time.Time
	haveInfo     bool

	acks  int
	naks  int
	terms int
}

func (d *deliveryFake) Payload() []byte { return d.payload }

func (d *deliveryFake) Info() (uint64, time.Time, bool) {
	return d.numDelivered, d.published, d.haveInfo
}

func (d *deliveryFake) Ack() error  { d.acks++; return nil }
func (d *deliveryFake) Nak() error  { d.naks++; return nil }
func (d *deliveryFake) Term() error { d.terms++; return nil }

type deadLetterSink struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (s *deadLetterSink) publish(subject string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.subjects = append(s.subjects, subject)
	s.payloads = append(s.payloads, append([]byte(nil), data...))
	return nil
}

func testQueue(sink *deadLetterSink, hook func()) *Queue {
	opts := Options{}.withDefaults()
	opts.TaskDeadline = time.Second
	opts.OnDeadLetter = hook
	return &Queue{
		opts:       opts,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		publishRaw: sink.publish,
	}
}

func taskPayload(t *testing.T, documentID int64) []byte {
	t.Helper()
	data, err := json.Marshal(domain.ProcessingTask{
		DocumentID: documentID,
		FilePath:   "/srv/docs/report.pdf",
		FileType:   domain.FileTypePDF,
	})
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	return data
}

func TestHandleMessageAcksOnSuccess(t *testing.T) {
	sink := &deadLetterSink{}
	q := testQueue(sink, nil)
	msg := &deliveryFake{payload: taskPayload(t, 7), numDelivered: 1, haveInfo: true}

	q.handleMessage(context.Background(), msg, func(_ context.Context, task domain.ProcessingTask) domain.TaskOutcome {
		return domain.SucceededTask(task.DocumentID, "invoice", 0.9)
	})

	if msg.acks != 1 || msg.naks != 0 || msg.terms != 0 {
		t.Fatalf("got acks=%d naks=%d terms=%d, want a single ack", msg.acks, msg.naks, msg.terms)
	}
	if len(sink.subjects) != 0 {
		t.Fatalf("unexpected dead-letter publish: %v", sink.subjects)
	}
}

func TestHandleMessageNaksWhileDeliveryBudgetRemains(t *testing.T) {
	sink := &deadLetterSink{}
	q := testQueue(sink, nil)
	msg := &deliveryFake{payload: taskPayload(t, 7), numDelivered: uint64(q.opts.MaxDeliver - 1), haveInfo: true}

	q.handleMessage(context.Background(), msg, func(_ context.Context, task domain.ProcessingTask) domain.TaskOutcome {
		return domain.FailedTask(task.DocumentID, errors.New("extraction blew up"))
	})

	if msg.naks != 1 || msg.acks != 0 || msg.terms != 0 {
		t.Fatalf("got acks=%d naks=%d terms=%d, want a single nak", msg.acks, msg.naks, msg.terms)
	}
	if len(sink.subjects) != 0 {
		t.Fatalf("dead-lettered before the budget ran out: %v", sink.subjects)
	}
}

func TestHandleMessageDeadLettersWhenBudgetExhausted(t *testing.T) {
	sink := &deadLetterSink{}
	hookCalls := 0
	q := testQueue(sink, func() { hookCalls++ })
	payload := taskPayload(t, 7)
	msg := &deliveryFake{payload: payload, numDelivered: uint64(q.opts.MaxDeliver), haveInfo: true}

	q.handleMessage(context.Background(), msg, func(_ context.Context, task domain.ProcessingTask) domain.TaskOutcome {
		return domain.FailedTask(task.DocumentID, errors.New("still failing"))
	})

	if msg.terms != 1 || msg.acks != 0 || msg.naks != 0 {
		t.Fatalf("got acks=%d naks=%d terms=%d, want a single term", msg.acks, msg.naks, msg.terms)
	}
	if len(sink.subjects) != 1 || sink.subjects[0] != q.opts.DeadLetterSubject {
		t.Fatalf("got dead-letter subjects %v, want [%s]", sink.subjects, q.opts.DeadLetterSubject)
	}
	if string(sink.payloads[0]) != string(payload) {
		t.Fatal("dead-letter payload does not match the original message")
	}
	if hookCalls != 1 {
		t.Fatalf("dead-letter hook fired %d times, want 1", hookCalls)
	}
}

func TestHandleMessageDeadLettersMalformedPayload(t *testing.T) {
	sink := &deadLetterSink{}
	q := testQueue(sink, nil)
	msg := &deliveryFake{payload: []byte("{this is not json"), numDelivered: 1, haveInfo: true}

	handlerCalls := 0
	q.handleMessage(context.Background(), msg, func(context.Context, domain.ProcessingTask) domain.TaskOutcome {
		handlerCalls++
		return domain.TaskOutcome{}
	})

	if handlerCalls != 0 {
		t.Fatal("handler ran on a payload that cannot be decoded")
	}
	if msg.terms != 1 || len(sink.subjects) != 1 {
		t.Fatalf("got terms=%d publishes=%d, want the message terminated into the dead-letter subject", msg.terms, len(sink.subjects))
	}
}

func TestDeadLetterFallsBackToNakWhenPublishFails(t *testing.T) {
	sink := &deadLetterSink{err: errors.New("stream unreachable")}
	hookCalls := 0
	q := testQueue(sink, func() { hookCalls++ })
	msg := &deliveryFake{payload: taskPayload(t, 7), numDelivered: uint64(q.opts.MaxDeliver), haveInfo: true}

	q.handleMessage(context.Background(), msg, func(_ context.Context, task domain.ProcessingTask) domain.TaskOutcome {
		return domain.FailedTask(task.DocumentID, errors.New("still failing"))
	})

	if msg.naks != 1 || msg.terms != 0 {
		t.Fatalf("got naks=%d terms=%d, want the delivery nakked so the stream retains it", msg.naks, msg.terms)
	}
	if hookCalls != 0 {
		t.Fatal("dead-letter hook fired although nothing was dead-lettered")
	}
}

func TestHandleMessageReportsQueueLag(t *testing.T) {
	sink := &deadLetterSink{}
	q := testQueue(sink, nil)

	var observed time.Duration
	q.opts.OnQueueLag = func(lag time.Duration) { observed = lag }

	msg := &deliveryFake{
		payload:      taskPayload(t, 7),
		numDelivered: 1,
		published:    time.Now().Add(-3 * time.Second),
		haveInfo:     true,
	}
	q.handleMessage(context.Background(), msg, func(_ context.Context, task domain.ProcessingTask) domain.TaskOutcome {
		return domain.SucceededTask(task.DocumentID, "invoice", 0.9)
	})

	if observed < 3*time.Second {
		t.Fatalf("observed lag %v, want at least the publish age", observed)
	}
}
