package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Topics: DefaultTopics(), Logger: logger.NewNop()}
	ctx := context.Background()
	badge := models.Badge{BadgeID: "AIS2025-1", Name: "Ada", ParticipantType: models.ParticipantSpeaker}

	require.NoError(t, p.PublishBadgeIssued(ctx, badge))
	require.NoError(t, p.PublishCheckIn(ctx, badge, models.CheckInEvent{BadgeID: "AIS2025-1", Sequence: 1, CheckInType: models.CheckIn}))
	require.NoError(t, p.PublishBadgeDeactivated(ctx, badge, "lost"))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, "badges.issued", w.msgs[0].Topic)
	assert.Equal(t, "badges.checkins", w.msgs[1].Topic)
	assert.Equal(t, "badges.deactivated", w.msgs[2].Topic)
	for _, m := range w.msgs {
		assert.Equal(t, "AIS2025-1", string(m.Key))
	}

	var ci CheckInMessage
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &ci))
	assert.Equal(t, "Ada", ci.Name)
	assert.Equal(t, models.CheckIn, ci.Event.CheckInType)

	var d DeactivationMessage
	require.NoError(t, json.Unmarshal(w.msgs[2].Value, &d))
	assert.Equal(t, "lost", d.Reason)
}

func TestProducer_WrapsWriterErrors(t *testing.T) {
	p := &Producer{Writer: &fakeWriter{err: errors.New("no leader")}, Topics: DefaultTopics(), Logger: logger.NewNop()}
	err := p.PublishBadgeIssued(context.Background(), models.Badge{BadgeID: "x"})
	assert.ErrorContains(t, err, "badges.issued")
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_HandlesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, _ := json.Marshal(models.RegistrationEvent{ParticipantType: "attendee", ParticipantID: "reg-1", Name: "Ada", Email: "a@example.com"})
	failing, _ := json.Marshal(models.RegistrationEvent{ParticipantType: "attendee", ParticipantID: "reg-2"})
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: good},
			{Offset: 2, Value: []byte("not json")},
			{Offset: 3, Value: failing},
		},
		cancel: cancel,
	}
	var logs bytes.Buffer
	c := &Consumer{reader: reader, topic: "registrations.created", Logger: logger.NewWithWriter(&logs)}

	var seen []string
	err := c.Start(ctx, func(ctx context.Context, reg models.RegistrationEvent) error {
		seen = append(seen, reg.ParticipantID)
		if reg.Name == "" {
			return errors.New("name required")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"reg-1", "reg-2"}, seen)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	assert.Contains(t, logs.String(), "started on registrations.created")
	assert.Contains(t, logs.String(), "stopped")
}

func TestTopics(t *testing.T) {
	topics := DefaultTopics()
	assert.Equal(t, []string{"badges.issued", "badges.checkins", "badges.deactivated"}, topics.Produced())
	assert.Equal(t, "registrations.created", topics.Registrations)
}

func TestEnsureTopicsExist_NoBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(nil, []string{"x"}, logger.NewNop()))
}
