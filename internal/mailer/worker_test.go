package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/scoutline/apiserver/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBroker delivers every published job to the subscriber synchronously and
// records ack/nack outcomes.
type memBroker struct {
	mu     sync.Mutex
	jobs   []dispatch.Job
	nacked []string
}

func (b *memBroker) Publish(_ context.Context, _ string, data []byte, attrs map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := string(rune('a' + len(b.jobs)))
	b.jobs = append(b.jobs, dispatch.Job{ID: id, Data: data, Attributes: attrs})
	return id, nil
}

func (b *memBroker) Subscribe(ctx context.Context, _ string, handler dispatch.Handler) error {
	b.mu.Lock()
	jobs := append([]dispatch.Job(nil), b.jobs...)
	b.mu.Unlock()

	for _, job := range jobs {
		if err := handler(ctx, job); err != nil {
			b.mu.Lock()
			b.nacked = append(b.nacked, job.ID)
			b.mu.Unlock()
		}
	}
	return nil
}

func (b *memBroker) Close() error { return nil }

type recordingSender struct {
	mu   sync.Mutex
	sent []CodeEmail
	err  error
}

func (s *recordingSender) SendCode(_ context.Context, email, code, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, CodeEmail{Email: email, Code: code, Kind: kind})
	return nil
}

func TestQueueMailer_PublishesJob(t *testing.T) {
	broker := &memBroker{}
	queue := dispatch.New(broker)

	m := NewQueueMailer(queue)
	err := m.SendCode(context.Background(), "alice@example.com", "123456", KindLogin)
	require.NoError(t, err)

	require.Len(t, broker.jobs, 1)
	var job CodeEmail
	require.NoError(t, json.Unmarshal(broker.jobs[0].Data, &job))
	assert.Equal(t, "alice@example.com", job.Email)
	assert.Equal(t, "123456", job.Code)
	assert.Equal(t, KindLogin, job.Kind)
	assert.Equal(t, KindLogin, broker.jobs[0].Attributes["kind"])
}

func TestRunWorker_DeliversQueuedEmails(t *testing.T) {
	broker := &memBroker{}
	queue := dispatch.New(broker)

	m := NewQueueMailer(queue)
	require.NoError(t, m.SendCode(context.Background(), "alice@example.com", "123456", KindReset))

	sender := &recordingSender{}
	require.NoError(t, RunWorker(context.Background(), queue, sender))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].Email)
	assert.Equal(t, "123456", sender.sent[0].Code)
	assert.Equal(t, KindReset, sender.sent[0].Kind)
	assert.Empty(t, broker.nacked)
}

func TestRunWorker_MalformedJobAcked(t *testing.T) {
	broker := &memBroker{}
	queue := dispatch.New(broker)
	_, err := queue.Publish(context.Background(), dispatch.EmailQueue, []byte("not json"), nil)
	require.NoError(t, err)

	sender := &recordingSender{}
	require.NoError(t, RunWorker(context.Background(), queue, sender))

	assert.Empty(t, sender.sent)
	assert.Empty(t, broker.nacked, "malformed jobs are dropped, not retried")
}

func TestRunWorker_DeliveryFailureNacked(t *testing.T) {
	broker := &memBroker{}
	queue := dispatch.New(broker)

	m := NewQueueMailer(queue)
	require.NoError(t, m.SendCode(context.Background(), "alice@example.com", "123456", KindSignup))

	sender := &recordingSender{err: errors.New("smtp down")}
	require.NoError(t, RunWorker(context.Background(), queue, sender))

	require.Len(t, broker.nacked, 1, "failed deliveries are nacked for redelivery")
}
