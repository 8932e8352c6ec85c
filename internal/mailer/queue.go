package mailer

import (
	"context"
	"encoding/json"

	"github.com/scoutline/apiserver/internal/dispatch"
)

// CodeEmail is the job payload queued for the email worker.
type CodeEmail struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Kind  string `json:"kind"`
}

// QueueMailer enqueues code emails on the dispatch broker instead of sending
// them inline. A publish failure is a synchronous dispatch failure and is
// reported to the caller; once the job is accepted by the broker, delivery
// is the worker's problem.
type QueueMailer struct {
	queue *dispatch.Queue
}

func NewQueueMailer(queue *dispatch.Queue) *QueueMailer {
	return &QueueMailer{queue: queue}
}

// SendCode publishes the code email as a JSON job.
func (m *QueueMailer) SendCode(ctx context.Context, email, code, kind string) error {
	data, err := json.Marshal(CodeEmail{Email: email, Code: code, Kind: kind})
	if err != nil {
		return err
	}
	_, err = m.queue.Publish(ctx, dispatch.EmailQueue, data, map[string]string{"kind": kind})
	return err
}
