package mailer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/scoutline/apiserver/internal/dispatch"
)

// RunWorker consumes queued code emails and delivers them through sender.
// It blocks until ctx is cancelled or the subscription fails. A malformed
// job is logged and acked rather than retried forever; a delivery failure
// is nacked so the broker redelivers it.
func RunWorker(ctx context.Context, queue *dispatch.Queue, sender Mailer) error {
	return queue.Subscribe(ctx, dispatch.EmailQueue, func(ctx context.Context, job dispatch.Job) error {
		var email CodeEmail
		if err := json.Unmarshal(job.Data, &email); err != nil {
			log.Printf("email worker: dropping malformed job %s: %v", job.ID, err)
			return nil
		}
		if err := sender.SendCode(ctx, email.Email, email.Code, email.Kind); err != nil {
			log.Printf("email worker: delivery failed for job %s: %v", job.ID, err)
			return err
		}
		return nil
	})
}
