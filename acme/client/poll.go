package client

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// poll runs check at the session's fixed poll interval until it succeeds or
// fails permanently. By default polling only terminates on a terminal status
// or transport error; a configured PollDeadline bounds the loop's wall-clock
// time.
func (c *Client) poll(check backoff.Operation) error {
	interval := backoff.NewConstantBackOff(c.PollInterval)

	if c.PollDeadline > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.PollDeadline)
		defer cancel()
		return backoff.Retry(check, backoff.WithContext(interval, ctx))
	}
	return backoff.Retry(check, interval)
}
