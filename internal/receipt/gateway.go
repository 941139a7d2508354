package receipt

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Submitter sends a payload to the receipt provider and returns its receipt id.
type Submitter interface {
	SubmitReceipt(ctx context.Context, p *Payload) (string, error)
}

// Breaker guards outbound calls (satisfied by *infra.CircuitBreaker).
type Breaker interface {
	Execute(fn func() error) error
}

// Gateway issues receipts. It never returns an error: a failed receipt must not
// undo the settlement that triggered it.
type Gateway struct {
	submitter  Submitter
	breaker    Breaker
	logSuccess bool
}

func NewGateway(submitter Submitter, breaker Breaker, logSuccess bool) *Gateway {
	return &Gateway{submitter: submitter, breaker: breaker, logSuccess: logSuccess}
}

// CreateReceipt builds the creator's payload and submits it once. Any failure is
// logged with the creator's message and reported as ("", false).
func (g *Gateway) CreateReceipt(ctx context.Context, c Creator) (string, bool) {
	if c == nil {
		log.Error().Msg("receipt: no creator given")
		return "", false
	}

	id, err := g.submit(ctx, c)
	if err != nil {
		log.Error().Err(err).Msg(c.ErrorMessage())
		return "", false
	}
	if g.logSuccess {
		log.Info().Str("receipt_id", id).Msg(c.SuccessMessage())
	}
	return id, true
}

func (g *Gateway) submit(ctx context.Context, c Creator) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("receipt: creator panicked")
			err = errors.New("receipt creator panicked")
		}
	}()

	payload, err := c.Payload()
	if err != nil {
		return "", err
	}
	call := func() error {
		var subErr error
		id, subErr = g.submitter.SubmitReceipt(ctx, payload)
		return subErr
	}
	if g.breaker != nil {
		err = g.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("receipt provider returned an empty id")
	}
	return id, nil
}
