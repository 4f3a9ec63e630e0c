package engine

import (
	"time"

	"github.com/google/uuid"
)

// Options represents configuration options for the Matcher.
type Options struct {
	// VerifyInvariants runs CheckInvariants after every accepted order.
	VerifyInvariants bool
	Clock            func() time.Time
	NewTradeID       func() string
	// OnTrade is called once per settled fill, in execution order.
	OnTrade func(trade *Trade)
	// OnReject is called for every order refused at intake.
	OnReject func(rej *RejectionError)
}

// DefaultOptions returns the default matcher options.
func DefaultOptions() *Options {
	return &Options{
		Clock:      time.Now,
		NewTradeID: func() string { return uuid.New().String() },
	}
}

func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		return out
	}
	out.VerifyInvariants = o.VerifyInvariants
	out.OnTrade = o.OnTrade
	out.OnReject = o.OnReject
	if o.Clock != nil {
		out.Clock = o.Clock
	}
	if o.NewTradeID != nil {
		out.NewTradeID = o.NewTradeID
	}
	return out
}
