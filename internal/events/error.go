package events

import "errors"

var (
	ErrUnknownBroker = errors.New("unknown event broker")
	ErrNoBrokers     = errors.New("no kafka brokers configured")
)
