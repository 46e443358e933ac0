package provider

import "errors"

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoChain         = errors.New("provider requires contract bindings")
)
