package chain

import "errors"

var (
	ErrInvalidContract = errors.New("invalid contract address")
	ErrUnexpectedType  = errors.New("unexpected contract return type")
	ErrEmptyResult     = errors.New("empty contract result")
	ErrNoSuchToken     = errors.New("token does not exist")
)
