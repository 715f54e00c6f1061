package domain

import "errors"

var (
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrAuctionKoiNotFound = errors.New("auction koi not found")
	ErrKoiNotFound        = errors.New("koi not found")
	ErrAuctionNotActive   = errors.New("auction is not active")
)
