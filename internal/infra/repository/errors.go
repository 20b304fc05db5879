package repository

import "errors"

var (
	ErrRedisConnection  = errors.New("redis connection error")
	ErrInvalidMinuteKey = errors.New("invalid minute key")
	ErrInvalidReminder  = errors.New("invalid reminder data")
)
