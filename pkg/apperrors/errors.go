package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrBatchTooLarge     = errors.New("batch exceeds maximum size")
	ErrInvalidRequest    = errors.New("invalid score request")
	ErrDispatcherClosed  = errors.New("dispatcher is closed")
	ErrQueueFull         = errors.New("dispatch queue is full")
	ErrPipelineExhausted = errors.New("all generation providers failed")
)
