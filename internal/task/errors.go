package task

import "errors"

// Common errors
var (
	// ErrJobNotFound is returned when a job id does not exist in a queue.
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownFamily is returned for a family with no configuration.
	ErrUnknownFamily = errors.New("unknown job family")

	// ErrBrokerUnavailable wraps connectivity failures of the backing store.
	ErrBrokerUnavailable = errors.New("job broker unavailable")

	// ErrInvalidPayload is returned when a payload fails validation or decoding.
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrJobNotActive is returned when a lease-holder operation targets a job
	// that is not active.
	ErrJobNotActive = errors.New("job is not active")

	ErrNilStore  = errors.New("job store cannot be nil")
	ErrNilLogger = errors.New("logger cannot be nil")
)

// unrecoverableError marks a failure that must not be retried.
type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return e.err.Error() }
func (e *unrecoverableError) Unwrap() error { return e.err }

// Unrecoverable marks err so the worker pool fails the job without retrying.
func Unrecoverable(err error) error {
	if err == nil || IsUnrecoverable(err) {
		return err
	}
	return &unrecoverableError{err: err}
}

// IsUnrecoverable reports whether err was marked with Unrecoverable.
func IsUnrecoverable(err error) bool {
	var u *unrecoverableError
	return errors.As(err, &u)
}
