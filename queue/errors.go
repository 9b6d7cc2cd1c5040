package queue

import "errors"

// The Fair Queue's only error kinds are programming errors (§7 of the
// specification), never runtime failures. A capacity deficiency is not an
// error: it is signaled by DispatchRequests returning early.
var (
	// ErrClassAlreadyRegistered is returned by RegisterPriorityClass when
	// the class id is already registered.
	ErrClassAlreadyRegistered = errors.New("fairsched/queue: priority class already registered")

	// ErrClassNotRegistered is returned when an operation names a class
	// id that has not been registered.
	ErrClassNotRegistered = errors.New("fairsched/queue: priority class not registered")

	// ErrClassNotEmpty is returned by UnregisterPriorityClass when the
	// class's queue is non-empty.
	ErrClassNotEmpty = errors.New("fairsched/queue: priority class queue not empty")
)
