// Package task runs the asynchronous job pipeline: the Job model and its
// JobStore contract, the QueueManager producers use to enqueue work, the
// WorkerPool that leases and executes jobs per family, the StatusReporter
// that serves polling clients, and the handlers for each job family.
package task
