// Package events carries job lifecycle events from the worker pool to
// interested subscribers.
//
// The worker pool reports every finished attempt through a task.TerminalHook.
// InMemoryEventEmitter converts those outcomes into JobEvents and fans them
// out to registered EventHandlers (structured logging, the notification
// exchange), so the job engine has no compile-time knowledge of them.
//
// The primary components are:
// - JobEvent: a completed, failed or retrying job attempt
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
