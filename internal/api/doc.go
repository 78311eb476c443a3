// Package api handles incoming HTTP requests for the planner: enqueueing
// schedule and quiz generation jobs, polling their status, saving generated
// plans and toggling subtopic completion. Handlers translate HTTP concerns
// to service and queue calls and map their errors to status codes without
// leaking internal messages.
package api
