// Package store defines interfaces for data persistence operations.
// These interfaces abstract the relational store from the job engine and the
// services, so that transactional workflows can be expressed with
// RunInTransaction and WithTx regardless of the database technology behind them.
package store
