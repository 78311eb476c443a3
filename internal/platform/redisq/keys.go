package redisq

import "fmt"

// priorityShift separates priority bands in the wait zset score so that
// insertion order only breaks ties within a band.
const priorityShift = 1 << 40

type queueKeys struct {
	prefix string
	queue  string
}

func (k queueKeys) base() string { return fmt.Sprintf("%s:%s", k.prefix, k.queue) }

func (k queueKeys) jobPrefix() string { return k.base() + ":job:" }

func (k queueKeys) job(id string) string { return k.jobPrefix() + id }

func (k queueKeys) wait() string { return k.base() + ":wait" }

func (k queueKeys) delayed() string { return k.base() + ":delayed" }

func (k queueKeys) active() string { return k.base() + ":active" }

func (k queueKeys) completed() string { return k.base() + ":completed" }

func (k queueKeys) failed() string { return k.base() + ":failed" }

func (k queueKeys) seq() string { return k.base() + ":seq" }

func waitScore(priority int, seq int64) float64 {
	return float64(int64(priority)*priorityShift + seq)
}
