// Package events fans job status changes out to in-process subscribers.
package events

import (
	"sync"

	"testgen/internal/domain/entity"
)

const subscriberBuffer = 8

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan entity.Job]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan entity.Job]struct{})}
}

// Subscribe returns a channel of updates for one job and a function that
// releases it. The channel is closed on release.
func (b *Broker) Subscribe(jobID string) (<-chan entity.Job, func()) {
	ch := make(chan entity.Job, subscriberBuffer)

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan entity.Job]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[jobID], ch)
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
			close(ch)
		})
	}
}

// Publish never blocks. A slow subscriber loses its oldest pending update,
// so the latest status always gets through.
func (b *Broker) Publish(job entity.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[job.ID] {
		select {
		case ch <- job:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- job:
		default:
		}
	}
}

func (b *Broker) subscribers(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[jobID])
}
