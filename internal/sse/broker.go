// Package sse streams library change events to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	ArticleCreated  = "article.created"
	ArticleUpdated  = "article.updated"
	ArticleDeleted  = "article.deleted"
	SummaryCreated  = "summary.created"
	PodcastCreated  = "podcast.created"
	ReminderDue     = "reminder.due"
	SettingsUpdated = "settings.updated"
	StatsUpdated    = "stats.updated"
)

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker fans events out to subscribers.
//
// A single loop goroutine owns the client set and the stats throttle.
// Public methods talk to it over channels.
type Broker struct {
	statsEvery time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan published
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// published is an event plus whether it should also nudge stats.updated.
type published struct {
	event      Event
	touchStats bool
}

// NewBroker starts a broker. statsEvery bounds how often stats.updated is
// emitted in response to article events; zero means two seconds.
func NewBroker(statsEvery time.Duration) *Broker {
	if statsEvery <= 0 {
		statsEvery = 2 * time.Second
	}
	b := &Broker{
		statsEvery:    statsEvery,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan published, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func frame(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStats time.Time

	send := func(e Event) {
		msg, err := frame(e)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case p := <-b.publishCh:
			send(p.event)
			if p.touchStats {
				if now := time.Now(); now.Sub(lastStats) >= b.statsEvery {
					lastStats = now
					send(Event{Type: StatsUpdated, Data: map[string]string{}})
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its message channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) submit(p published) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- p:
	case <-b.stopped:
	}
}

// Publish sends an event to all clients.
func (b *Broker) Publish(e Event) {
	b.submit(published{event: e})
}

// PublishArticle sends an article.* event for id followed, at most once per
// throttle window, by stats.updated.
func (b *Broker) PublishArticle(eventType, id string) {
	b.submit(published{event: Event{Type: eventType, Data: map[string]string{"id": id}}, touchStats: true})
}

// PublishReminder announces a due reminder.
func (b *Broker) PublishReminder(articleID, title string) {
	b.Publish(Event{Type: ReminderDue, Data: map[string]string{"articleId": articleID, "title": title}})
}

// ServeHTTP streams events (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
