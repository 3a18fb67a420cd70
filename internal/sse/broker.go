// Package sse streams note change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Event is one message on the stream. Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Note event kinds accepted by PublishNoteEvent.
const (
	KindCreated  = "created"
	KindUpdated  = "updated"
	KindDeleted  = "deleted"
	KindReloaded = "reloaded"
)

const (
	clientBuffer = 64
	defaultPing  = 25 * time.Second
)

// hub is the broker state. Only the loop goroutine touches it.
type hub struct {
	subs     map[chan []byte]struct{}
	seq      uint64
	lastList time.Time
}

// broadcast frames e and offers it to every subscriber. A subscriber whose
// buffer is full misses the event.
func (h *hub) broadcast(e Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	h.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, e.Type, data))
	for ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Broker fans events out to connected streams. A single goroutine owns the
// subscriber set and the list.changed throttle; public methods hand it
// closures over an unbuffered channel.
type Broker struct {
	listEvery time.Duration
	pingEvery time.Duration

	ops       chan func(*hub)
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBroker starts a broker. listThrottle is the minimum gap between two
// list.changed events; zero or less means two seconds.
func NewBroker(listThrottle time.Duration) *Broker {
	if listThrottle <= 0 {
		listThrottle = 2 * time.Second
	}
	b := &Broker{
		listEvery: listThrottle,
		pingEvery: defaultPing,
		ops:       make(chan func(*hub)),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)
	h := &hub{subs: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.quit:
			for ch := range h.subs {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// send runs op on the loop. It reports false once the broker is closed.
func (b *Broker) send(op func(*hub)) bool {
	select {
	case <-b.quit:
		return false
	default:
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.closeOnce.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a new stream. The channel is closed by Unsubscribe or
// Close; on a closed broker it is returned already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.send(func(h *hub) { h.subs[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes ch and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.send(func(h *hub) {
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of open streams.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.send(func(h *hub) { n <- len(h.subs) }) {
		return 0
	}
	return <-n
}

// Publish sends e to every stream.
func (b *Broker) Publish(e Event) {
	b.send(func(h *hub) { h.broadcast(e) })
}

// PublishNoteEvent announces a note change, followed by list.changed unless
// one went out within the throttle window. id is ignored for KindReloaded
// and unknown kinds are dropped.
func (b *Broker) PublishNoteEvent(kind string, id int64) {
	var e Event
	switch kind {
	case KindCreated, KindUpdated, KindDeleted:
		e = Event{Type: "note." + kind, Data: map[string]int64{"id": id}}
	case KindReloaded:
		e = Event{Type: "notes.reloaded", Data: struct{}{}}
	default:
		return
	}
	b.send(func(h *hub) {
		h.broadcast(e)
		if now := time.Now(); now.Sub(h.lastList) >= b.listEvery {
			h.lastList = now
			h.broadcast(Event{Type: "list.changed", Data: struct{}{}})
		}
	})
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes. Idle streams get a comment line every pingEvery so
// proxies keep them open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.pingEvery)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, err = io.WriteString(w, ": ping\n\n")
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, err = w.Write(frame)
		}
		if err != nil {
			return
		}
		flusher.Flush()
	}
}
