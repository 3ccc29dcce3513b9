package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// replayLogSize bounds how many recent events a reconnecting stream can
	// catch up on through Last-Event-ID.
	replayLogSize = 1000

	streamBuffer    = 64
	streamKeepalive = 15 * time.Second
	streamRetryMS   = 3000
)

// streamEvent is one event as delivered on /v1/events/stream.
type streamEvent struct {
	Seq       uint64
	Topic     string
	ProjectID string
	Data      []byte
}

func (e *streamEvent) writeTo(w io.Writer) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.Seq, e.Topic, e.Data)
}

// streamFilter narrows a stream to some topics and one project. Zero values
// select everything.
type streamFilter struct {
	topics  []string
	project string
}

func (f streamFilter) allows(e *streamEvent) bool {
	if f.project != "" && e.ProjectID != f.project {
		return false
	}
	if len(f.topics) == 0 {
		return true
	}
	for _, p := range f.topics {
		if topicMatches(p, e.Topic) {
			return true
		}
	}
	return false
}

// topicMatches matches a dotted topic against a NATS-style pattern: "*"
// stands for one segment and a trailing ">" for one or more.
func topicMatches(pattern, topic string) bool {
	for {
		p, prest, pmore := strings.Cut(pattern, ".")
		if p == ">" {
			return topic != ""
		}
		t, trest, tmore := strings.Cut(topic, ".")
		if topic == "" || (p != "*" && p != t) {
			return false
		}
		if !pmore || !tmore {
			return pmore == tmore
		}
		pattern, topic = prest, trest
	}
}

// eventLog keeps the most recent events in arrival order.
type eventLog struct {
	buf  []*streamEvent
	head int
}

func (l *eventLog) add(e *streamEvent) {
	if len(l.buf) < replayLogSize {
		l.buf = append(l.buf, e)
		return
	}
	l.buf[l.head] = e
	l.head = (l.head + 1) % replayLogSize
}

// after returns the logged events with a sequence number above seq.
func (l *eventLog) after(seq uint64) []*streamEvent {
	var out []*streamEvent
	for i := range l.buf {
		if e := l.buf[(l.head+i)%len(l.buf)]; e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// sseClient is one open event stream.
type sseClient struct {
	filter streamFilter
	ch     chan *streamEvent
}

// sseHub fans recorded events out to open streams.
type sseHub struct {
	mu      sync.Mutex
	seq     uint64
	log     eventLog
	clients map[*sseClient]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

func (h *sseHub) broadcast(topic, projectID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	e := &streamEvent{Seq: h.seq, Topic: topic, ProjectID: projectID, Data: data}
	h.log.add(e)
	for c := range h.clients {
		if !c.filter.allows(e) {
			continue
		}
		select {
		case c.ch <- e:
		default:
			// slow reader; it can catch up with Last-Event-ID
		}
	}
}

// attach opens a stream. With resume set it also returns the logged events
// after lastSeq that pass the filter. Both happen under one lock, so every
// event reaches the stream exactly once.
func (h *sseHub) attach(f streamFilter, lastSeq uint64, resume bool) (*sseClient, []*streamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &sseClient{filter: f, ch: make(chan *streamEvent, streamBuffer)}
	h.clients[c] = struct{}{}
	if !resume {
		return c, nil
	}
	var backlog []*streamEvent
	for _, e := range h.log.after(lastSeq) {
		if f.allows(e) {
			backlog = append(backlog, e)
		}
	}
	return c, backlog
}

func (h *sseHub) detach(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// handleEventStream handles GET /v1/events/stream?topics=a,b&project=id.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	filter := streamFilter{topics: queryList(r, "topics"), project: r.URL.Query().Get("project")}
	lastSeq, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	client, backlog := s.sseHub.attach(filter, lastSeq, err == nil)
	defer s.sseHub.detach(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "retry:%d\n\n", streamRetryMS)
	for _, e := range backlog {
		e.writeTo(w)
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-client.ch:
			e.writeTo(w)
			flusher.Flush()
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}
