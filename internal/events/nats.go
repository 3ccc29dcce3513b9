package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// HeaderProject names the NATS header carrying the project id of an event,
// so subscribers can filter without decoding the payload.
const HeaderProject = "Constructum-Project"

// subscriptionBuffer is how many undelivered messages a subscription holds
// before NATS starts dropping them as a slow consumer.
const subscriptionBuffer = 64

// ProjectOf returns the project an event payload belongs to, or "" for
// payloads that carry none.
func ProjectOf(event any) string {
	switch e := event.(type) {
	case ProjectCreated:
		if e.Project != nil {
			return e.Project.ID
		}
	case ProjectUpdated:
		if e.Project != nil {
			return e.Project.ID
		}
	case TaskCreated:
		if e.Task != nil {
			return e.Task.ProjectID
		}
	case TaskUpdated:
		if e.Task != nil {
			return e.Task.ProjectID
		}
	case TaskMoved:
		if e.Task != nil {
			return e.Task.ProjectID
		}
	case DependencyAdded:
		if e.Dependency != nil {
			return e.Dependency.ProjectID
		}
	case ProjectDeleted:
		return e.ProjectID
	case TaskDeleted:
		return e.ProjectID
	case TaskCascaded:
		return e.ProjectID
	case TaskReordered:
		return e.ProjectID
	case DependencyRemoved:
		return e.ProjectID
	}
	return ""
}

// connect dials NATS, retrying forever once connected.
func connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded events on their topic subject.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, "constructum-publisher", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	msg := &nats.Msg{Subject: topic, Data: data, Header: nats.Header{}}
	if pid := ProjectOf(event); pid != "" {
		msg.Header.Set(HeaderProject, pid)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending events and disconnects.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(time.Second)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing events: %w", err)
	}
	return nil
}

// NATSSubscriber delivers events from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to NATS. Extra options, such as disconnect and
// reconnect handlers, are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, "constructum-subscriber", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe streams messages on topic, which may use NATS wildcards such as
// TopicAll. The channel is closed once cancel has been called.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	raw := make(chan *nats.Msg, subscriptionBuffer)
	sub, err := s.conn.ChanSubscribe(topic, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// Messages published on other connections only reach the subscription
	// once the server has registered it.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	out := make(chan Message)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case m := <-raw:
				msg := Message{Subject: m.Subject, Data: m.Data}
				if m.Header != nil {
					msg.ProjectID = m.Header.Get(HeaderProject)
				}
				select {
				case out <- msg:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return out, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
