package message

import (
	"sync"
	"time"
)

// Collector is a Sink that records every notification in memory.
type Collector struct {
	mu   sync.Mutex
	msgs []Message
}

var _ Sink = (*Collector)(nil)

func (c *Collector) Error(winID, text string, immediate bool) {
	c.add(Message{WinID: winID, Level: Error, Text: text, Immediate: immediate})
}

func (c *Collector) Info(winID, text string) {
	c.add(Message{WinID: winID, Level: Info, Text: text})
}

func (c *Collector) add(m Message) {
	m.Time = time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

// Messages returns a copy of everything recorded so far.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Texts returns the recorded texts in order.
func (c *Collector) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Text
	}
	return out
}

// Len returns the number of recorded messages.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// Reset discards recorded messages.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}
