package parser

import (
	"slices"

	"github.com/gofrs/uuid"
)

// Event identifies the traversal a notification belongs to. It carries no
// traversal data.
type Event struct {
	Parser *Parser
	RunID  uuid.UUID
}

// Listener observes the start and end of traversals
type Listener interface {
	ParserStarted(Event)
	ParserFinished(Event)
}

// ListenerFuncs adapts plain functions to Listener. Nil functions are skipped.
type ListenerFuncs struct {
	Started  func(Event)
	Finished func(Event)
}

func (l ListenerFuncs) ParserStarted(e Event) {
	if l.Started != nil {
		l.Started(e)
	}
}

func (l ListenerFuncs) ParserFinished(e Event) {
	if l.Finished != nil {
		l.Finished(e)
	}
}

// ListenerID identifies a registration returned by AddListener
type ListenerID uint64

type registration struct {
	id       ListenerID
	listener Listener
}

// AddListener registers l. Listeners are notified in registration order.
// Registering during a traversal affects only later notifications.
func (p *Parser) AddListener(l Listener) ListenerID {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	p.listeners = append(p.listeners, registration{id: p.nextID, listener: l})
	return p.nextID
}

// RemoveListener unregisters a listener and reports whether it was registered
func (p *Parser) RemoveListener(id ListenerID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, r := range p.listeners {
		if r.id == id {
			p.listeners = slices.Delete(p.listeners, i, i+1)
			return true
		}
	}
	return false
}

// snapshot copies the registrations so notification runs without the lock
func (p *Parser) snapshot() []Listener {
	p.mu.Lock()
	defer p.mu.Unlock()

	listeners := make([]Listener, len(p.listeners))
	for i, r := range p.listeners {
		listeners[i] = r.listener
	}
	return listeners
}

func (p *Parser) fireStarted(e Event) {
	for _, l := range p.snapshot() {
		l.ParserStarted(e)
	}
}

func (p *Parser) fireFinished(e Event) {
	for _, l := range p.snapshot() {
		l.ParserFinished(e)
	}
}
