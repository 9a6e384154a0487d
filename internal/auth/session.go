package auth

import (
	"sync"
	"time"
)

// SessionStatus is what is known about the signed-in user.
type SessionStatus int

const (
	// StatusUnknown means the session has not been resolved yet.
	StatusUnknown SessionStatus = iota
	StatusAbsent
	StatusPresent
)

func (s SessionStatus) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	default:
		return "unknown"
	}
}

// AuthStatus is the page-level view of a session.
type AuthStatus int

const (
	Loading AuthStatus = iota
	NotUser
	NotVerified
	LoggedIn
)

func (a AuthStatus) String() string {
	switch a {
	case NotUser:
		return "not-user"
	case NotVerified:
		return "not-verified"
	case LoggedIn:
		return "logged-in"
	default:
		return "loading"
	}
}

// SessionState is one observed value of a browser session.
type SessionState struct {
	Status  SessionStatus
	User    *User
	IDToken string
	// ValidUntil is when a present session must be checked with the
	// provider again. Zero means never.
	ValidUntil time.Time
}

// Present reports whether a user is signed in.
func (s SessionState) Present() bool { return s.Status == StatusPresent && s.User != nil }

// AuthStatus derives the page-level status.
func (s SessionState) AuthStatus() AuthStatus {
	switch {
	case s.Status == StatusUnknown:
		return Loading
	case !s.Present():
		return NotUser
	case !s.User.EmailVerified:
		return NotVerified
	default:
		return LoggedIn
	}
}

const subscriberBuffer = 4

// Observable holds the session state of one browser session. It has a
// single writer and any number of subscribers.
type Observable struct {
	mu    sync.Mutex
	state SessionState
	subs  map[<-chan SessionState]chan SessionState
}

// NewObservable creates an observable in the unknown state.
func NewObservable() *Observable {
	return &Observable{subs: make(map[<-chan SessionState]chan SessionState)}
}

// Current returns the latest state.
func (o *Observable) Current() SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Set stores state and hands it to every subscriber without blocking. A
// subscriber that has fallen behind loses its oldest pending value, so the
// last value it receives is always the current one.
func (o *Observable) Set(state SessionState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = state
	for _, ch := range o.subs {
		push(ch, state)
	}
}

// Subscribe returns a channel that receives the current state immediately
// and every later change.
func (o *Observable) Subscribe() <-chan SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan SessionState, subscriberBuffer)
	ch <- o.state
	o.subs[ch] = ch
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (o *Observable) Unsubscribe(ch <-chan SessionState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.subs[ch]; ok {
		delete(o.subs, ch)
		close(c)
	}
}

// Subscribers returns the number of live subscriptions.
func (o *Observable) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

func push(ch chan SessionState, state SessionState) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}

// Sessions maps browser session ids to their observables.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	state    *Observable
	lastSeen time.Time
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

// Get returns the observable for id, creating it on first use.
func (s *Sessions) Get(id string) *Observable {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		e = &sessionEntry{state: NewObservable()}
		s.sessions[id] = e
	}
	e.lastSeen = s.now()
	return e.state
}

// Lookup returns the observable for id without creating one.
func (s *Sessions) Lookup(id string) (*Observable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.state, true
}

// Remove forgets id.
func (s *Sessions) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Release forgets id unless a subscriber is still watching it.
func (s *Sessions) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok && e.state.Subscribers() == 0 {
		delete(s.sessions, id)
	}
}

// Sweep forgets every session without subscribers that has not been used
// since cutoff and returns how many it removed.
func (s *Sessions) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) && e.state.Subscribers() == 0 {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
