package provider

import (
	"context"
	"sync"
)

type serialized struct {
	inner Provider
	gate  chan struct{}
}

// Serialize wraps p so that at most one session is open at a time. Login
// blocks until the previous session has logged out or ctx ends.
func Serialize(p Provider) Provider {
	return &serialized{inner: p, gate: make(chan struct{}, 1)}
}

func (s *serialized) Name() string { return s.inner.Name() }

func (s *serialized) Login(ctx context.Context) (Session, error) {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	sess, err := s.inner.Login(ctx)
	if err != nil {
		<-s.gate
		return nil, err
	}
	return &gatedSession{Session: sess, release: func() { <-s.gate }}, nil
}

type gatedSession struct {
	Session
	once    sync.Once
	release func()
}

func (g *gatedSession) Logout(ctx context.Context) error {
	err := g.Session.Logout(ctx)
	g.once.Do(g.release)
	return err
}
