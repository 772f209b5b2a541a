package stream

import "sync"

// proxy is the multicast node behind a placeholder stream.
//
// Subscribers attach to the proxy directly; the proxy itself attaches to at
// most one real stream, through Imitate. Events reach subscribers in the
// order they subscribed. A terminal event is remembered and replayed to late
// subscribers.
type proxy struct {
	mu        sync.Mutex
	listeners []proxyListener
	nextID    uint64
	bound     bool
	done      bool
	err       error
}

type proxyListener struct {
	id uint64
	e  *Emitter
}

// NewProxy creates a placeholder stream. It emits nothing until Imitate
// binds it to a real stream.
func NewProxy() *Stream {
	p := &proxy{}
	return &Stream{produce: p.attach, proxy: p}
}

// IsProxy reports whether s was created by NewProxy.
func (s *Stream) IsProxy() bool {
	return s != nil && s.proxy != nil
}

func (p *proxy) attach(e *Emitter) {
	p.mu.Lock()
	if p.done {
		err := p.err
		p.mu.Unlock()
		if err != nil {
			e.Error(err)
		} else {
			e.Complete()
		}
		return
	}
	id := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, proxyListener{id: id, e: e})
	p.mu.Unlock()

	e.OnDispose(func() { p.detach(id) })
}

func (p *proxy) detach(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, l := range p.listeners {
		if l.id == id {
			p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
			return
		}
	}
}

// snapshot returns the current listeners in subscription order. If terminal
// is set the proxy is marked done and the listener set is emptied.
func (p *proxy) snapshot(terminal bool, err error) []*Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return nil
	}
	out := make([]*Emitter, len(p.listeners))
	for i, l := range p.listeners {
		out[i] = l.e
	}
	if terminal {
		p.done = true
		p.err = err
		p.listeners = nil
	}
	return out
}

func (p *proxy) next(v any) {
	for _, e := range p.snapshot(false, nil) {
		e.Next(v)
	}
}

func (p *proxy) error(err error) {
	for _, e := range p.snapshot(true, err) {
		e.Error(err)
	}
}

func (p *proxy) complete() {
	for _, e := range p.snapshot(true, nil) {
		e.Complete()
	}
}

func (p *proxy) bind() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bound {
		return false
	}
	p.bound = true
	return true
}

// Imitate binds the proxy s to target: every event target emits from now on
// is replayed to the subscribers of s, in target's order.
//
// onError, if non-nil, is called once with a terminal error of target before
// that error is forwarded. Unsubscribing the returned subscription cuts the
// link; subscribers of s stay attached but receive nothing more.
func (s *Stream) Imitate(target *Stream, onError func(err error)) (*Subscription, error) {
	if !s.IsProxy() {
		return nil, ErrNotImitable
	}
	if target == nil {
		return nil, ErrNilStream
	}
	if !s.proxy.bind() {
		return nil, ErrAlreadyImitating
	}

	p := s.proxy
	return target.Subscribe(Listener{
		Next: p.next,
		Error: func(err error) {
			if onError != nil {
				onError(err)
			}
			p.error(err)
		},
		Complete: p.complete,
	}), nil
}
