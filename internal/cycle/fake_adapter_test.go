package cycle

import (
	"errors"
	"fmt"
	"sync"
)

// fakeStream is a minimal stream handle used to observe what the runtime
// does with streams, independent of any real stream library.
type fakeStream struct {
	name     string
	disposed int
}

func (s *fakeStream) Dispose() {
	s.disposed++
}

// fakeAdapter records every call the runtime makes.
type fakeAdapter struct {
	mu        sync.Mutex
	made      int
	imitated  []string // "placeholder<-source"
	unlinked  []string
	failOn    string // source name whose Imitate fails
	invalid   map[*fakeStream]bool
	onImitate func(placeholder, source *fakeStream)
	observed  []string // streams handed to drivers through ObserveErrors
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{invalid: make(map[*fakeStream]bool)}
}

func (a *fakeAdapter) MakeEmpty() *fakeStream {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.made++
	return &fakeStream{name: fmt.Sprintf("empty-%d", a.made)}
}

func (a *fakeAdapter) FromValue(v any) *fakeStream {
	return &fakeStream{name: fmt.Sprint(v)}
}

func (a *fakeAdapter) IsValid(candidate any) bool {
	s, ok := candidate.(*fakeStream)
	return ok && s != nil && !a.invalid[s]
}

func (a *fakeAdapter) Imitate(placeholder, source *fakeStream, onError func(err error)) (func(), error) {
	if source.name == a.failOn {
		return nil, errors.New("cannot imitate " + source.name)
	}
	link := placeholder.name + "<-" + source.name

	a.mu.Lock()
	a.imitated = append(a.imitated, link)
	a.mu.Unlock()

	if a.onImitate != nil {
		a.onImitate(placeholder, source)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.unlinked = append(a.unlinked, link)
			a.mu.Unlock()
		})
	}, nil
}

// ObserveErrors cannot tap a fake stream; it records the call and returns s
// unchanged so tests can compare sink identity.
func (a *fakeAdapter) ObserveErrors(s *fakeStream, onError func(err error)) *fakeStream {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s != nil {
		a.observed = append(a.observed, s.name)
	}
	return s
}

// constDriver returns a driver that ignores its sink and returns source.
func constDriver(source *fakeStream) Driver[*fakeStream] {
	return func(sink *fakeStream, sources Sources[*fakeStream]) (*fakeStream, error) {
		return source, nil
	}
}
