package driver

import (
	"errors"
	"sync"
	"time"
)

// fakeBackend simulates a page whose elements appear at given times after the backend is created.
type fakeBackend struct {
	start     time.Time
	elements  map[Locator]*fakeElement
	url       string
	frames    []*fakeElement
	lookupErr error
	closeErr  error
	closes    int
	lock      sync.Mutex
}

type fakeElement struct {
	name      string
	appearsAt time.Duration
	hidesAt   time.Duration // zero means never
	clicks    int
	start     time.Time
	lock      sync.Mutex
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{start: time.Now(), elements: make(map[Locator]*fakeElement)}
}

func (b *fakeBackend) add(loc Locator, appearsAt, hidesAt time.Duration) *fakeElement {
	el := &fakeElement{name: loc.Value, appearsAt: appearsAt, hidesAt: hidesAt, start: b.start}
	b.elements[loc] = el
	return el
}

func (b *fakeBackend) navigate(url string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.url = url
	b.frames = nil
	return nil
}

func (b *fakeBackend) lookup(loc Locator) (Element, bool, error) {
	if b.lookupErr != nil {
		return nil, false, b.lookupErr
	}
	el, ok := b.elements[loc]
	if !ok || time.Since(b.start) < el.appearsAt {
		return nil, false, nil
	}
	return el, true, nil
}

func (b *fakeBackend) enterFrame(frame Element) error {
	el, ok := frame.(*fakeElement)
	if !ok {
		return errors.New("not a fake element")
	}
	b.frames = append(b.frames, el)
	return nil
}

func (b *fakeBackend) exitFrame() error {
	if len(b.frames) > 0 {
		b.frames = b.frames[:len(b.frames)-1]
	}
	return nil
}

func (b *fakeBackend) executeScript(script string) (interface{}, error) { return script, nil }

func (b *fakeBackend) currentURL() (string, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.url, nil
}

func (b *fakeBackend) screenshot() ([]byte, error) { return []byte("png"), nil }

func (b *fakeBackend) close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closes++
	return b.closeErr
}

func (e *fakeElement) Click() error {
	e.lock.Lock()
	e.clicks++
	e.lock.Unlock()
	return nil
}

func (e *fakeElement) ScriptClick() error { return e.Click() }

func (e *fakeElement) IsDisplayed() (bool, error) {
	if e.hidesAt == 0 {
		return true, nil
	}
	return time.Since(e.start) < e.hidesAt, nil
}

func (e *fakeElement) Text() (string, error) { return e.name, nil }
