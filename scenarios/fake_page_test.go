package scenarios

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework/driver"
)

// fakePage is a driver.Handle over an in-memory page made of nested frames. Elements can change
// state when clicked, which is enough to walk through a scenario without a browser.
type fakePage struct {
	url      string
	frames   map[string]*fakeFrame
	current  []string
	scripts  []string
	readyErr error
	quits    int
	lock     sync.Mutex
}

type fakeFrame struct {
	elements map[string]*fakeElement
	// children maps an iframe selector to the name of the frame it contains.
	children map[string]string
}

type fakeElement struct {
	page         *fakePage
	displayed    bool
	onClick      func()
	nativeBroken bool
	clicks       int
}

func newFakePage() *fakePage {
	return &fakePage{frames: map[string]*fakeFrame{"": newFakeFrame()}}
}

func newFakeFrame() *fakeFrame {
	return &fakeFrame{elements: map[string]*fakeElement{}, children: map[string]string{}}
}

func (p *fakePage) frame(name string) *fakeFrame {
	if f, ok := p.frames[name]; ok {
		return f
	}
	f := newFakeFrame()
	p.frames[name] = f
	return f
}

func (p *fakePage) add(frame, selector string, displayed bool) *fakeElement {
	el := &fakeElement{page: p, displayed: displayed}
	p.frame(frame).elements[selector] = el
	return el
}

func (p *fakePage) addFrame(parent, selector, name string) {
	p.frame(parent).children[selector] = name
	p.frame(name)
}

func (p *fakePage) currentFrame() *fakeFrame {
	if len(p.current) == 0 {
		return p.frames[""]
	}
	return p.frames[p.current[len(p.current)-1]]
}

func (p *fakePage) Engine() string { return "fake" }

func (p *fakePage) Navigate(url string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.url = url
	p.current = nil
	return nil
}

func (p *fakePage) Find(loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if el, ok := p.currentFrame().elements[loc.Value]; ok {
		return el, nil
	}
	if _, ok := p.currentFrame().children[loc.Value]; ok {
		return &fakeElement{page: p, displayed: true}, nil
	}
	return nil, &driver.ElementNotFoundError{Locator: loc, Timeout: timeout}
}

func (p *fakePage) WaitUntil(cond driver.Condition, timeout time.Duration) error {
	ok, err := cond.Check(p)
	if err != nil {
		return err
	}
	if !ok {
		return &driver.TimeoutError{Condition: cond.Description, Timeout: timeout, Elapsed: timeout}
	}
	return nil
}

func (p *fakePage) SwitchToFrame(loc driver.Locator, timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	name, ok := p.currentFrame().children[loc.Value]
	if !ok {
		return &driver.ElementNotFoundError{Locator: loc, Timeout: timeout}
	}
	p.current = append(p.current, name)
	return nil
}

func (p *fakePage) SwitchToParentFrame() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.current) > 0 {
		p.current = p.current[:len(p.current)-1]
	}
	return nil
}

func (p *fakePage) ExecuteScript(script string) (interface{}, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.scripts = append(p.scripts, script)
	if strings.Contains(script, "readyState") {
		if p.readyErr != nil {
			return nil, p.readyErr
		}
		return "complete", nil
	}
	return nil, nil
}

func (p *fakePage) CurrentURL() (string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.url, nil
}

func (p *fakePage) Screenshot() ([]byte, error) { return nil, errors.New("no screen") }

func (p *fakePage) Quit() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.quits++
}

func (e *fakeElement) Click() error {
	if e.nativeBroken {
		return errors.New("element click intercepted")
	}
	return e.ScriptClick()
}

func (e *fakeElement) ScriptClick() error {
	e.page.lock.Lock()
	e.clicks++
	onClick := e.onClick
	e.page.lock.Unlock()
	if onClick != nil {
		onClick()
	}
	return nil
}

func (e *fakeElement) IsDisplayed() (bool, error) {
	e.page.lock.Lock()
	defer e.page.lock.Unlock()
	return e.displayed, nil
}

func (e *fakeElement) Text() (string, error) { return "", nil }

func (e *fakeElement) setDisplayed(displayed bool) {
	e.page.lock.Lock()
	defer e.page.lock.Unlock()
	e.displayed = displayed
}
