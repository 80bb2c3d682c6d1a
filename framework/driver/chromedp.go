package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/adqa/browser-test-harness/framework"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

var chromedpNoise = []*regexp.Regexp{
	regexp.MustCompile(`^DevTools listening on `),
	regexp.MustCompile(`Fontconfig`),
}

const (
	jsIsDisplayed = `function() {
	const s = window.getComputedStyle(this);
	const r = this.getBoundingClientRect();
	return s.display !== 'none' && s.visibility !== 'hidden' && r.width > 0 && r.height > 0;
}`
	jsInnerText = `function() { return this.innerText; }`
	jsClick     = `function() { this.click(); }`
)

// StartChromedp is the Launcher for KindChromedp. cfg.DriverPath is the Chrome or Chromium binary
// itself; no driver service is involved.
func StartChromedp(cfg EngineConfig, logger framework.Logger) (Handle, error) {
	o := cfg.Options
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(cfg.DriverPath),
		chromedp.Flag("headless", o.Headless),
		chromedp.CombinedOutput(framework.NewLineWriter(logger, chromedpNoise...)),
	)
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	if o.WindowWidth > 0 && o.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(o.WindowWidth, o.WindowHeight))
	}
	for _, a := range o.Args {
		opts = append(opts, chromedp.Flag(trimFlag(a), true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Printf))
	// The browser is only launched by the first Run.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launching %s: %w", cfg.DriverPath, err)
	}
	logger.Printf("Started browser %s over the DevTools protocol", cfg.DriverPath)

	b := &chromedpBackend{ctx: ctx, cancel: cancel, allocCancel: allocCancel}
	return newSession(cfg.Name, b, o.PollInterval, logger), nil
}

func trimFlag(arg string) string {
	for len(arg) > 0 && arg[0] == '-' {
		arg = arg[1:]
	}
	return arg
}

type chromedpBackend struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	// frames holds the iframe nodes entered so far; queries are scoped to the last one.
	frames []*cdp.Node
}

type chromedpElement struct {
	ctx  context.Context
	node *cdp.Node
}

func (b *chromedpBackend) navigate(url string) error {
	b.frames = nil
	return chromedp.Run(b.ctx, chromedp.Navigate(url))
}

func (b *chromedpBackend) lookup(loc Locator) (Element, bool, error) {
	sel, isXPath := loc.asCSSOrXPath()
	opts := []chromedp.QueryOption{chromedp.ByQuery, chromedp.AtLeast(0)}
	if isXPath {
		opts[0] = chromedp.BySearch
	}
	if frame := b.currentFrame(); frame != nil {
		opts = append(opts, chromedp.FromNode(frame))
	}
	var nodes []*cdp.Node
	if err := chromedp.Run(b.ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, false, err
	}
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return &chromedpElement{ctx: b.ctx, node: nodes[0]}, true, nil
}

func (b *chromedpBackend) enterFrame(frame Element) error {
	el, ok := frame.(*chromedpElement)
	if !ok {
		return fmt.Errorf("element %T does not belong to this session", frame)
	}
	b.frames = append(b.frames, el.node)
	return nil
}

func (b *chromedpBackend) currentFrame() *cdp.Node {
	if len(b.frames) == 0 {
		return nil
	}
	return b.frames[len(b.frames)-1]
}

func (b *chromedpBackend) exitFrame() error {
	if len(b.frames) > 0 {
		b.frames = b.frames[:len(b.frames)-1]
	}
	return nil
}

func (b *chromedpBackend) executeScript(script string) (interface{}, error) {
	var res interface{}
	if err := chromedp.Run(b.ctx, chromedp.Evaluate(scriptExpression(script), &res)); err != nil {
		return nil, err
	}
	return res, nil
}

// scriptExpression wraps a script for Evaluate. Scripts are function bodies, as in WebDriver, and
// Evaluate fails on undefined, so that becomes null.
func scriptExpression(script string) string {
	return "(function() { const r = (function() {\n" + script + "\n})(); return r === undefined ? null : r; })()"
}

func (b *chromedpBackend) currentURL() (string, error) {
	var url string
	err := chromedp.Run(b.ctx, chromedp.Location(&url))
	return url, err
}

func (b *chromedpBackend) screenshot() ([]byte, error) {
	var buf []byte
	err := chromedp.Run(b.ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (b *chromedpBackend) close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	return err
}

// call runs a JavaScript function with the element as "this" and decodes its return value into
// res, which may be nil.
func (e *chromedpElement) call(function string, res interface{}) error {
	return chromedp.Run(e.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
		ret, exception, err := runtime.CallFunctionOn(function).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		return decodeCallResult(ret, exception, res)
	}))
}

func decodeCallResult(ret *runtime.RemoteObject, exception *runtime.ExceptionDetails, res interface{}) error {
	if exception != nil {
		return exception
	}
	if res == nil || ret == nil || len(ret.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(ret.Value, res); err != nil {
		return fmt.Errorf("unexpected result %s: %w", string(ret.Value), err)
	}
	return nil
}

func (e *chromedpElement) Click() error {
	return chromedp.Run(e.ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromedpElement) ScriptClick() error { return e.call(jsClick, nil) }

func (e *chromedpElement) IsDisplayed() (bool, error) {
	var displayed bool
	err := e.call(jsIsDisplayed, &displayed)
	return displayed, err
}

func (e *chromedpElement) Text() (string, error) {
	var text string
	err := e.call(jsInnerText, &text)
	return text, err
}
