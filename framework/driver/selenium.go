package driver

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"

	"github.com/adqa/browser-test-harness/framework"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// Driver service output that says nothing about the test.
var seleniumNoise = []*regexp.Regexp{
	regexp.MustCompile(`Only local connections are allowed`),
	regexp.MustCompile(`Please see https://chromedriver\.chromium\.org/security-considerations`),
	regexp.MustCompile(`ChromeDriver was started successfully`),
	regexp.MustCompile(`Listening on 127\.0\.0\.1:\d+`),
}

// StartSelenium is the Launcher for KindChrome and KindFirefox. It starts chromedriver or
// geckodriver from cfg.DriverPath on a free local port and opens a WebDriver session through it.
func StartSelenium(cfg EngineConfig, logger framework.Logger) (Handle, error) {
	if _, err := os.Stat(cfg.DriverPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, cfg.DriverPath)
		}
		return nil, err
	}
	port, err := freePort()
	if err != nil {
		return nil, err
	}
	output := framework.NewLineWriter(logger, seleniumNoise...)

	var service *selenium.Service
	caps := selenium.Capabilities{}
	switch cfg.Kind {
	case KindChrome:
		caps["browserName"] = "chrome"
		caps.AddChrome(chrome.Capabilities{Args: chromeArgs(cfg.Options), W3C: true})
		service, err = selenium.NewChromeDriverService(cfg.DriverPath, port, selenium.Output(output))
	case KindFirefox:
		caps["browserName"] = "firefox"
		fc := firefox.Capabilities{Args: append([]string(nil), cfg.Options.Args...)}
		if cfg.Options.Headless {
			fc.Args = append(fc.Args, "-headless")
		}
		if cfg.Options.UserAgent != "" {
			fc.Prefs = map[string]interface{}{"general.useragent.override": cfg.Options.UserAgent}
		}
		caps.AddFirefox(fc)
		service, err = selenium.NewGeckoDriverService(cfg.DriverPath, port, selenium.Output(output))
	default:
		return nil, fmt.Errorf("%w %q for WebDriver", ErrUnknownEngineKind, cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("starting driver service %s: %w", cfg.DriverPath, err)
	}

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://127.0.0.1:%d", port))
	if err != nil {
		_ = service.Stop()
		return nil, fmt.Errorf("opening WebDriver session: %w", err)
	}
	if cfg.Kind == KindFirefox && cfg.Options.WindowWidth > 0 && cfg.Options.WindowHeight > 0 {
		if err := wd.ResizeWindow("", cfg.Options.WindowWidth, cfg.Options.WindowHeight); err != nil {
			logger.Printf("Could not resize window (ignored): %s", err)
		}
	}
	logger.Printf("Started %s session using %s on port %d", cfg.Kind, cfg.DriverPath, port)

	b := &seleniumBackend{wd: wd, service: service}
	return newSession(cfg.Name, b, cfg.Options.PollInterval, logger), nil
}

func chromeArgs(o StartupOptions) []string {
	var args []string
	if o.Headless {
		args = append(args, "headless")
	}
	if o.WindowWidth > 0 && o.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", o.WindowWidth, o.WindowHeight))
	}
	if o.UserAgent != "" {
		args = append(args, "--user-agent="+o.UserAgent)
	}
	return append(args, o.Args...)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding a free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

type seleniumBackend struct {
	wd      selenium.WebDriver
	service stopper
	// frames is the path from the top document to the current frame. WebDriver has no portable
	// "parent frame" command in this client, so leaving a frame replays the path from the top.
	frames []selenium.WebElement
}

// stopper is the driver process behind a WebDriver session, normally a *selenium.Service.
type stopper interface {
	Stop() error
}

type seleniumElement struct {
	wd selenium.WebDriver
	we selenium.WebElement
}

func seleniumBy(kind LocatorKind) string {
	switch kind {
	case ByXPath:
		return selenium.ByXPATH
	case ByID:
		return selenium.ByID
	case ByName:
		return selenium.ByName
	case ByClassName:
		return selenium.ByClassName
	case ByTagName:
		return selenium.ByTagName
	case ByLinkText:
		return selenium.ByLinkText
	default:
		return selenium.ByCSSSelector
	}
}

func (b *seleniumBackend) navigate(url string) error {
	b.frames = nil
	return b.wd.Get(url)
}

func (b *seleniumBackend) lookup(loc Locator) (Element, bool, error) {
	// FindElements reports absence as an empty list rather than a "no such element" error.
	found, err := b.wd.FindElements(seleniumBy(loc.Kind), loc.Value)
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		return nil, false, nil
	}
	return &seleniumElement{wd: b.wd, we: found[0]}, true, nil
}

func (b *seleniumBackend) enterFrame(frame Element) error {
	el, ok := frame.(*seleniumElement)
	if !ok {
		return fmt.Errorf("element %T does not belong to this session", frame)
	}
	if err := b.wd.SwitchFrame(el.we); err != nil {
		return err
	}
	b.frames = append(b.frames, el.we)
	return nil
}

func (b *seleniumBackend) exitFrame() error {
	if len(b.frames) == 0 {
		return nil
	}
	b.frames = b.frames[:len(b.frames)-1]
	if err := b.wd.SwitchFrame(nil); err != nil {
		return err
	}
	for _, f := range b.frames {
		if err := b.wd.SwitchFrame(f); err != nil {
			return err
		}
	}
	return nil
}

func (b *seleniumBackend) executeScript(script string) (interface{}, error) {
	return b.wd.ExecuteScript(script, nil)
}

func (b *seleniumBackend) currentURL() (string, error) { return b.wd.CurrentURL() }

func (b *seleniumBackend) screenshot() ([]byte, error) { return b.wd.Screenshot() }

func (b *seleniumBackend) close() error {
	quitErr := b.wd.Quit()
	var stopErr error
	if b.service != nil {
		stopErr = b.service.Stop()
	}
	if quitErr != nil {
		return quitErr
	}
	return stopErr
}

func (e *seleniumElement) Click() error { return e.we.Click() }

func (e *seleniumElement) ScriptClick() error {
	_, err := e.wd.ExecuteScript("arguments[0].click();", []interface{}{e.we})
	return err
}

func (e *seleniumElement) IsDisplayed() (bool, error) { return e.we.IsDisplayed() }

func (e *seleniumElement) Text() (string, error) { return e.we.Text() }
