package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	cookiejar "github.com/orirawlings/persistent-cookiejar"
)

const (
	// DefaultNavigationTimeout bounds Navigate and WaitForNavigation.
	DefaultNavigationTimeout = 30 * time.Second
	// DefaultWaitTimeout bounds the element wait done before an interaction or extraction.
	DefaultWaitTimeout = 3 * time.Second
	// DefaultIdleQuiet is how long the network must stay quiet to count as settled.
	DefaultIdleQuiet = 500 * time.Millisecond
	// DefaultIdleMaxInflight is the number of requests still allowed while settled.
	DefaultIdleMaxInflight = 2
)

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateReady
	stateClosed
)

// Session owns one browser process and one page. All operations target that
// page and are serialized.
type Session struct {
	Name              string   // directory name to store session files(snapshots and cookies)
	FilePrefix        string   // prefix to directory of session files
	Headless          bool     // run without a window
	BrowserCandidates []string // probed in order when ExecPath is empty
	ExecPath          string   // browser executable; resolved by Init when empty
	UserAgent         string
	UserDataDir       string // browser profile directory; a temporary one when empty
	ExtraFlags        []chromedp.ExecAllocatorOption
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	IdleQuiet         time.Duration
	IdleMaxInflight   int
	SaveToFile        bool   // save rendered pages after each navigation
	CookieFile        string // load cookies on Init and save them on Close
	Log               Logger

	exists func(string) bool

	mu          sync.Mutex
	state       sessionState
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	network     *networkMonitor
	navMark     uint64
	jar         *cookiejar.Jar
	invokeCount int
}

func NewSession(name string, log Logger) *Session {
	return &Session{
		Name:              name,
		Headless:          true,
		BrowserCandidates: defaultBrowserCandidates(),
		UserAgent:         UserAgent_default,
		NavigationTimeout: DefaultNavigationTimeout,
		WaitTimeout:       DefaultWaitTimeout,
		IdleQuiet:         DefaultIdleQuiet,
		IdleMaxInflight:   DefaultIdleMaxInflight,
		Log:               log,
		exists:            FileExists,
	}
}

func (session *Session) Printf(format string, a ...interface{}) {
	if session.Log != nil {
		session.Log.Printf(format, a...)
	}
}

// fail logs the tagged diagnostic and returns the OperationError.
func (session *Session) fail(code OpCode, err error) error {
	opErr := &OperationError{Code: code, Err: err}
	session.Printf("%v", opErr)
	return opErr
}

// ready must be called with mu held.
func (session *Session) ready(code OpCode) error {
	switch session.state {
	case stateReady:
		return nil
	case stateClosed:
		return session.fail(code, ErrSessionClosed)
	default:
		return session.fail(code, ErrSessionNotReady)
	}
}

// Init launches the browser and opens the page.
// On failure the session stays uninitialized and Init may be called again.
func (session *Session) Init(ctx context.Context) error {
	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.state {
	case stateReady:
		return session.fail(OpInit, errors.New("session is already initialized"))
	case stateClosed:
		return session.fail(OpInit, ErrSessionClosed)
	}

	execPath, err := session.ResolveBrowser()
	if err != nil {
		return session.fail(OpInit, err)
	}

	if session.CookieFile != "" {
		jar, err := cookiejar.New(&cookiejar.Options{
			Filename:              session.CookieFile,
			PersistSessionCookies: true,
		})
		if err != nil {
			return session.fail(OpInit, fmt.Errorf("couldn't load cookies: %w", err))
		}
		session.jar = jar
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), session.allocatorOptions(execPath)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(session.Printf))

	monitor := newNetworkMonitor()
	chromedp.ListenTarget(tabCtx, monitor.handle)

	// the first Run starts the browser; it must not carry a deadline or the
	// browser would be killed when it expires.
	stop := context.AfterFunc(ctx, cancel)
	err = chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(session.restoreCookies),
	)
	stopped := stop()
	if err != nil || !stopped {
		cancel()
		allocCancel()
		session.jar = nil
		if err == nil {
			err = ctx.Err()
		}
		return session.fail(OpInit, BrowserLaunchError{ExecPath: execPath, Candidates: session.BrowserCandidates, Err: err})
	}

	session.ExecPath = execPath
	session.ctx = tabCtx
	session.cancel = cancel
	session.allocCancel = allocCancel
	session.network = monitor
	session.state = stateReady
	session.Printf("browser started: %v", execPath)
	return nil
}

// opContext derives a context for one browser call from the page context,
// cancelled when ctx is done or timeout elapses.
func (session *Session) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(session.ctx)
	stop := context.AfterFunc(ctx, cancel)
	opCtx, cancelTimeout := base, context.CancelFunc(func() {})
	if timeout > 0 {
		opCtx, cancelTimeout = context.WithTimeout(base, timeout)
	}
	return opCtx, func() {
		cancelTimeout()
		stop()
		cancel()
	}
}

func (session *Session) navigationTimeout() time.Duration {
	if session.NavigationTimeout > 0 {
		return session.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

func (session *Session) waitTimeout() time.Duration {
	if session.WaitTimeout > 0 {
		return session.WaitTimeout
	}
	return DefaultWaitTimeout
}

func (session *Session) idleQuiet() time.Duration {
	if session.IdleQuiet > 0 {
		return session.IdleQuiet
	}
	return DefaultIdleQuiet
}

func (session *Session) idleMaxInflight() int {
	if session.IdleMaxInflight > 0 {
		return session.IdleMaxInflight
	}
	return DefaultIdleMaxInflight
}

// Navigate loads url and returns once the document has loaded and the
// network has settled.
func (session *Session) Navigate(ctx context.Context, url string) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpNavigate); err != nil {
		return err
	}

	opCtx, cancel := session.opContext(ctx, session.navigationTimeout())
	defer cancel()

	session.network.reset()
	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return session.fail(OpNavigate, fmt.Errorf("%w: %v: %v", ErrNavigation, url, err))
	}
	if err := session.network.waitIdle(opCtx, session.idleQuiet(), session.idleMaxInflight()); err != nil {
		return session.fail(OpNavigate, fmt.Errorf("%w: %v: network did not settle: %v", ErrNavigation, url, err))
	}
	session.navMark = session.network.navigations()

	if session.SaveToFile {
		if err := session.savePage(opCtx); err != nil {
			return session.fail(OpNavigate, err)
		}
	}
	return nil
}

// waitFor must be called with mu held. A timeout <= 0 checks once and
// fails at once when nothing matches.
func (session *Session) waitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		present, err := session.present(ctx, selector)
		if err != nil {
			return err
		}
		if !present {
			return fmt.Errorf("%w: %q within %v", ErrElementTimeout, selector, timeout)
		}
		return nil
	}

	opCtx, cancel := session.opContext(ctx, timeout)
	defer cancel()

	err := chromedp.Run(opCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %q within %v", ErrElementTimeout, selector, timeout)
		}
		return err
	}
	return nil
}

// WaitForElement waits until an element matching selector is in the document.
func (session *Session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpWaitForElement); err != nil {
		return err
	}

	if err := session.waitFor(ctx, selector, timeout); err != nil {
		return session.fail(OpWaitForElement, err)
	}
	return nil
}

// interact waits for selector with the default timeout and then runs actions.
func (session *Session) interact(ctx context.Context, code OpCode, selector string, actions ...chromedp.Action) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(code); err != nil {
		return err
	}

	if err := session.waitFor(ctx, selector, session.waitTimeout()); err != nil {
		return session.fail(code, err)
	}

	session.navMark = session.network.navigations()

	opCtx, cancel := session.opContext(ctx, session.waitTimeout())
	defer cancel()
	if err := chromedp.Run(opCtx, actions...); err != nil {
		return session.fail(code, fmt.Errorf("%q: %w", selector, err))
	}
	return nil
}

func (session *Session) Click(ctx context.Context, selector string) error {
	return session.interact(ctx, OpClick, selector, chromedp.Click(selector, chromedp.ByQuery))
}

func (session *Session) Type(ctx context.Context, selector string, text string) error {
	return session.interact(ctx, OpType, selector, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

const selectOptionsFunction = `function(values) {
	const wanted = new Set(values);
	const selected = [];
	for (const option of this.options || []) {
		option.selected = wanted.has(option.value);
		if (option.selected) {
			selected.push(option.value);
		}
	}
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	return selected;
}`

// Select selects the options of the <select> element whose values are listed
// and deselects the rest.
func (session *Session) Select(ctx context.Context, selector string, values ...string) error {
	if values == nil {
		values = []string{}
	}
	var nodes []*cdp.Node
	var selected []string
	return session.interact(ctx, OpSelect, selector,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return callFunctionOnNode(ctx, nodes[0], selectOptionsFunction, &selected, values)
		}),
	)
}

// CurrentURL returns the address of the page.
func (session *Session) CurrentURL(ctx context.Context) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpCurrentURL); err != nil {
		return "", err
	}

	opCtx, cancel := session.opContext(ctx, session.waitTimeout())
	defer cancel()

	var location string
	if err := chromedp.Run(opCtx, chromedp.Location(&location)); err != nil {
		return "", session.fail(OpCurrentURL, err)
	}
	return location, nil
}

// Screenshot writes a PNG of the visible page to path.
func (session *Session) Screenshot(ctx context.Context, path string) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpScreenshot); err != nil {
		return err
	}

	opCtx, cancel := session.opContext(ctx, session.navigationTimeout())
	defer cancel()

	var buf []byte
	if err := chromedp.Run(opCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return session.fail(OpScreenshot, err)
	}
	if err := os.WriteFile(path, buf, os.FileMode(0644)); err != nil {
		return session.fail(OpScreenshot, err)
	}
	return nil
}

// propertyValue is what readPropertyFunction returns for one element.
type propertyValue struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

const readPropertyFunction = `function(name) {
	const v = this[name];
	if (v === undefined || v === null) {
		return { found: false, value: "" };
	}
	return { found: true, value: typeof v === "string" ? v : (typeof v === "object" ? JSON.stringify(v) : String(v)) };
}`

// readProperties must be called with mu held. Nodes are in document order.
func (session *Session) readProperties(ctx context.Context, selector string, property string, limit int) ([]propertyValue, error) {
	opCtx, cancel := session.opContext(ctx, session.waitTimeout())
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}

	values := make([]propertyValue, len(nodes))
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for i, node := range nodes {
			if err := callFunctionOnNode(ctx, node, readPropertyFunction, &values[i], property); err != nil {
				return fmt.Errorf("#%d: %w", i, err)
			}
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ExtractOne returns the named DOM property of the first element matching
// selector. A missing element or an absent property is ErrNotFound.
func (session *Session) ExtractOne(ctx context.Context, selector string, property string) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpExtractOne); err != nil {
		return "", err
	}

	if err := session.waitFor(ctx, selector, session.waitTimeout()); err != nil {
		if IsTimeout(err) {
			err = fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return "", session.fail(OpExtractOne, err)
	}
	values, err := session.readProperties(ctx, selector, property, 1)
	if err != nil {
		return "", session.fail(OpExtractOne, fmt.Errorf("%q: %w", selector, err))
	}
	if len(values) == 0 || !values[0].Found {
		return "", session.fail(OpExtractOne, fmt.Errorf("%w: %q.%v", ErrNotFound, selector, property))
	}
	return values[0].Value, nil
}

// ExtractMany returns the named property of every element matching selector,
// in document order. No match gives an empty slice; absent properties are
// returned as empty strings.
func (session *Session) ExtractMany(ctx context.Context, selector string, property string) ([]string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpExtractMany); err != nil {
		return nil, err
	}

	if err := session.waitFor(ctx, selector, session.waitTimeout()); err != nil {
		if IsTimeout(err) {
			return []string{}, nil
		}
		return nil, session.fail(OpExtractMany, err)
	}
	values, err := session.readProperties(ctx, selector, property, 0)
	if err != nil {
		return nil, session.fail(OpExtractMany, fmt.Errorf("%q: %w", selector, err))
	}
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = v.Value
	}
	return result, nil
}

// WaitFixed sleeps for d without looking at the page.
func (session *Session) WaitFixed(ctx context.Context, d time.Duration) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpWaitFixed); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return session.fail(OpWaitFixed, ctx.Err())
	}
}

// WaitForNavigation waits for a page transition started after the last
// Navigate or interaction to load and settle.
func (session *Session) WaitForNavigation(ctx context.Context) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpWaitForNavigation); err != nil {
		return err
	}

	opCtx, cancel := session.opContext(ctx, session.navigationTimeout())
	defer cancel()

	mark := session.navMark
	if err := session.network.waitNavigation(opCtx, mark, session.idleQuiet(), session.idleMaxInflight()); err != nil {
		return session.fail(OpWaitForNavigation, fmt.Errorf("%w: %v", ErrNavigation, err))
	}
	session.navMark = session.network.navigations()
	return nil
}

// ElementExists reports whether an element matching selector is present now.
func (session *Session) ElementExists(ctx context.Context, selector string) (bool, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpElementExists); err != nil {
		return false, err
	}

	present, err := session.present(ctx, selector)
	if err != nil {
		return false, session.fail(OpElementExists, err)
	}
	return present, nil
}

// present must be called with mu held.
func (session *Session) present(ctx context.Context, selector string) (bool, error) {
	opCtx, cancel := session.opContext(ctx, session.waitTimeout())
	defer cancel()

	var ids []cdp.NodeID
	if err := chromedp.Run(opCtx, chromedp.NodeIDs(selector, &ids, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Close stops the browser. A second Close fails with ErrSessionClosed.
func (session *Session) Close() error {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpClose); err != nil {
		return err
	}

	var errs []error
	if session.jar != nil {
		opCtx, cancel := session.opContext(context.Background(), session.waitTimeout())
		if err := chromedp.Run(opCtx, chromedp.ActionFunc(session.storeCookies)); err != nil {
			errs = append(errs, fmt.Errorf("couldn't save cookies: %w", err))
		}
		cancel()
	}

	if err := chromedp.Cancel(session.ctx); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	session.cancel()
	session.allocCancel()
	session.state = stateClosed

	if err := errors.Join(errs...); err != nil {
		return session.fail(OpClose, err)
	}
	return nil
}
