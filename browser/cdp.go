package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/valyala/fasthttp"
)

const (
	cdpDialTimeout = 10 * time.Second
	cdpReadLimit   = 64 * 1024 * 1024
)

type CDPOptions struct {
	// DevToolsURL is either a browser websocket URL
	// (ws://host:port/devtools/browser/<id>) or the http://host:port of the
	// DevTools endpoint.
	DevToolsURL  string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	PollInterval time.Duration
}

// NewCDPFactory returns a Factory opening a new page target of the browser at
// opts.DevToolsURL for every session.
func NewCDPFactory(opts CDPOptions) Factory {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return func(ctx context.Context) (Session, error) {
		s, err := openCDPSession(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type cdpMessage struct {
	ID        int64           `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *cdpError       `json:"error,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("CDP error %d: %s", e.Code, e.Message)
}

// targetGone reports whether the error says the attached session or its
// target no longer exists.
func (e *cdpError) targetGone() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "session with given id not found") ||
		strings.Contains(msg, "no target with given id")
}

type cdpResponse struct {
	result json.RawMessage
	err    *cdpError
}

type cdpSession struct {
	opts         CDPOptions
	conn         *websocket.Conn
	msgID        atomic.Int64
	stopReader   context.CancelFunc
	done         chan struct{}
	targetID     string
	sessionID    string
	url          string
	capabilities Capabilities

	mu           sync.Mutex
	pendingCalls map[int64]chan cdpResponse
	closed       bool
}

func openCDPSession(ctx context.Context, opts CDPOptions) (*cdpSession, error) {
	debuggerURL, err := resolveDebuggerURL(opts.DevToolsURL)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cdpDialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, debuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("openCDPSession() dialing %s: %w", debuggerURL, err)
	}
	conn.SetReadLimit(cdpReadLimit)

	readerCtx, stopReader := context.WithCancel(context.Background())
	s := &cdpSession{
		opts:         opts,
		conn:         conn,
		stopReader:   stopReader,
		done:         make(chan struct{}),
		pendingCalls: map[int64]chan cdpResponse{},
	}
	go s.readMessages(readerCtx)

	if err := s.attach(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// attach creates the page target of the session and applies the overrides.
func (s *cdpSession) attach(ctx context.Context) error {
	var created struct {
		TargetID string `json:"targetId"`
	}
	if err := s.call(ctx, "Target.createTarget", map[string]interface{}{"url": "about:blank"}, "", &created); err != nil {
		return fmt.Errorf("cdpSession.attach() creating target: %w", err)
	}
	s.targetID = created.TargetID

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := s.call(ctx, "Target.attachToTarget", map[string]interface{}{
		"targetId": s.targetID,
		"flatten":  true,
	}, "", &attached); err != nil {
		return fmt.Errorf("cdpSession.attach() attaching to target %s: %w", s.targetID, err)
	}
	s.sessionID = attached.SessionID

	if s.opts.UserAgent != "" {
		if err := s.call(ctx, "Emulation.setUserAgentOverride", map[string]interface{}{
			"userAgent": s.opts.UserAgent,
		}, s.sessionID, nil); err != nil {
			return fmt.Errorf("cdpSession.attach() overriding user agent: %w", err)
		}
	}
	if s.opts.WindowWidth > 0 && s.opts.WindowHeight > 0 {
		if err := s.call(ctx, "Emulation.setDeviceMetricsOverride", map[string]interface{}{
			"width":             s.opts.WindowWidth,
			"height":            s.opts.WindowHeight,
			"deviceScaleFactor": 0,
			"mobile":            false,
		}, s.sessionID, nil); err != nil {
			return fmt.Errorf("cdpSession.attach() overriding window size: %w", err)
		}
	}

	var version struct {
		Product string `json:"product"`
	}
	if err := s.call(ctx, "Browser.getVersion", nil, "", &version); err != nil {
		return fmt.Errorf("cdpSession.attach() reading browser version: %w", err)
	}
	s.capabilities.BrowserName, s.capabilities.BrowserVersion = parseProduct(version.Product)

	platform, err := s.ExecuteScript(ctx, "return navigator.platform;")
	if err != nil {
		return fmt.Errorf("cdpSession.attach() reading platform: %w", err)
	}
	if p, ok := platform.(string); ok {
		s.capabilities.Platform = p
	}
	return nil
}

func (s *cdpSession) Navigate(ctx context.Context, url string) error {
	var navigated struct {
		ErrorText string `json:"errorText"`
	}
	if err := s.call(ctx, "Page.navigate", map[string]interface{}{"url": url}, s.sessionID, &navigated); err != nil {
		return fmt.Errorf("cdpSession.Navigate() to %s: %w", url, err)
	}
	if navigated.ErrorText != "" {
		return fmt.Errorf("cdpSession.Navigate() to %s: %s", url, navigated.ErrorText)
	}
	s.url = url
	return nil
}

func (s *cdpSession) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	return PollReadyState(ctx, s.url, timeout, s.opts.PollInterval, s.ExecuteScript)
}

// ExecuteScript evaluates script as the body of a function in the page and
// returns its value. Numbers are returned as json.Number.
func (s *cdpSession) ExecuteScript(ctx context.Context, script string) (interface{}, error) {
	var evaluated struct {
		Result struct {
			Type        string          `json:"type"`
			Subtype     string          `json:"subtype"`
			Value       json.RawMessage `json:"value"`
			Description string          `json:"description"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := s.call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    "(function(){" + script + "\n})()",
		"returnByValue": true,
		"awaitPromise":  true,
	}, s.sessionID, &evaluated); err != nil {
		return nil, fmt.Errorf("cdpSession.ExecuteScript(): %w", err)
	}

	if d := evaluated.ExceptionDetails; d != nil {
		msg := d.Text
		if d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		return nil, fmt.Errorf("cdpSession.ExecuteScript() script threw: %s", msg)
	}
	if len(evaluated.Result.Value) == 0 {
		// undefined
		return nil, nil
	}

	var value interface{}
	decoder := json.NewDecoder(bytes.NewReader(evaluated.Result.Value))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("cdpSession.ExecuteScript() decoding %s value: %w", evaluated.Result.Type, err)
	}
	return value, nil
}

func (s *cdpSession) Capabilities() Capabilities {
	return s.capabilities
}

func (s *cdpSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	var closeErr error
	if s.targetID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cdpDialTimeout)
		closeErr = s.call(ctx, "Target.closeTarget", map[string]interface{}{"targetId": s.targetID}, "", nil)
		cancel()
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// The browser may already have dropped the connection.
	_ = s.conn.Close(websocket.StatusNormalClosure, "session closing")
	s.stopReader()
	<-s.done

	if closeErr != nil {
		return fmt.Errorf("cdpSession.Close() closing target %s: %w", s.targetID, closeErr)
	}
	return nil
}

// call sends a command and decodes its result into result, if not nil.
func (s *cdpSession) call(ctx context.Context, method string, params interface{}, sessionID string, result interface{}) error {
	raw, err := s.send(ctx, method, params, sessionID)
	if err != nil {
		return err
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

func (s *cdpSession) send(ctx context.Context, method string, params interface{}, sessionID string) (json.RawMessage, error) {
	id := s.msgID.Add(1)

	msg := cdpMessage{ID: id, Method: method, SessionID: sessionID}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s params: %w", method, err)
		}
		msg.Params = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", method, err)
	}

	responseCh := make(chan cdpResponse, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.pendingCalls[id] = responseCh
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pendingCalls, id)
		s.mu.Unlock()
	}()

	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSessionClosed
	case response := <-responseCh:
		if response.err != nil {
			if response.err.targetGone() {
				return nil, fmt.Errorf("%s: %w: %w", method, ErrSessionClosed, response.err)
			}
			return nil, fmt.Errorf("%s: %w", method, response.err)
		}
		return response.result, nil
	}
}

func (s *cdpSession) readMessages(ctx context.Context) {
	defer close(s.done)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg cdpMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		// Events are not needed by any caller.
		if msg.ID == 0 {
			continue
		}

		s.mu.Lock()
		ch, ok := s.pendingCalls[msg.ID]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if msg.Error != nil {
			ch <- cdpResponse{err: msg.Error}
		} else {
			ch <- cdpResponse{result: msg.Result}
		}
	}
}

// resolveDebuggerURL returns the browser websocket URL of devtoolsURL,
// reading it from /json/version for http endpoints.
func resolveDebuggerURL(devtoolsURL string) (string, error) {
	u, err := url.Parse(devtoolsURL)
	if err != nil {
		return "", fmt.Errorf("resolveDebuggerURL() parsing %s: %w", devtoolsURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return devtoolsURL, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("resolveDebuggerURL() expected a ws, wss, http or https URL; got %s", devtoolsURL)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimSuffix(devtoolsURL, "/") + "/json/version")
	if err := fasthttp.DoTimeout(req, resp, cdpDialTimeout); err != nil {
		return "", fmt.Errorf("resolveDebuggerURL() requesting %s: %w", req.URI().String(), err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("resolveDebuggerURL() expected status 200 from %s; got %d", req.URI().String(), resp.StatusCode())
	}

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.Unmarshal(resp.Body(), &version); err != nil {
		return "", fmt.Errorf("resolveDebuggerURL() decoding /json/version: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("resolveDebuggerURL() expected webSocketDebuggerUrl from %s; got none", req.URI().String())
	}
	return version.WebSocketDebuggerURL, nil
}

// parseProduct splits a Browser.getVersion product such as
// "HeadlessChrome/120.0.6099.109" into a browser name and version.
func parseProduct(product string) (name, version string) {
	name = product
	if i := strings.Index(product, "/"); i >= 0 {
		name, version = product[:i], product[i+1:]
	}
	name = strings.TrimPrefix(strings.ToLower(name), "headless")
	return name, version
}
