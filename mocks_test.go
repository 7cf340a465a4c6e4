package membership_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	membership "github.com/goliatone/go-membership"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// stubTokens hands out a deterministic code sequence so tests can
// assert on exact stored values.
type stubTokens struct {
	mu    sync.Mutex
	codes []string
	next  int
	err   error
}

func (s *stubTokens) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}

	if s.next < len(s.codes) {
		code := s.codes[s.next]
		s.next++
		return code, nil
	}

	code := fmt.Sprintf("code-%d", s.next)
	s.next++
	return code, nil
}

// recordingSession captures every engine instruction to the session
// port.
type recordingSession struct {
	authenticated []string
	removed       []string
	destroyed     int
	regenerated   int

	setAuthenticatedErr error
}

func (s *recordingSession) SetAuthenticated(userID string) error {
	if s.setAuthenticatedErr != nil {
		return s.setAuthenticatedErr
	}
	s.authenticated = append(s.authenticated, userID)
	return nil
}

func (s *recordingSession) Destroy() error {
	s.destroyed++
	return nil
}

func (s *recordingSession) RegenerateID() error {
	s.regenerated++
	return nil
}

func (s *recordingSession) Remove(keys ...string) error {
	s.removed = append(s.removed, keys...)
	return nil
}

type recordingCookies struct {
	deleted []string
}

func (c *recordingCookies) Delete(name string) {
	c.deleted = append(c.deleted, name)
}

// captureNotifier stores dispatched notifications for inspection.
type captureNotifier struct {
	sent []membership.Notification
	err  error
}

func (n *captureNotifier) Dispatch(_ context.Context, msg membership.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

// captureSink records activity events in order.
type captureSink struct {
	events []membership.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event membership.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) has(eventType membership.ActivityEventType) bool {
	for _, e := range s.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

// MockContext mocks router.Context. BodyJSON, when set, is unmarshaled
// into the target of Bind calls so handler payloads can be driven from
// the outside.
type MockContext struct {
	mock.Mock
	NextCalled bool
	BodyJSON   []byte
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	return m.BodyJSON
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	if err := args.Error(0); err != nil {
		return err
	}
	if len(m.BodyJSON) > 0 {
		return json.Unmarshal(m.BodyJSON, i)
	}
	return nil
}

func (m *MockContext) BindJSON(i any) error {
	return m.Bind(i)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
