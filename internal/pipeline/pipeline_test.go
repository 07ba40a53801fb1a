package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/model"
	"github.com/GabrielNunesIT/log2gelf/internal/parser"
	"github.com/GabrielNunesIT/log2gelf/internal/source"
	"github.com/GabrielNunesIT/log2gelf/internal/testutil"
)

// fakeSource replays a fixed set of lines and errors, then idles until
// cancelled.
type fakeSource struct {
	lines  chan model.RawLine
	errs   chan error
	runErr error
}

func newFakeSource(texts ...string) *fakeSource {
	s := &fakeSource{
		lines: make(chan model.RawLine, len(texts)),
		errs:  make(chan error, 4),
	}
	for _, text := range texts {
		s.lines <- model.RawLine{Text: text, Path: "/var/log/test.log"}
	}
	return s
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Run(ctx context.Context) error {
	defer close(s.lines)
	if s.runErr != nil {
		return s.runErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeSource) Lines() <-chan model.RawLine { return s.lines }

func (s *fakeSource) Errors() <-chan error { return s.errs }

var testNow = time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Hostname = "web-01"
	cfg.Source.Path = "/var/log/test.log"
	cfg.Transport.Host = "graylog"
	cfg.Pipeline.ShutdownTimeout = time.Second
	return cfg
}

func testParser(t *testing.T, dialect model.Dialect) parser.Parser {
	t.Helper()
	prs, err := parser.New(dialect, parser.WithClock(func() time.Time { return testNow }), parser.WithLocation(time.UTC))
	require.NoError(t, err)
	return prs
}

// recordingTransport sets up a mock transport that forwards every payload
// to the returned channel.
func recordingTransport(sendErr error) (*testutil.MockTransport, chan []byte) {
	sent := make(chan []byte, 16)
	mt := &testutil.MockTransport{}
	mt.On("Name").Return("mock").Maybe()
	mt.On("Start", mock.Anything).Return(nil).Once()
	mt.On("Stop", mock.Anything).Return(nil).Once()
	mt.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent <- args.Get(1).([]byte)
	}).Return(sendErr)
	return mt, sent
}

type notifications struct {
	mu     sync.Mutex
	states []string
}

func (n *notifications) notify(state string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
}

func (n *notifications) get() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.states...)
}

func runPipeline(t *testing.T, p *Pipeline) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
		return nil
	}
}

func receive(t *testing.T, sent <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-sent:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for send")
		return nil
	}
}

func TestPipeline_SyslogScenario(t *testing.T) {
	src := newFakeSource("Jan 05 10:22:31 myhost sshd[123]: Accepted password for bob")
	mt, sent := recordingTransport(nil)
	n := &notifications{}

	p, err := New(testConfig(), testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectSyslog)),
		WithTransport(mt), WithNotifier(n.notify))
	require.NoError(t, err)

	cancel, done := runPipeline(t, p)

	ts := time.Date(2026, time.January, 5, 10, 22, 31, 0, time.UTC).Unix()
	want := fmt.Sprintf(`{"host":"web-01","short_message":"Accepted password for bob","timestamp":%d,"_service":"sshd[123]","_logtype":"syslog"}`, ts)
	assert.JSONEq(t, want, string(receive(t, sent)))

	cancel()
	require.NoError(t, waitDone(t, done))

	mt.AssertExpectations(t)
	assert.Equal(t, []string{daemon.SdNotifyReady, daemon.SdNotifyStopping}, n.get())
	assert.Equal(t, Stats{Lines: 1, Sent: 1}, p.Stats())
}

func TestPipeline_PreservesOrder(t *testing.T) {
	src := newFakeSource(
		"[Mon Oct 19 08:00:01.000001 2026] one",
		"[Mon Oct 19 08:00:02.000002 2026] two",
		"[Mon Oct 19 08:00:03.000003 2026] three",
	)
	mt, sent := recordingTransport(nil)

	cfg := testConfig()
	cfg.Dialect = string(model.DialectApache)
	p, err := New(cfg, testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectApache)),
		WithTransport(mt), WithNotifier(func(string) {}))
	require.NoError(t, err)

	cancel, done := runPipeline(t, p)

	for _, want := range []string{"one", "two", "three"} {
		assert.Contains(t, string(receive(t, sent)), `"short_message":"`+want+`"`)
	}

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestPipeline_LenientSkipsBadLines(t *testing.T) {
	src := newFakeSource(
		"garbage that matches nothing",
		"",
		"Jan 05 10:22:31 myhost cron: job done",
	)
	mt, sent := recordingTransport(nil)

	p, err := New(testConfig(), testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectSyslog)),
		WithTransport(mt), WithNotifier(func(string) {}))
	require.NoError(t, err)

	cancel, done := runPipeline(t, p)

	assert.Contains(t, string(receive(t, sent)), `"short_message":"job done"`)

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Equal(t, Stats{Lines: 3, ParseErrors: 1, Sent: 1}, p.Stats())
}

func TestPipeline_StrictStopsOnBadLine(t *testing.T) {
	src := newFakeSource("garbage that matches nothing")
	mt, _ := recordingTransport(nil)

	cfg := testConfig()
	cfg.Parser.Strict = true
	p, err := New(cfg, testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectSyslog)),
		WithTransport(mt), WithNotifier(func(string) {}))
	require.NoError(t, err)

	_, done := runPipeline(t, p)
	err = waitDone(t, done)

	var parseErr *parser.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, parser.ErrNoMatch)
	mt.AssertCalled(t, "Stop", mock.Anything)
	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPipeline_SendErrorsAreNotFatal(t *testing.T) {
	src := newFakeSource(
		"Jan 05 10:22:31 myhost a: first",
		"Jan 05 10:22:32 myhost b: second",
	)
	mt, sent := recordingTransport(errors.New("connection refused"))

	p, err := New(testConfig(), testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectSyslog)),
		WithTransport(mt), WithNotifier(func(string) {}))
	require.NoError(t, err)

	cancel, done := runPipeline(t, p)
	receive(t, sent)
	receive(t, sent)

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Equal(t, Stats{Lines: 2, SendErrors: 2}, p.Stats())
}

func TestPipeline_SourceErrorsAreNotFatal(t *testing.T) {
	src := newFakeSource()
	src.errs <- &source.ReadError{Path: "/var/log/test.log", Err: source.ErrRemoved}
	mt, _ := recordingTransport(nil)

	p, err := New(testConfig(), testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectSyslog)),
		WithTransport(mt), WithNotifier(func(string) {}))
	require.NoError(t, err)

	cancel, done := runPipeline(t, p)

	select {
	case err := <-done:
		t.Fatalf("pipeline stopped on a read error: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestPipeline_SourceStartupFailure(t *testing.T) {
	src := newFakeSource()
	src.runErr = &source.StartupError{Path: "/var/log/test.log", Err: errors.New("permission denied")}
	mt, _ := recordingTransport(nil)

	p, err := New(testConfig(), testutil.NewTestLogger(),
		WithSource(src), WithParser(testParser(t, model.DialectSyslog)),
		WithTransport(mt), WithNotifier(func(string) {}))
	require.NoError(t, err)

	_, done := runPipeline(t, p)

	var startupErr *source.StartupError
	assert.ErrorAs(t, waitDone(t, done), &startupErr)
}

func TestNew_UnreadableFileStartsNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Source.Path = filepath.Join(t.TempDir(), "missing.log")
	mt := &testutil.MockTransport{}

	p, err := New(cfg, testutil.NewTestLogger(), WithTransport(mt))

	assert.Nil(t, p)
	var startupErr *source.StartupError
	require.ErrorAs(t, err, &startupErr)
	assert.Equal(t, cfg.Source.Path, startupErr.Path)
	mt.AssertNotCalled(t, "Start", mock.Anything)
}

func TestNew_BuildsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Source.Path = filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, writeEmpty(cfg.Source.Path))
	cfg.Dialect = string(model.DialectNginx)
	cfg.Transport.Protocol = config.ProtocolStdout

	p, err := New(cfg, testutil.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, "notify", p.source.Name())
	assert.Equal(t, model.DialectNginx, p.parser.Dialect())
	assert.Equal(t, "stdout", p.transport.Name())
}

func TestNew_UnsupportedProtocol(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Protocol = "udp"

	_, err := New(cfg, testutil.NewTestLogger(), WithSource(newFakeSource()))
	assert.ErrorContains(t, err, "udp")
}

func writeEmpty(path string) error {
	return os.WriteFile(path, nil, 0o644)
}
