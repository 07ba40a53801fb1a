package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// NotifySource follows a file using filesystem change notifications.
type NotifySource struct {
	emitter
	partial []byte
	gone    bool
}

// NewNotifySource creates an inotify-backed follower for path.
func NewNotifySource(path string, bufferSize int, log zerolog.Logger) *NotifySource {
	return &NotifySource{emitter: newEmitter(path, bufferSize, log, "NotifySource")}
}

// Name returns the follower identifier.
func (s *NotifySource) Name() string {
	return "notify"
}

// Run starts at the current end of the file and emits every line appended
// after that.
func (s *NotifySource) Run(ctx context.Context) error {
	defer close(s.lines)

	f, err := os.Open(s.path)
	if err != nil {
		return &StartupError{Path: s.path, Err: err}
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return &StartupError{Path: s.path, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.path); err != nil {
		return &StartupError{Path: s.path, Err: err}
	}

	reader := bufio.NewReader(f)
	close(s.ready)
	s.logger.Debug().Msg("following file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				<-ctx.Done()
				return nil
			}

			if event.Has(fsnotify.Write) {
				if !s.drain(ctx, reader) {
					return nil
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Chmod) {
				s.checkGone()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				<-ctx.Done()
				return nil
			}
			s.fail(err)
		}
	}
}

// checkGone reports the file once when its path no longer resolves. Linux
// delivers only an attribute change on unlink while the file is held open.
func (s *NotifySource) checkGone() {
	if s.gone {
		return
	}
	if _, err := os.Stat(s.path); err != nil {
		s.gone = true
		s.logger.Warn().Err(err).Msg("followed file disappeared")
		s.fail(ErrRemoved)
	}
}

// drain reads complete lines until EOF, keeping any unterminated tail for
// the next write.
func (s *NotifySource) drain(ctx context.Context, reader *bufio.Reader) bool {
	for {
		chunk, err := reader.ReadBytes('\n')
		if err != nil {
			s.partial = append(s.partial, chunk...)
			if !errors.Is(err, io.EOF) {
				s.fail(err)
			}
			return true
		}

		if len(s.partial) > 0 {
			chunk = append(s.partial, chunk...)
			s.partial = nil
		}
		if !s.emit(ctx, trimEOL(string(chunk))) {
			return false
		}
	}
}
