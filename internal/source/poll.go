package source

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/nxadm/tail"
	"github.com/rs/zerolog"
)

// PollSource follows a file by polling its size, for filesystems where
// change notifications are unavailable (NFS, some container overlays).
type PollSource struct {
	emitter
}

// NewPollSource creates a polling follower for path.
func NewPollSource(path string, bufferSize int, log zerolog.Logger) *PollSource {
	return &PollSource{emitter: newEmitter(path, bufferSize, log, "PollSource")}
}

// Name returns the follower identifier.
func (s *PollSource) Name() string {
	return "poll"
}

// Run starts at the current end of the file and emits every line appended
// after that.
func (s *PollSource) Run(ctx context.Context) error {
	defer close(s.lines)

	t, err := tail.TailFile(s.path, tail.Config{
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		MustExist: true,
		Follow:    true,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return &StartupError{Path: s.path, Err: err}
	}
	defer func() {
		_ = t.Stop()
	}()

	close(s.ready)
	s.logger.Debug().Msg("polling file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-t.Lines:
			if !ok {
				s.fail(s.stopReason(t))
				<-ctx.Done()
				return nil
			}
			if line.Err != nil {
				s.fail(line.Err)
				continue
			}
			if !s.emit(ctx, trimEOL(line.Text)) {
				return nil
			}
		}
	}
}

// errTailStopped is reported when the tailer ends for no known reason.
var errTailStopped = errors.New("tailer stopped")

// stopReason explains why the tailer closed its line channel. A deleted file
// ends the tailer without an error, so the path is checked as well.
func (s *PollSource) stopReason(t *tail.Tail) error {
	<-t.Dead()
	if err := t.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); err != nil {
		s.logger.Warn().Err(err).Msg("followed file disappeared")
		return ErrRemoved
	}
	return errTailStopped
}
