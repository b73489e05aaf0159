// Package logtail follows a service log file in the foreground, the way
// `tail -f` does. The follow loop blocks until the context is canceled,
// which the CLI wires to an interrupt keystroke.
package logtail

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nxadm/tail"
)

// tailBackOffset is how much trailing history is replayed before following.
const tailBackOffset = 4096

// ErrNoLogFile is returned when the requested log file does not exist yet;
// the caller reports it and returns immediately instead of blocking.
var ErrNoLogFile = fmt.Errorf("log file not found")

// Follow streams path to w until ctx is canceled. A missing file returns
// ErrNoLogFile without blocking.
func Follow(ctx context.Context, path string, w io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoLogFile, path)
		}
		return err
	}
	loc := &tail.SeekInfo{Offset: -tailBackOffset, Whence: io.SeekEnd}
	if info.Size() < tailBackOffset {
		loc = &tail.SeekInfo{Whence: io.SeekStart}
	}
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      true,
		Location:  loc,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line == nil || line.Err != nil {
				continue
			}
			_, _ = fmt.Fprintln(w, line.Text)
		case <-ctx.Done():
			return nil
		}
	}
}
