package replay

import (
	"sync"
	"time"

	"github.com/tevino/abool"

	"cueloop.dev/cueloop/internal/core"
)

// Session is the transient state of one playback run. The scheduler owns
// exactly one session at a time; a replacement play tears the old one down
// before the new one transmits anything.
type Session struct {
	Name   string
	Frames []core.Frame
	Delays []time.Duration

	playing  *abool.AtomicBool
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

func newSession(name string, frames []core.Frame, delays []time.Duration) *Session {
	return &Session{
		Name:    name,
		Frames:  frames,
		Delays:  delays,
		playing: abool.NewBool(true),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// cancel clears the playing flag. The loop observes it at the top of the
// next frame iteration; the quit channel only shortens an in-flight sleep.
func (s *Session) cancel() {
	s.quitOnce.Do(func() {
		s.playing.UnSet()
		close(s.quit)
	})
}
