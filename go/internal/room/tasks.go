package room

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/memorycell/go/internal/events"
	"github.com/mcdev12/memorycell/go/internal/game"
)

// runCountdown is the per-room timer task. Every second it re-enters
// the room lock and ticks the authoritative shared state — never a
// private snapshot — so matches scored by concurrent flips are always
// visible to its end-of-game check and to the countdown value it
// broadcasts. It stops when the countdown hits zero, when all cards
// are matched, or when the room context is cancelled.
func (reg *Registry) runCountdown(rm *Room) {
	ticker := reg.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-rm.ctx.Done():
			return
		case <-ticker.Chan():
		}
		// The select is racy when a tick and the cancellation fire
		// together; a removed room must not be touched.
		if rm.ctx.Err() != nil {
			return
		}

		rm.mu.Lock()
		if rm.state.Status != game.StatusPlaying {
			rm.mu.Unlock()
			return
		}
		remaining := rm.state.TickTimer()
		done := remaining <= 0 || rm.state.AllMatched()
		var msg events.ServerMessage
		if done {
			winner := rm.state.DetermineWinner()
			rm.state.Finish(winner)
			msg = events.GameOver(winner, rm.state.Scores)
			rm.cancel()
		} else {
			msg = events.GameStateUpdate(rm.state.Clone())
		}
		rm.mu.Unlock()

		reg.broadcast(rm, msg)
		if done {
			log.Info().
				Str("room_id", rm.id).
				Int("remaining", remaining).
				Msg("countdown finished, game over")
			return
		}
	}
}

// runUnflip is the delayed mismatch resolution: after the configured
// delay it turns the two revealed cards face down again and
// broadcasts the result. Cancelled along with the room.
func (reg *Registry) runUnflip(rm *Room, pair [2]int) {
	timer := reg.clock.NewTimer(reg.cfg.MismatchDelay)
	defer timer.Stop()

	select {
	case <-rm.ctx.Done():
		return
	case <-timer.Chan():
	}
	// The select is racy when the timer and the cancellation fire
	// together; a finished or removed room must not be touched.
	if rm.ctx.Err() != nil {
		return
	}

	rm.mu.Lock()
	if rm.state.Status != game.StatusPlaying {
		rm.mu.Unlock()
		return
	}
	rm.state.Unflip(pair[0], pair[1])
	snap := rm.state.Clone()
	rm.mu.Unlock()

	reg.broadcast(rm, events.GameStateUpdate(snap))
}
