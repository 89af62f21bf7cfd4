package room

import (
	"time"

	"github.com/aliasflow/alias-game-backend/internal/game"
	"github.com/aliasflow/alias-game-backend/pkg/types"
)

// maxTimerTicks force-stops a round timer that somehow outlives every
// cancellation path, so a room can never leak periodic work.
const maxTimerTicks = 300

func (r *Room) tickC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

func (r *Room) startTimer() {
	r.stopTimer()
	r.ticker = time.NewTicker(r.tickEvery)
	r.ticks = 0
}

func (r *Room) stopTimer() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

// tick runs on the actor loop, so it never interleaves with a command
// mid-mutation. Expiry only flags the round; the explainer still gets
// to resolve the word on screen, and the round ends on that guess.
func (r *Room) tick() {
	r.ticks++

	rd := r.g.Round()
	if r.g.Status == game.StatusFinished || rd == nil || !rd.Active {
		r.stopTimer()
		return
	}

	remaining := time.Until(rd.EndTime)
	if remaining <= 0 && !rd.TimerExpired {
		r.g.MarkTimerExpired()
		r.broadcast(types.ServerEvent{Type: types.EvtTimerExpired})
		r.broadcastState()
	} else if remaining > 0 {
		r.broadcast(types.ServerEvent{
			Type: types.EvtTimeUpdate,
			Data: map[string]any{"timeRemaining": remaining.Milliseconds()},
		})
	}

	if r.ticks > maxTimerTicks {
		r.log.Warn("round timer exceeded tick ceiling, force stopping")
		r.stopTimer()
	}
}
