package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aliasflow/alias-game-backend/internal/game"
	"github.com/aliasflow/alias-game-backend/pkg/types"
)

var ErrNotHost = errors.New("only the host can do that")
var ErrNotExplainer = errors.New("not your turn to explain")
var ErrNotNextExplainer = errors.New("only the next explainer can do that")
var ErrNoNextExplainer = errors.New("could not determine next explainer")
var ErrSettingsLocked = errors.New("cannot update settings after game started")
var ErrMissingField = errors.New("missing required fields")
var ErrUnknownCommand = errors.New("unknown command")

const statsWriteTimeout = 5 * time.Second

func (r *Room) handleCommand(msg Command) {
	r.touch()

	ack := r.dispatch(msg.UserID, msg.Cmd)
	ack.RequestID = msg.Cmd.RequestID
	msg.Reply <- ack
}

func (r *Room) dispatch(userID string, cmd types.ClientCommand) types.Ack {
	switch cmd.Type {
	case types.CmdGetRoomState:
		return r.getRoomState(userID)
	case types.CmdAssignTeam:
		return r.assignTeam(userID, cmd)
	case types.CmdToggleReady:
		return r.toggleReady(userID)
	case types.CmdUpdateSettings:
		return r.updateSettings(userID, cmd)
	case types.CmdStartGame:
		return r.startGame(userID)
	case types.CmdGuessWord:
		return r.guessWord(userID, cmd)
	case types.CmdEndRound:
		return r.endRound()
	case types.CmdAdjustWordScores:
		return r.adjustWordScores(userID, cmd)
	case types.CmdConfirmScoresReady:
		return r.confirmScoresReady(userID)
	case types.CmdConfirmReadyNextRound:
		return r.confirmReadyNextRound(userID)
	case types.CmdStartNextRound:
		return r.startNextRound(userID)
	case types.CmdSendChatMessage:
		return r.sendChat(userID, cmd)
	default:
		return fail(ErrUnknownCommand)
	}
}

func fail(err error) types.Ack {
	return types.Ack{Error: err.Error()}
}

func ok() types.Ack {
	return types.Ack{Success: true}
}

func (r *Room) getRoomState(userID string) types.Ack {
	state := r.g.Snapshot()
	ack := ok()
	ack.Room = &state

	if rd := r.g.Round(); r.g.Status == game.StatusPlaying && rd != nil && rd.ExplainerID == userID {
		r.sendExplainerView()
		if rd.Active && r.ticker == nil {
			r.startTimer()
		}
	}
	return ack
}

func (r *Room) assignTeam(userID string, cmd types.ClientCommand) types.Ack {
	if cmd.TeamID == nil {
		return fail(ErrMissingField)
	}
	if err := r.g.AssignTeam(userID, *cmd.TeamID); err != nil {
		return fail(err)
	}
	r.broadcastState()
	return ok()
}

func (r *Room) toggleReady(userID string) types.Ack {
	if err := r.g.ToggleReady(userID); err != nil {
		return fail(err)
	}
	r.broadcastState()

	canStart := r.g.CanStart()
	ack := ok()
	ack.CanStart = &canStart
	return ack
}

func (r *Room) updateSettings(userID string, cmd types.ClientCommand) types.Ack {
	if userID != r.g.HostID {
		return fail(ErrNotHost)
	}
	if r.g.Status != game.StatusWaiting {
		return fail(ErrSettingsLocked)
	}
	if cmd.Settings == nil {
		return fail(ErrMissingField)
	}
	if err := r.g.UpdateSettings(*cmd.Settings); err != nil {
		return fail(err)
	}
	r.broadcastState()
	return ok()
}

func (r *Room) startGame(userID string) types.Ack {
	if userID != r.g.HostID {
		return fail(ErrNotHost)
	}
	if err := r.g.Start(r.bankSize); err != nil {
		return fail(err)
	}

	r.log.Info("game started", zap.Int("players", r.g.PlayerCount()))
	r.broadcast(types.ServerEvent{Type: types.EvtGameStarted, Data: r.g.Snapshot()})
	r.sendExplainerView()
	r.startTimer()
	return ok()
}

func (r *Room) guessWord(userID string, cmd types.ClientCommand) types.Ack {
	rd := r.g.Round()
	if rd == nil || rd.ExplainerID != userID {
		return fail(ErrNotExplainer)
	}
	if cmd.Correct == nil {
		return fail(ErrMissingField)
	}

	res, err := r.g.GuessWord(*cmd.Correct)
	if err != nil {
		return fail(err)
	}

	if res.RoundEnded {
		r.creditGuessedWords(rd.ExplainerID, res.Round.Guessed)
		r.broadcast(types.ServerEvent{Type: types.EvtRoundEnded, Data: res.Round})
		r.broadcastState()
		ack := ok()
		ack.RoundEnded = true
		return ack
	}

	state := r.g.Snapshot()
	r.broadcast(types.ServerEvent{Type: types.EvtScoreUpdate, Data: map[string]any{
		"scores": state.Scores,
		"teamId": rd.TeamID,
	}})
	r.broadcast(types.ServerEvent{Type: types.EvtGameState, Data: state})
	r.sendExplainerView()

	ack := ok()
	ack.NextWord = res.NextWord
	return ack
}

func (r *Room) endRound() types.Ack {
	res, err := r.g.EndRound()
	if err != nil {
		return fail(err)
	}
	if rd := r.g.Round(); rd != nil {
		r.creditGuessedWords(rd.ExplainerID, res.Guessed)
	}
	r.broadcast(types.ServerEvent{Type: types.EvtRoundEnded, Data: res})
	r.broadcastState()
	ack := ok()
	ack.RoundEnded = true
	return ack
}

func (r *Room) adjustWordScores(userID string, cmd types.ClientCommand) types.Ack {
	rd := r.g.Round()
	if rd == nil || rd.ExplainerID != userID {
		return fail(ErrNotExplainer)
	}
	if err := r.g.AdjustWordScores(cmd.Adjustments); err != nil {
		return fail(err)
	}
	r.broadcastState()
	return ok()
}

func (r *Room) confirmScoresReady(userID string) types.Ack {
	rd := r.g.Round()
	if rd == nil || rd.ExplainerID != userID {
		return fail(ErrNotExplainer)
	}

	ended, result := r.g.ConfirmScoresReady()
	if ended {
		r.finishGame(result)
		ack := ok()
		ack.GameEnded = true
		return ack
	}
	r.broadcastState()
	return ok()
}

func (r *Room) confirmReadyNextRound(userID string) types.Ack {
	next, found := r.g.NextExplainerID()
	if !found {
		return fail(ErrNoNextExplainer)
	}
	if userID != next {
		return fail(ErrNotNextExplainer)
	}
	r.g.ConfirmReadyForNextRound()
	r.broadcastState()
	return ok()
}

func (r *Room) startNextRound(userID string) types.Ack {
	if r.g.Status != game.StatusPlaying {
		return fail(game.ErrNoActiveRound)
	}
	if !r.g.ReadyForNextRound() {
		return fail(game.ErrNotReadyForRound)
	}
	if next, found := r.g.NextExplainerID(); found && userID != next {
		return fail(ErrNotNextExplainer)
	}

	r.g.StartNewRound()
	r.broadcast(types.ServerEvent{Type: types.EvtRoundStarted, Data: r.g.Snapshot()})
	r.sendExplainerView()
	r.startTimer()
	return ok()
}

func (r *Room) sendChat(userID string, cmd types.ClientCommand) types.Ack {
	player, found := r.g.Player(userID)
	if !found {
		return fail(game.ErrPlayerNotFound)
	}
	msg, err := r.g.AddChatMessage(userID, player.Username, cmd.Message)
	if err != nil {
		return fail(err)
	}
	r.broadcast(types.ServerEvent{Type: types.EvtChatMessage, Data: msg})
	return ok()
}

// finishGame broadcasts the result and kicks off fire-and-forget
// statistics writes. Persistence failures never touch game state.
func (r *Room) finishGame(result game.GameResult) {
	r.stopTimer()
	r.broadcast(types.ServerEvent{Type: types.EvtGameEnded, Data: result})
	r.log.Info("game ended", zap.Int("winner", result.Winner))

	if r.stats == nil {
		return
	}
	state := r.g.Snapshot()
	for _, p := range state.Players {
		if p.TeamID == game.NoTeam {
			continue
		}
		userID, username := p.UserID, p.Username
		score := result.FinalScores[p.TeamID]
		won := p.TeamID == result.Winner
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
			defer cancel()
			r.stats.RecordGame(ctx, userID, username, score, won)
		}()
	}
}

func (r *Room) creditGuessedWords(userID string, n int) {
	if r.stats == nil || n <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
		defer cancel()
		r.stats.AddWordsGuessed(ctx, userID, n)
	}()
}
