// internal/handlers/protocol.go
package handlers

import (
	"errors"
	"time"

	"github.com/jason-s-yu/czar/internal/game"
	"github.com/jason-s-yu/czar/internal/lobby"
	"github.com/jason-s-yu/czar/internal/models"
)

// Inbound command types.
const (
	CmdCreateRoom   = "createRoom"
	CmdJoinRoom     = "joinRoom"
	CmdLeaveRoom    = "leaveRoom"
	CmdStartGame    = "startGame"
	CmdSubmitCard   = "submitCard"
	CmdSelectWinner = "selectWinner"
	CmdNextRound    = "nextRound"
	CmdMessage      = "message"
	CmdPing         = "ping"
)

// Command is one inbound frame. Fields beyond Type are read per command.
type Command struct {
	Type            string `json:"type"`
	RequestID       string `json:"requestId,omitempty"`
	RoomCode        string `json:"roomCode,omitempty"`
	PlayerName      string `json:"playerName,omitempty"`
	CardID          string `json:"cardId,omitempty"`
	PlayerID        string `json:"playerId,omitempty"`
	SubmissionIndex *int   `json:"submissionIndex,omitempty"`
	Text            string `json:"text,omitempty"`
}

// ErrorCode is the machine-readable reason a command failed.
type ErrorCode string

const (
	CodeRoomNotFound     ErrorCode = "room_not_found"
	CodeNameConflict     ErrorCode = "name_conflict"
	CodeGameStarted      ErrorCode = "game_started"
	CodeNotInRoom        ErrorCode = "not_in_room"
	CodeNoSession        ErrorCode = "no_session"
	CodeWrongPhase       ErrorCode = "wrong_phase"
	CodeNotHost          ErrorCode = "not_host"
	CodeNotCzar          ErrorCode = "not_czar"
	CodeCzarCannotSubmit ErrorCode = "czar_cannot_submit"
	CodeCardNotInHand    ErrorCode = "card_not_in_hand"
	CodeInvalidTarget    ErrorCode = "invalid_target"
	CodeNotEnoughPlayers ErrorCode = "not_enough_players"
	CodeBadRequest       ErrorCode = "bad_request"
	CodeServerFull       ErrorCode = "server_full"
	CodeInternal         ErrorCode = "internal"
)

var errBadRequest = errors.New("bad request")

var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{lobby.ErrRoomNotFound, CodeRoomNotFound},
	{lobby.ErrNameConflict, CodeNameConflict},
	{lobby.ErrGameStarted, CodeGameStarted},
	{lobby.ErrNotInRoom, CodeNotInRoom},
	{lobby.ErrNoSession, CodeNoSession},
	{lobby.ErrNotHost, CodeNotHost},
	{lobby.ErrInvalidName, CodeBadRequest},
	{lobby.ErrAlreadyInRoom, CodeBadRequest},
	{lobby.ErrNoFreeCode, CodeServerFull},
	{game.ErrWrongPhase, CodeWrongPhase},
	{game.ErrNotCzar, CodeNotCzar},
	{game.ErrCzarCannotSubmit, CodeCzarCannotSubmit},
	{game.ErrCardNotInHand, CodeCardNotInHand},
	{game.ErrInvalidTarget, CodeInvalidTarget},
	{game.ErrUnknownPlayer, CodeNotInRoom},
	{game.ErrNotEnoughPlayers, CodeNotEnoughPlayers},
	{errBadRequest, CodeBadRequest},
}

// codeFor maps a domain error onto its wire code.
func codeFor(err error) ErrorCode {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// Result is the synchronous outcome of one command.
type Result struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Code    ErrorCode       `json:"code,omitempty"`
	Room    *lobby.Snapshot `json:"room,omitempty"`
}

func success() Result { return Result{Success: true} }

func okRoom(r *lobby.Room) Result {
	snap := r.Snapshot()
	return Result{Success: true, Room: &snap}
}

func fail(err error) Result {
	return Result{Error: err.Error(), Code: codeFor(err)}
}

// Response is the reply frame for a command, echoing its request id.
type Response struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Result
}

// NewResponse wraps res as the reply to cmd.
func NewResponse(cmd Command, res Result) Response {
	return Response{Type: "response", RequestID: cmd.RequestID, Result: res}
}

// EventType names a server-originated frame.
type EventType string

const (
	EventRoomUpdate      EventType = "roomUpdate"
	EventGameStarted     EventType = "gameStarted"
	EventGameStateUpdate EventType = "gameStateUpdate"
	EventPhaseChange     EventType = "phaseChange"
	EventMessage         EventType = "message"
	EventPong            EventType = "pong"
)

// PhaseChange summarises a phase transition. Winner fields are set on
// entering round end.
type PhaseChange struct {
	Phase       game.Phase         `json:"phase"`
	RoundNumber int                `json:"roundNumber"`
	CzarID      string             `json:"czarId"`
	CzarName    string             `json:"czarName"`
	Prompt      *models.PromptCard `json:"prompt,omitempty"`
	WinnerID    string             `json:"winnerId,omitempty"`
	WinnerName  string             `json:"winnerName,omitempty"`
	WinningCard *models.AnswerCard `json:"winningCard,omitempty"`
}

// ChatMessage is narration from the server or chat from a player.
type ChatMessage struct {
	From   string    `json:"from"`
	Text   string    `json:"text"`
	System bool      `json:"system,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

// ServerEvent is a push frame. Only the field matching Type is set.
type ServerEvent struct {
	Type     EventType       `json:"type"`
	RoomCode string          `json:"roomCode,omitempty"`
	Room     *lobby.Snapshot `json:"room,omitempty"`
	State    *game.View      `json:"state,omitempty"`
	Phase    *PhaseChange    `json:"phaseChange,omitempty"`
	Message  *ChatMessage    `json:"message,omitempty"`
}
