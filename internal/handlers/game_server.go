// internal/handlers/game_server.go
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jason-s-yu/czar/internal/game"
	"github.com/jason-s-yu/czar/internal/lobby"
	"github.com/jason-s-yu/czar/internal/models"
	"github.com/sirupsen/logrus"
)

// ServerName is the sender shown on narration messages.
const ServerName = "Server"

// Sink receives frames for one connection. Send must not block.
type Sink interface {
	Send(msg interface{})
}

// Recorder receives every judged round.
type Recorder interface {
	RecordRound(ctx context.Context, result models.RoundResult) error
}

// NopRecorder discards rounds.
type NopRecorder struct{}

func (NopRecorder) RecordRound(context.Context, models.RoundResult) error { return nil }

// GameServer routes commands from connections to the room store and fans
// the resulting state back out.
//
// All state is owned by the goroutine running Run. Other goroutines reach it
// through Submit and Exec, which queue work onto that loop. Dispatch, Connect
// and Disconnect are the synchronous core and must only be called from the
// loop (or from a test that owns the server outright).
type GameServer struct {
	Store    *lobby.Store
	Recorder Recorder
	logger   logrus.FieldLogger

	conns map[string]Sink
	jobs  chan func()
	now   func() time.Time
}

// NewGameServer builds a router over store. A nil recorder discards rounds.
func NewGameServer(store *lobby.Store, recorder Recorder, logger logrus.FieldLogger) *GameServer {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &GameServer{
		Store:    store,
		Recorder: recorder,
		logger:   logger,
		conns:    make(map[string]Sink),
		jobs:     make(chan func(), 64),
		now:      time.Now,
	}
}

// Run processes queued work one item at a time until ctx is done.
func (gs *GameServer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-gs.jobs:
			job()
		}
	}
}

func (gs *GameServer) enqueue(ctx context.Context, job func()) error {
	select {
	case gs.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exec runs fn on the command loop and waits for it to finish.
func (gs *GameServer) Exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := gs.enqueue(ctx, func() { fn(); close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues cmd from connID and waits for its result.
func (gs *GameServer) Submit(ctx context.Context, connID string, cmd Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := gs.enqueue(ctx, func() { reply <- gs.Dispatch(connID, cmd) }); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Connect registers the sink for connID and greets it.
func (gs *GameServer) Connect(connID string, sink Sink) {
	gs.conns[connID] = sink
	gs.logger.WithField("conn", connID).Debug("connection registered")
	sink.Send(gs.narration("Welcome to Czar! Create a room or join one with its code."))
}

// Disconnect removes connID from its room, repairing the game if needed,
// and forgets the connection.
func (gs *GameServer) Disconnect(connID string) {
	if _, in := gs.Store.FindRoomFor(connID); in {
		if err := gs.leave(connID, "disconnected"); err != nil {
			gs.logger.WithError(err).WithField("conn", connID).Warn("leave on disconnect failed")
		}
	}
	delete(gs.conns, connID)
	gs.logger.WithField("conn", connID).Debug("connection removed")
}

// Dispatch validates and applies one command. Nothing changes when the
// returned Result is a failure.
func (gs *GameServer) Dispatch(connID string, cmd Command) Result {
	log := gs.logger.WithFields(logrus.Fields{"conn": connID, "cmd": cmd.Type})

	var res Result
	switch cmd.Type {
	case CmdCreateRoom:
		res = gs.createRoom(connID, cmd.PlayerName)
	case CmdJoinRoom:
		res = gs.joinRoom(connID, strings.TrimSpace(cmd.RoomCode), cmd.PlayerName)
	case CmdLeaveRoom:
		res = result(gs.leave(connID, "left the room"))
	case CmdStartGame:
		res = gs.startGame(connID)
	case CmdSubmitCard:
		res = gs.submitCard(connID, cmd.CardID)
	case CmdSelectWinner:
		res = gs.selectWinner(connID, cmd)
	case CmdNextRound:
		res = gs.nextRound(connID)
	case CmdMessage:
		res = gs.chat(connID, cmd.Text)
	case CmdPing:
		gs.send(connID, ServerEvent{Type: EventPong})
		res = success()
	default:
		res = fail(fmt.Errorf("unknown command type %q: %w", cmd.Type, errBadRequest))
	}

	if res.Success {
		log.Debug("command applied")
	} else {
		log.WithField("code", res.Code).Info("command rejected: " + res.Error)
	}
	return res
}

func result(err error) Result {
	if err != nil {
		return fail(err)
	}
	return success()
}

func (gs *GameServer) createRoom(connID, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > lobby.MaxNameLength {
		return fail(lobby.ErrInvalidName)
	}
	r, err := gs.Store.CreateRoom()
	if err != nil {
		return fail(err)
	}
	if _, in := gs.Store.FindRoomFor(connID); in {
		if err := gs.leave(connID, "left the room"); err != nil {
			return fail(err)
		}
	}
	if _, err := gs.Store.AddPlayer(r.Code, connID, name); err != nil {
		return fail(err)
	}
	gs.send(connID, gs.narration(fmt.Sprintf("Room %s created. Share the code so others can join.", r.Code)))
	gs.send(connID, gs.narration(fmt.Sprintf("Welcome, %s! You are the host.", name)))
	gs.broadcastRoomUpdate(r)
	return okRoom(r)
}

func (gs *GameServer) joinRoom(connID, code, name string) Result {
	if err := gs.Store.CheckJoin(code, connID, name); err != nil {
		return fail(err)
	}
	if cur, in := gs.Store.FindRoomFor(connID); in && cur.Code != code {
		if err := gs.leave(connID, "left the room"); err != nil {
			return fail(err)
		}
	}

	var prev models.Player
	rejoin := false
	if cur, ok := gs.Store.Get(code); ok {
		prev, rejoin = cur.Player(connID)
	}

	r, err := gs.Store.AddPlayer(code, connID, name)
	if err != nil {
		return fail(err)
	}
	p, _ := r.Player(connID)
	switch {
	case !rejoin:
		gs.send(connID, gs.narration(fmt.Sprintf("Welcome to room %s, %s!", r.Code, p.Name)))
		gs.broadcastRoom(r, gs.narration(p.Name+" joined the room."), connID)
	case prev.Name != p.Name:
		gs.broadcastRoom(r, gs.narration(fmt.Sprintf("%s is now %s.", prev.Name, p.Name)), "")
	}
	gs.broadcastRoomUpdate(r)
	if r.Session != nil {
		gs.sendState(r, connID)
	}
	return okRoom(r)
}

// leave removes connID from its room and pushes the repaired state to
// whoever is left.
func (gs *GameServer) leave(connID, verb string) error {
	rm, err := gs.Store.RemovePlayer(connID)
	if err != nil {
		return err
	}
	if rm.Destroyed {
		return nil
	}
	r := rm.Room
	gs.broadcastRoom(r, gs.narration(fmt.Sprintf("%s %s.", rm.Player.Name, verb)), "")
	gs.broadcastRoomUpdate(r)

	if r.Session == nil {
		return nil
	}
	if rm.WasCzar {
		if czar, ok := r.Session.Player(r.Session.CzarID); ok {
			gs.broadcastRoom(r, gs.narration(fmt.Sprintf("The Czar left. Starting a new round with %s as Czar.", czar.Name)), "")
		}
	}
	gs.broadcastStates(r)
	if rm.Before == nil || rm.Before.Phase != r.Session.Phase || rm.Before.RoundNumber != r.Session.RoundNumber {
		gs.broadcastPhase(r)
	}
	return nil
}

func (gs *GameServer) startGame(connID string) Result {
	r, ok := gs.Store.FindRoomFor(connID)
	if !ok {
		return fail(lobby.ErrNotInRoom)
	}
	if err := r.StartGame(connID); err != nil {
		return fail(err)
	}
	gs.logger.WithFields(logrus.Fields{"room": r.Code, "session": r.Session.ID}).Info("game started")

	czar, _ := r.Session.Player(r.Session.CzarID)
	gs.broadcastRoom(r, gs.narration("The game has started!"), "")
	gs.broadcastRoom(r, gs.narration(fmt.Sprintf("%s is the Card Czar for round 1.", czar.Name)), "")
	gs.broadcastRoom(r, ServerEvent{Type: EventGameStarted, RoomCode: r.Code}, "")
	gs.broadcastRoomUpdate(r)
	gs.broadcastStates(r)
	gs.broadcastPhase(r)
	return success()
}

func (gs *GameServer) submitCard(connID, cardID string) Result {
	r, ok := gs.Store.FindRoomFor(connID)
	if !ok {
		return fail(lobby.ErrNotInRoom)
	}
	if cardID == "" {
		return fail(fmt.Errorf("cardId is required: %w", errBadRequest))
	}
	before := r.Session
	if err := r.SubmitCard(connID, cardID); err != nil {
		return fail(err)
	}

	p, _ := r.Player(connID)
	if !before.HasSubmitted(connID) {
		gs.broadcastRoom(r, gs.narration(p.Name+" submitted a card."), "")
	}
	gs.broadcastStates(r)
	if r.Session.Phase == game.PhaseCzarSelection {
		gs.broadcastRoom(r, gs.narration("All cards are in. The Czar is choosing a winner."), "")
		gs.broadcastPhase(r)
	}
	return success()
}

func (gs *GameServer) selectWinner(connID string, cmd Command) Result {
	r, ok := gs.Store.FindRoomFor(connID)
	if !ok {
		return fail(lobby.ErrNotInRoom)
	}

	var err error
	switch {
	case cmd.SubmissionIndex != nil:
		err = r.SelectSubmission(connID, *cmd.SubmissionIndex)
	case cmd.PlayerID != "":
		err = r.SelectWinner(connID, cmd.PlayerID)
	default:
		err = fmt.Errorf("playerId or submissionIndex is required: %w", errBadRequest)
	}
	if err != nil {
		return fail(err)
	}

	s := r.Session
	w := s.RoundWinner
	gs.broadcastRoom(r, gs.narration(fmt.Sprintf("%s wins round %d with %q!", w.PlayerName, s.RoundNumber, w.Card.Text)), "")
	gs.broadcastRoomUpdate(r)
	gs.broadcastStates(r)
	gs.broadcastPhase(r)
	gs.record(r.Code, s)
	return success()
}

func (gs *GameServer) nextRound(connID string) Result {
	r, ok := gs.Store.FindRoomFor(connID)
	if !ok {
		return fail(lobby.ErrNotInRoom)
	}
	if err := r.NextRound(connID); err != nil {
		return fail(err)
	}

	czar, _ := r.Session.Player(r.Session.CzarID)
	gs.broadcastRoom(r, gs.narration(fmt.Sprintf("Round %d begins.", r.Session.RoundNumber)), "")
	gs.broadcastRoom(r, gs.narration(fmt.Sprintf("%s is the Card Czar.", czar.Name)), "")
	gs.broadcastRoomUpdate(r)
	gs.broadcastStates(r)
	gs.broadcastPhase(r)
	return success()
}

// chat relays text to the sender's room, or to every other connection when
// the sender is in no room.
func (gs *GameServer) chat(connID, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return fail(fmt.Errorf("text is required: %w", errBadRequest))
	}
	if r, ok := gs.Store.FindRoomFor(connID); ok {
		p, _ := r.Player(connID)
		gs.broadcastRoom(r, gs.message(p.Name, text, false), connID)
		return success()
	}
	ev := gs.message(connID, text, false)
	for id, sink := range gs.conns {
		if id != connID {
			sink.Send(ev)
		}
	}
	return success()
}

// record hands a judged round to the recorder off the command loop.
func (gs *GameServer) record(code string, s *game.Session) {
	w := s.RoundWinner
	res := models.RoundResult{
		SessionID:   s.ID,
		RoomCode:    code,
		RoundNumber: s.RoundNumber,
		WinnerID:    w.PlayerID,
		WinnerName:  w.PlayerName,
		CardID:      w.Card.ID,
		CardText:    w.Card.Text,
		Timestamp:   gs.now().UnixMilli(),
	}
	if s.Prompt != nil {
		res.PromptID = s.Prompt.ID
		res.PromptText = s.Prompt.Text
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gs.Recorder.RecordRound(ctx, res); err != nil {
			gs.logger.WithError(err).WithField("room", code).Warn("failed to record round")
		}
	}()
}

func (gs *GameServer) narration(text string) ServerEvent {
	return gs.message(ServerName, text, true)
}

func (gs *GameServer) message(from, text string, system bool) ServerEvent {
	return ServerEvent{
		Type:    EventMessage,
		Message: &ChatMessage{From: from, Text: text, System: system, SentAt: gs.now()},
	}
}

func (gs *GameServer) send(connID string, msg interface{}) {
	if sink, ok := gs.conns[connID]; ok {
		sink.Send(msg)
	}
}

// broadcastRoom sends ev to every member of r except skip.
func (gs *GameServer) broadcastRoom(r *lobby.Room, ev ServerEvent, skip string) {
	for _, p := range r.Players {
		if p.ID != skip {
			gs.send(p.ID, ev)
		}
	}
}

func (gs *GameServer) broadcastRoomUpdate(r *lobby.Room) {
	snap := r.Snapshot()
	gs.broadcastRoom(r, ServerEvent{Type: EventRoomUpdate, RoomCode: r.Code, Room: &snap}, "")
}

// broadcastStates sends each member a view built for them alone.
func (gs *GameServer) broadcastStates(r *lobby.Room) {
	for _, p := range r.Players {
		gs.sendState(r, p.ID)
	}
}

func (gs *GameServer) sendState(r *lobby.Room, connID string) {
	if v, ok := r.View(connID); ok {
		gs.send(connID, ServerEvent{Type: EventGameStateUpdate, RoomCode: r.Code, State: &v})
	}
}

func (gs *GameServer) broadcastPhase(r *lobby.Room) {
	s := r.Session
	pc := &PhaseChange{
		Phase:       s.Phase,
		RoundNumber: s.RoundNumber,
		CzarID:      s.CzarID,
	}
	if czar, ok := s.Player(s.CzarID); ok {
		pc.CzarName = czar.Name
	}
	if s.Prompt != nil {
		p := *s.Prompt
		pc.Prompt = &p
	}
	if s.Phase == game.PhaseRoundEnd && s.RoundWinner != nil {
		card := s.RoundWinner.Card
		pc.WinnerID = s.RoundWinner.PlayerID
		pc.WinnerName = s.RoundWinner.PlayerName
		pc.WinningCard = &card
	}
	gs.broadcastRoom(r, ServerEvent{Type: EventPhaseChange, RoomCode: r.Code, Phase: pc}, "")
}

// CreateRoom opens an empty room on behalf of an HTTP caller.
func (gs *GameServer) CreateRoom(ctx context.Context) (lobby.Snapshot, error) {
	var (
		snap      lobby.Snapshot
		createErr error
	)
	err := gs.Exec(ctx, func() {
		r, err := gs.Store.CreateRoom()
		if err != nil {
			createErr = err
			return
		}
		snap = r.Snapshot()
	})
	if err != nil {
		return lobby.Snapshot{}, err
	}
	if createErr != nil {
		return lobby.Snapshot{}, createErr
	}
	return snap, nil
}

// RoomSnapshot looks up a room for an HTTP caller.
func (gs *GameServer) RoomSnapshot(ctx context.Context, code string) (lobby.Snapshot, bool, error) {
	var (
		snap  lobby.Snapshot
		found bool
	)
	err := gs.Exec(ctx, func() {
		if r, ok := gs.Store.Get(code); ok {
			snap, found = r.Snapshot(), true
		}
	})
	if err != nil {
		return lobby.Snapshot{}, false, err
	}
	return snap, found, nil
}

// Stats is a point-in-time count of rooms and connections.
type Stats struct {
	Rooms       int `json:"rooms"`
	Players     int `json:"players"`
	Games       int `json:"games"`
	Connections int `json:"connections"`
}

// Stats reports activity counts.
func (gs *GameServer) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := gs.Exec(ctx, func() {
		for _, r := range gs.Store.Rooms() {
			st.Rooms++
			st.Players += len(r.Players)
			if r.GameStarted {
				st.Games++
			}
		}
		st.Connections = len(gs.conns)
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}
