package race

import (
	"log"
	"sync"
	"time"

	"airracer/protocol"
)

// CountdownDuration is how long the server waits between countdown_start and
// race_start. It matches the client's visual countdown so both clients can
// compute elapsed race time from the single server-issued start instant.
const CountdownDuration = 5500 * time.Millisecond

// Service coordinates two independent clients through room creation, the
// readiness handshake, the synchronized countdown, live state relay and
// finish-order adjudication.
//
// Every inbound event (message, disconnect, timer expiry) is handled to
// completion under one mutex, so handlers never observe half-applied state.
type Service struct {
	mu        sync.Mutex
	reg       *Registry
	players   map[Conn]*Player
	countdown time.Duration
	now       func() time.Time
}

// NewService creates a service with the standard countdown duration.
func NewService() *Service {
	return NewServiceWithCountdown(CountdownDuration)
}

// NewServiceWithCountdown creates a service with a custom countdown duration.
// Tests use short countdowns to exercise the waiting-to-racing path quickly.
func NewServiceWithCountdown(countdown time.Duration) *Service {
	return &Service{
		reg:       NewRegistry(),
		players:   make(map[Conn]*Player),
		countdown: countdown,
		now:       time.Now,
	}
}

// CreateRoom allocates a room in the waiting state with the sender as player 1
// and replies with the room code. A connection that was already in a room
// leaves it first, as if it had disconnected.
func (s *Service) CreateRoom(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detach(c)

	code, room := s.reg.Create()
	player := &Player{ID: 1, conn: c, room: room}
	room.Players = append(room.Players, player)
	s.players[c] = player

	s.send(player, protocol.RoomCreated{
		Type:     protocol.KindRoomCreated,
		RoomCode: code,
		PlayerID: player.ID,
	})
	log.Printf("room %s created by player %d", code, player.ID)
}

// JoinRoom adds the sender to an existing waiting room and notifies the host.
// Domain failures are reported to the sender only and mutate nothing. Joining
// the room the sender already occupies is ignored; detaching first would
// empty the room and delete it out from under the join.
func (s *Service) JoinRoom(c Conn, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ValidRoomCode(code) {
		s.sendError(c, ErrInvalidRoomCode.Error())
		return
	}

	room, ok := s.reg.Get(code)
	if !ok {
		s.sendError(c, ErrRoomNotFound.Error())
		return
	}
	if p := s.players[c]; p != nil && p.room == room {
		return
	}
	if len(room.Players) >= MaxPlayers {
		s.sendError(c, ErrRoomFull.Error())
		return
	}
	if room.State != StateWaiting {
		s.sendError(c, ErrRaceInProgress.Error())
		return
	}

	s.detach(c)

	player := &Player{ID: room.freeSlotID(), conn: c, room: room}
	room.Players = append(room.Players, player)
	s.players[c] = player

	s.send(player, protocol.RoomJoined{
		Type:     protocol.KindRoomJoined,
		RoomCode: code,
		PlayerID: player.ID,
	})
	if opponent := room.opponentOf(player); opponent != nil {
		s.send(opponent, protocol.OpponentJoined{Type: protocol.KindOpponentJoined})
	}
	log.Printf("player %d joined room %s", player.ID, code)
}

// Ready marks the sender ready. When both slots are occupied and ready the
// room enters countdown and the start timer is armed. Ready is a no-op once
// the room has left the waiting state, and for connections not in a room.
func (s *Service) Ready(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.players[c]
	if player == nil {
		return
	}
	room := player.room
	if room.State != StateWaiting {
		return
	}

	player.Ready = true
	log.Printf("player %d ready in room %s", player.ID, room.Code)

	if len(room.Players) < MaxPlayers || !room.allReady() {
		return
	}

	room.State = StateCountdown
	for _, p := range room.Players {
		s.send(p, protocol.CountdownStart{Type: protocol.KindCountdownStart})
	}
	log.Printf("room %s starting countdown", room.Code)

	room.countdown = time.AfterFunc(s.countdown, func() {
		s.startRace(room)
	})
}

// startRace is the countdown callback. The room may have been deleted or
// abandoned while the timer was pending, and its freed code may even have
// been reissued to a different room, so it re-validates identity and state
// under the lock before stamping the start instant.
func (s *Service) startRace(armed *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.reg.Get(armed.Code)
	if !ok || room != armed || room.State != StateCountdown || len(room.Players) != MaxPlayers {
		return
	}

	room.State = StateRacing
	room.StartTime = s.now().UnixMilli()
	room.countdown = nil
	for _, p := range room.Players {
		s.send(p, protocol.RaceStart{
			Type:      protocol.KindRaceStart,
			StartTime: room.StartTime,
		})
	}
	log.Printf("room %s race started", room.Code)
}

// RelayState forwards a live ship snapshot to the opponent. The relay is
// best-effort and only active while racing; snapshots at any other time are
// dropped without comment.
func (s *Service) RelayState(c Conn, st protocol.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.players[c]
	if player == nil || player.room.State != StateRacing {
		return
	}

	opponent := player.room.opponentOf(player)
	if opponent == nil {
		return
	}
	s.send(opponent, protocol.OpponentState{
		Type:       protocol.KindOpponentState,
		Position:   st.Position,
		Quaternion: st.Quaternion,
		Speed:      st.Speed,
	})
}

// Finish records the sender's elapsed time. The first report in a full room
// is forwarded to the opponent; once every remaining player has reported, the
// room is adjudicated. Repeat reports from the same player are ignored.
func (s *Service) Finish(c Conn, elapsed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.players[c]
	if player == nil || player.Finished {
		return
	}
	room := player.room
	if room.State == StateFinished {
		return
	}

	player.Finished = true
	player.FinishTime = elapsed
	log.Printf("player %d finished in %dms in room %s", player.ID, elapsed, room.Code)

	if room.finishedCount() == 1 && len(room.Players) == MaxPlayers {
		if opponent := room.opponentOf(player); opponent != nil {
			s.send(opponent, protocol.OpponentFinished{
				Type: protocol.KindOpponentFinished,
				Time: elapsed,
			})
		}
	}

	if room.finishedCount() == len(room.Players) {
		s.adjudicate(room)
	}
}

// Disconnect removes the connection from its room, notifies the remaining
// player, and deletes the room when it empties. Called by the transport on
// socket close; it is not a protocol message.
func (s *Service) Disconnect(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detach(c)
}

// detach implements leave semantics for Disconnect and for a connection that
// creates or joins a new room while still in an old one. Caller holds s.mu.
func (s *Service) detach(c Conn) {
	player := s.players[c]
	delete(s.players, c)
	if player == nil {
		return
	}
	room := player.room

	kept := room.Players[:0]
	for _, p := range room.Players {
		if p != player {
			kept = append(kept, p)
		}
	}
	room.Players = kept

	for _, p := range room.Players {
		s.send(p, protocol.OpponentDisconnected{Type: protocol.KindOpponentDisconnected})
	}

	if len(room.Players) == 0 {
		room.stopCountdown()
		s.reg.Delete(room.Code)
		log.Printf("room %s deleted", room.Code)
		return
	}

	// A half-empty countdown can never legitimately start.
	if room.State == StateCountdown {
		room.stopCountdown()
	}

	// The "only one player remains" adjudication clause can become true at
	// disconnect time, when the survivor already reported a finish.
	if room.State == StateRacing && room.finishedCount() == len(room.Players) {
		s.adjudicate(room)
	}
}

// adjudicate declares a winner and sends race_result to every remaining
// player. Lower finish time wins; on a tie the lower player ID wins; a sole
// remaining player wins by default. Caller holds s.mu.
func (s *Service) adjudicate(room *Room) {
	room.State = StateFinished

	var winner *Player
	for _, p := range room.Players {
		if !p.Finished {
			continue
		}
		if winner == nil || p.FinishTime < winner.FinishTime ||
			(p.FinishTime == winner.FinishTime && p.ID < winner.ID) {
			winner = p
		}
	}
	if winner == nil {
		return
	}

	for _, p := range room.Players {
		result := protocol.RaceResult{
			Type:     protocol.KindRaceResult,
			Winner:   winner.ID,
			YourTime: p.FinishTime,
		}
		if opponent := room.opponentOf(p); opponent != nil && opponent.Finished {
			t := opponent.FinishTime
			result.OpponentTime = &t
		}
		s.send(p, result)
	}
	log.Printf("room %s race ended, winner: player %d", room.Code, winner.ID)
}

// send delivers one outbound message, logging delivery failures. A failed
// send is not fatal here; the transport reports the close separately.
func (s *Service) send(p *Player, msg any) {
	if err := p.conn.Send(msg); err != nil {
		log.Printf("send to player %d in room %s failed: %v", p.ID, p.room.Code, err)
	}
}

// sendError reports a domain failure to the requesting connection only.
func (s *Service) sendError(c Conn, reason string) {
	if err := c.Send(protocol.Error{Type: protocol.KindError, Message: reason}); err != nil {
		log.Printf("send error reply failed: %v", err)
	}
}

// Rooms returns snapshots of every live room for the ops surfaces.
func (s *Service) Rooms() []RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]RoomInfo, 0, s.reg.Count())
	for _, code := range s.reg.Codes() {
		if room, ok := s.reg.Get(code); ok {
			infos = append(infos, room.info())
		}
	}
	return infos
}

// Room returns a snapshot of a single room.
func (s *Service) Room(code string) (RoomInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.reg.Get(code)
	if !ok {
		return RoomInfo{}, false
	}
	return room.info(), true
}

// RoomCount returns the number of live rooms.
func (s *Service) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Count()
}
