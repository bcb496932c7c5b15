package race

import (
	"time"
)

// RoomState is the lifecycle phase of a room. Transitions only move forward:
// a room never returns to an earlier state.
type RoomState string

const (
	StateWaiting   RoomState = "waiting"
	StateCountdown RoomState = "countdown"
	StateRacing    RoomState = "racing"
	StateFinished  RoomState = "finished"
)

// MaxPlayers is the fixed room capacity.
const MaxPlayers = 2

// Player is one connection's standing inside a room.
type Player struct {
	ID         int
	Ready      bool
	Finished   bool
	FinishTime int64 // elapsed milliseconds, valid once Finished

	conn Conn
	room *Room
}

// Room pairs up to two players under one code.
type Room struct {
	Code      string
	Players   []*Player // slot order; Players[0] joined first
	State     RoomState
	StartTime int64 // Unix milliseconds, zero until racing

	// countdown is the armed start timer, nil outside the countdown phase.
	countdown *time.Timer
}

// opponentOf returns the other player in the room, or nil.
func (r *Room) opponentOf(p *Player) *Player {
	for _, q := range r.Players {
		if q != p {
			return q
		}
	}
	return nil
}

// allReady reports whether every occupied slot is ready.
func (r *Room) allReady() bool {
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return len(r.Players) > 0
}

// finishedCount returns how many players have reported a finish time.
func (r *Room) finishedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Finished {
			n++
		}
	}
	return n
}

// freeSlotID returns the lowest player ID not in use. Normally that is 2 for
// a joiner, but it can be 1 when the host left and the guest stayed.
func (r *Room) freeSlotID() int {
	for id := 1; ; id++ {
		taken := false
		for _, p := range r.Players {
			if p.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// stopCountdown disarms the start timer if one is pending. The callback may
// already be running; it re-validates the room before acting.
func (r *Room) stopCountdown() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
}

// PlayerInfo is a read-only projection of a Player for the ops surfaces.
type PlayerInfo struct {
	ID         int   `json:"player_id"`
	Ready      bool  `json:"ready"`
	Finished   bool  `json:"finished"`
	FinishTime int64 `json:"finish_time,omitempty"`
}

// RoomInfo is a read-only projection of a Room for the ops surfaces.
type RoomInfo struct {
	Code      string       `json:"code"`
	State     RoomState    `json:"state"`
	Players   []PlayerInfo `json:"players"`
	StartTime int64        `json:"start_time,omitempty"`
}

func (r *Room) info() RoomInfo {
	info := RoomInfo{
		Code:      r.Code,
		State:     r.State,
		StartTime: r.StartTime,
		Players:   make([]PlayerInfo, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		info.Players = append(info.Players, PlayerInfo{
			ID:         p.ID,
			Ready:      p.Ready,
			Finished:   p.Finished,
			FinishTime: p.FinishTime,
		})
	}
	return info
}

// Conn is the transport seam. The websocket layer adapts real connections to
// it; tests use in-memory fakes. Send must not block: implementations queue
// or fail fast.
type Conn interface {
	Send(msg any) error
}
