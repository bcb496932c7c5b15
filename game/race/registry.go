package race

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"regexp"
	"strconv"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrRaceInProgress  = errors.New("race already started")
)

var roomCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidRoomCode reports whether code is exactly six ASCII digits.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// Registry owns the code-to-room mapping. It does no locking of its own: the
// Service serializes every access, so the registry is plain state.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create allocates a waiting room under a fresh code and returns both.
func (g *Registry) Create() (string, *Room) {
	code := g.generateCode()
	room := &Room{
		Code:  code,
		State: StateWaiting,
	}
	g.rooms[code] = room
	return code, room
}

// Get looks up a room by code.
func (g *Registry) Get(code string) (*Room, bool) {
	room, ok := g.rooms[code]
	return room, ok
}

// Delete removes a room. Deleting an absent code is a no-op.
func (g *Registry) Delete(code string) {
	delete(g.rooms, code)
}

// Count returns the number of live rooms.
func (g *Registry) Count() int {
	return len(g.rooms)
}

// Codes returns the codes of all live rooms, in map order.
func (g *Registry) Codes() []string {
	codes := make([]string, 0, len(g.rooms))
	for code := range g.rooms {
		codes = append(codes, code)
	}
	return codes
}

// generateCode draws uniform random 6-digit codes until one is not a live
// registry key. The retry loop closes the residual collision window without
// changing the external contract.
func (g *Registry) generateCode() string {
	for {
		var buf [4]byte
		rand.Read(buf[:])
		n := binary.BigEndian.Uint32(buf[:]) % 900000
		code := strconv.Itoa(100000 + int(n))
		if _, taken := g.rooms[code]; !taken {
			return code
		}
	}
}
