package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const cleanupGracePeriod = 5 * time.Minute

// Registry creates and looks up rooms by id and owns their deferred
// deletion. It holds handles only; all room state lives behind each room's
// own mutex.
type Registry struct {
	mu      sync.RWMutex
	cfg     Config
	rooms   map[string]*Room
	pending map[string]*time.Timer // armed cleanup timers by room id
	grace   time.Duration
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:     cfg,
		rooms:   make(map[string]*Room),
		pending: make(map[string]*time.Timer),
		grace:   cleanupGracePeriod,
	}
}

// GetOrCreate returns the room for id, constructing it lazily. Reuse beats
// cleanup: any pending deletion for the id is cancelled.
func (reg *Registry) GetOrCreate(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if t, ok := reg.pending[id]; ok {
		t.Stop()
		delete(reg.pending, id)
	}
	room, ok := reg.rooms[id]
	if !ok {
		room = NewRoom(id, reg.cfg)
		reg.rooms[id] = room
		log.Info().Str("room", id).Msg("room created")
	}
	return room
}

// Get returns the room for id, or nil.
func (reg *Registry) Get(id string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[id]
}

// ScheduleCleanup arms a one-shot deletion of the room after the grace
// period, provided it is currently empty. Re-arming replaces any pending
// timer; the deletion re-checks emptiness when it fires, so a reused room
// survives.
func (reg *Registry) ScheduleCleanup(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[id]
	if !ok || !room.Empty() {
		return
	}
	if t, ok := reg.pending[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(reg.grace, func() {
		// re-check and delete under one critical section, otherwise a
		// reuse+join can slip in between the emptiness read and the delete
		reg.mu.Lock()
		defer reg.mu.Unlock()
		if reg.pending[id] != t {
			// superseded by a newer arm
			return
		}
		delete(reg.pending, id)
		room, ok := reg.rooms[id]
		if !ok || !room.Empty() {
			return
		}
		delete(reg.rooms, id)
		log.Info().Str("room", id).Msg("room deleted")
	})
	reg.pending[id] = t
	log.Info().Str("room", id).Msg("cleanup scheduled")
}

// Delete removes the room and cancels any pending cleanup. Deleting a
// missing id, or deleting twice, is a no-op.
func (reg *Registry) Delete(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[id]; ok {
		delete(reg.rooms, id)
		log.Info().Str("room", id).Msg("room deleted")
	}
	if t, ok := reg.pending[id]; ok {
		t.Stop()
		delete(reg.pending, id)
	}
}

// ListActiveRooms snapshots every room for the listing endpoint.
func (reg *Registry) ListActiveRooms() []RoomInfo {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Snapshot())
	}
	return infos
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
