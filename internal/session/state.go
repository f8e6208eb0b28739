package session

import (
	"sync"

	"github.com/tyemirov/petjo-admin/pkg/tokenclaims"
)

// State holds the identity of the signed-in user, or nil when anonymous.
// Any number of readers may observe it; only the Manager publishes to it.
type State struct {
	mutex       sync.RWMutex
	identity    tokenclaims.Claims
	subscribers map[uint64]chan tokenclaims.Claims
	nextID      uint64
}

// NewState creates an anonymous State.
func NewState() *State {
	return &State{subscribers: make(map[uint64]chan tokenclaims.Claims)}
}

// Identity returns a copy of the current identity.
func (state *State) Identity() tokenclaims.Claims {
	state.mutex.RLock()
	defer state.mutex.RUnlock()
	return state.identity.Clone()
}

// Subscribe returns a channel that first yields the current identity and then
// every published change. A slow reader only sees the latest value. The
// returned function unsubscribes and closes the channel.
func (state *State) Subscribe() (<-chan tokenclaims.Claims, func()) {
	state.mutex.Lock()
	defer state.mutex.Unlock()

	subscriptionID := state.nextID
	state.nextID++
	updates := make(chan tokenclaims.Claims, 1)
	updates <- state.identity.Clone()
	state.subscribers[subscriptionID] = updates

	var once sync.Once
	return updates, func() {
		once.Do(func() {
			state.mutex.Lock()
			defer state.mutex.Unlock()
			if channel, ok := state.subscribers[subscriptionID]; ok {
				delete(state.subscribers, subscriptionID)
				close(channel)
			}
		})
	}
}

func (state *State) publish(identity tokenclaims.Claims) {
	state.mutex.Lock()
	defer state.mutex.Unlock()

	state.identity = identity.Clone()
	for _, updates := range state.subscribers {
		select {
		case <-updates:
		default:
		}
		updates <- state.identity.Clone()
	}
}
