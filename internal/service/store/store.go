package store

import (
	"sync"

	"github.com/Pond32145/avalon/internal/service/game"
)

// Store 是按房间 ID 存放游戏状态的内存仓库
// 只做键值存取，不做任何校验；淘汰时机由上层分发器决定
type Store struct {
	mu    sync.RWMutex
	rooms map[string]game.GameState
}

func New() *Store {
	return &Store{
		rooms: make(map[string]game.GameState),
	}
}

func (s *Store) Get(roomID string) (game.GameState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.rooms[roomID]

	return state, ok
}

// GetOrCreate 取出房间状态，不存在时创建一个等待阶段的空房间
func (s *Store) GetOrCreate(roomID string) game.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.rooms[roomID]; ok {
		return state
	}

	state := game.NewGameState(roomID)
	s.rooms[roomID] = state

	return state
}

func (s *Store) Put(roomID string, state game.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[roomID] = state
}

func (s *Store) Remove(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
}
