package service

import (
	"github.com/Pond32145/avalon/internal/service/game"
)

// RoomRequest 是发往房间协程的请求，同一时刻只会有一个字段非空
type RoomRequest struct {
	Action *game.Action
	Attach *Subscriber
	Detach *Subscriber
	Reset  *struct{}
	Done   *struct{}
}

// Subscriber 代表一条订阅了房间广播的连接
// RespCh 由创建它的连接协程所有，房间协程只写入、从不关闭
type Subscriber struct {
	PlayerID string
	RespCh   chan game.ResponseWrapper
}

// resetToLobby 保留名册、清空对局数据，重新回到等待阶段
// 第一位玩家重新成为队长，与初次建房时的规则一致
func resetToLobby(gameState game.GameState) game.GameState {
	next := game.NewGameState(gameState.RoomID)

	next.LastUpdate = gameState.LastUpdate

	for i, p := range gameState.Players {
		next.Players = append(next.Players, game.Player{
			ID:         p.ID,
			Name:       p.Name,
			IsLeader:   i == 0,
			IsOnline:   p.IsOnline,
			LastAction: p.LastAction,
		})
	}

	if len(next.Players) > 0 {
		next.CurrentLeader = next.Players[0].ID
	}

	return next
}
