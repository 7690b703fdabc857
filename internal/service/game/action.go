package game

// 所有动作负载都带 roomId，由分发器用于路由，归约器本身不使用

type JoinPayload struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type StartPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type SelectPlayerPayload struct {
	RoomID string `json:"roomId"`
	// 发起选人的玩家，必须是当前队长
	PlayerID string `json:"playerId"`
	TargetID string `json:"targetId"`
}

type SubmitTeamPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type VoteTeamPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	// true 表示赞成本次组队
	Vote bool `json:"vote"`
}

type ExecuteMissionPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	// true 表示打出任务成功牌
	Success bool `json:"success"`
}

type AssassinatePayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	TargetID string `json:"targetId"`
}
