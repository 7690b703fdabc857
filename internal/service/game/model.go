package game

// 玩家身份（角色决定阵营，游戏开始时分配且不可变更）
const (
	ROLE_MERLIN   = "Merlin"
	ROLE_PERCIVAL = "Percival"
	ROLE_SERVANT  = "Loyal Servant"
	ROLE_ASSASSIN = "Assassin"
	ROLE_MORGANA  = "Morgana"
	ROLE_MINION   = "Minion of Mordred"
)

// 阵营
const (
	TEAM_GOOD = "good"
	TEAM_EVIL = "evil"
)

// 角色到阵营的固定映射
var roleTeams = map[string]string{
	ROLE_MERLIN:   TEAM_GOOD,
	ROLE_PERCIVAL: TEAM_GOOD,
	ROLE_SERVANT:  TEAM_GOOD,
	ROLE_ASSASSIN: TEAM_EVIL,
	ROLE_MORGANA:  TEAM_EVIL,
	ROLE_MINION:   TEAM_EVIL,
}

// RoleTeam 返回角色对应的阵营，未分配角色时返回空字符串
func RoleTeam(role string) string {
	return roleTeams[role]
}

// 游戏总体分为 6 个阶段，分别是：
// 1. 等待阶段（WAITING_FOR_PLAYERS）：玩家可以加入房间，凑齐 5~10 人后可以开始游戏
// 2. 组队阶段（TEAM_SELECTION）：队长选择本轮任务的出征队伍
// 3. 投票阶段（TEAM_VOTING）：全体玩家对队长提议的队伍进行表决
// 4. 任务阶段（MISSION_EXECUTION）：出征玩家秘密提交任务成功或失败
// 5. 刺杀阶段（ASSASSINATION）：好人方任务获胜后，刺客指认梅林
// 6. 结束阶段（GAME_OVER）：胜负已定，状态不再变化
const (
	PHASE_WAITING_FOR_PLAYERS = "WAITING_FOR_PLAYERS"
	PHASE_TEAM_SELECTION      = "TEAM_SELECTION"
	PHASE_TEAM_VOTING         = "TEAM_VOTING"
	PHASE_MISSION_EXECUTION   = "MISSION_EXECUTION"
	PHASE_ASSASSINATION       = "ASSASSINATION"
	PHASE_GAME_OVER           = "GAME_OVER"
)

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// 可空，仅在游戏开始后有值
	Role string `json:"role,omitempty"`
	Team string `json:"team,omitempty"`

	IsLeader bool `json:"isLeader"`
	IsOnline bool `json:"isOnline"`
	// 最近一次动作的毫秒时间戳
	LastAction int64 `json:"lastAction"`
}

type GameState struct {
	RoomID  string   `json:"roomId"`
	Players []Player `json:"players"`

	// 当前队长的玩家 ID；加入顺序决定轮换顺序
	CurrentLeader string `json:"currentLeader,omitempty"`
	Phase         string `json:"phase"`

	// 从 1 开始计数的任务轮次
	CurrentMission int `json:"currentMission"`
	// 当前任务中连续被否决的组队次数，累计到 5 次坏人直接获胜
	FailedVotes int `json:"failedVotes"`

	SelectedPlayers []string `json:"selectedPlayers"`
	// 投票记录：投票阶段记录全员表决，任务阶段记录出征玩家的成败牌
	Votes map[string]bool `json:"votes"`
	// 已完成任务的结果序列，true 表示任务成功
	MissionResults []bool `json:"missionResults"`

	Winner     string `json:"winner,omitempty"`
	LastUpdate int64  `json:"lastUpdate"`
}

// NewGameState 创建一个处于等待阶段的空房间状态
func NewGameState(roomID string) GameState {
	return GameState{
		RoomID:          roomID,
		Players:         make([]Player, 0),
		Phase:           PHASE_WAITING_FOR_PLAYERS,
		SelectedPlayers: make([]string, 0),
		Votes:           make(map[string]bool),
		MissionResults:  make([]bool, 0),
	}
}

// Clone 做一次深拷贝：归约器靠它保证不修改调用方持有的状态，
// 分发器在翻转在线标记前也必须先拷贝，避免写穿到仓库里共享的底层数组
func (gs GameState) Clone() GameState {
	next := gs

	next.Players = make([]Player, len(gs.Players))
	copy(next.Players, gs.Players)

	next.SelectedPlayers = make([]string, len(gs.SelectedPlayers))
	copy(next.SelectedPlayers, gs.SelectedPlayers)

	next.Votes = make(map[string]bool, len(gs.Votes))
	for id, v := range gs.Votes {
		next.Votes[id] = v
	}

	next.MissionResults = make([]bool, len(gs.MissionResults))
	copy(next.MissionResults, gs.MissionResults)

	return next
}

func (gs GameState) FindPlayer(playerID string) *Player {
	for i := range gs.Players {
		if gs.Players[i].ID == playerID {
			return &gs.Players[i]
		}
	}

	return nil
}

func (gs GameState) isSelected(playerID string) bool {
	for _, id := range gs.SelectedPlayers {
		if id == playerID {
			return true
		}
	}

	return false
}
