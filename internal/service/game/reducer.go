package game

// PermFunc 返回 [0, n) 的一个排列，用于发牌时打乱角色顺序
// 生产环境注入真实随机源，测试注入固定排列即可复现发牌结果
type PermFunc func(n int) []int

type transitionFunc func(state GameState, action Action, perm PermFunc) GameState

// 阶段 × 动作类型的状态机转移表
// 表中没有的组合一律视为非法动作，原样返回输入状态
// 这是刻意的"忽略非法输入"策略：客户端提交可能因网络延迟相互竞争，
// 迟到的动作不应报错，更不应破坏状态
var transitions = map[string]map[string]transitionFunc{
	PHASE_WAITING_FOR_PLAYERS: {
		ACTION_JOIN:  onJoin,
		ACTION_START: onStart,
	},
	PHASE_TEAM_SELECTION: {
		ACTION_SELECT_PLAYER: onSelectPlayer,
		ACTION_SUBMIT_TEAM:   onSubmitTeam,
	},
	PHASE_TEAM_VOTING: {
		ACTION_VOTE_TEAM: onVoteTeam,
	},
	PHASE_MISSION_EXECUTION: {
		ACTION_EXECUTE_MISSION: onExecuteMission,
	},
	PHASE_ASSASSINATION: {
		ACTION_ASSASSINATE: onAssassinate,
	},
	// 结束阶段不接受任何动作
	PHASE_GAME_OVER: {},
}

// Reduce 是规则引擎的唯一入口：纯函数，无副作用，
// 除注入的 perm 外没有任何隐藏随机性
func Reduce(state GameState, action Action, perm PermFunc) GameState {
	handlers, ok := transitions[state.Phase]
	if !ok {
		return state
	}

	fn, ok := handlers[action.Type]
	if !ok {
		return state
	}

	return fn(state, action, perm)
}

// 房间人数限制
const (
	MIN_PLAYERS = 5
	MAX_PLAYERS = 10
)

func onJoin(state GameState, action Action, _ PermFunc) GameState {
	payload := TryUnwrapJoin(action)
	if payload == nil || payload.PlayerID == "" {
		return state
	}

	// 同 ID 重复加入视为重连，只刷新在线状态
	if existing := state.FindPlayer(payload.PlayerID); existing != nil {
		next := state.Clone()

		player := next.FindPlayer(payload.PlayerID)
		player.IsOnline = true
		player.LastAction = action.At

		next.LastUpdate = action.At

		return next
	}

	if len(state.Players) >= MAX_PLAYERS {
		return state
	}

	next := state.Clone()

	// 第一个加入的玩家成为队长
	isFirst := len(next.Players) == 0

	next.Players = append(next.Players, Player{
		ID:         payload.PlayerID,
		Name:       payload.PlayerName,
		IsLeader:   isFirst,
		IsOnline:   true,
		LastAction: action.At,
	})

	if isFirst {
		next.CurrentLeader = payload.PlayerID
	}

	next.LastUpdate = action.At

	return next
}

func onStart(state GameState, action Action, perm PermFunc) GameState {
	payload := TryUnwrapStart(action)
	if payload == nil || state.FindPlayer(payload.PlayerID) == nil {
		return state
	}

	playerCount := len(state.Players)
	if playerCount < MIN_PLAYERS || playerCount > MAX_PLAYERS {
		return state
	}

	next := state.Clone()

	// 发牌：固定角色牌堆上应用注入的随机排列，按加入顺序逐一分配
	deck := buildRoleDeck(playerCount)
	order := perm(playerCount)

	for i := range next.Players {
		role := deck[order[i]]
		next.Players[i].Role = role
		next.Players[i].Team = RoleTeam(role)
	}

	next.Phase = PHASE_TEAM_SELECTION
	next.CurrentMission = 1
	next.FailedVotes = 0
	next.SelectedPlayers = make([]string, 0)
	next.LastUpdate = action.At

	return next
}

func onSelectPlayer(state GameState, action Action, _ PermFunc) GameState {
	payload := TryUnwrapSelectPlayer(action)
	if payload == nil {
		return state
	}

	// 只有当前队长可以选人
	if payload.PlayerID != state.CurrentLeader {
		return state
	}

	if state.FindPlayer(payload.TargetID) == nil {
		return state
	}

	next := state.Clone()

	// 重复选择同一人表示取消选择
	if next.isSelected(payload.TargetID) {
		kept := make([]string, 0, len(next.SelectedPlayers))
		for _, id := range next.SelectedPlayers {
			if id != payload.TargetID {
				kept = append(kept, id)
			}
		}
		next.SelectedPlayers = kept
		next.LastUpdate = action.At

		return next
	}

	// 队伍满员后不再接受新的选择
	if len(next.SelectedPlayers) >= MissionSize(len(next.Players), next.CurrentMission) {
		return state
	}

	next.SelectedPlayers = append(next.SelectedPlayers, payload.TargetID)
	next.LastUpdate = action.At

	return next
}

func onSubmitTeam(state GameState, action Action, _ PermFunc) GameState {
	payload := TryUnwrapSubmitTeam(action)
	if payload == nil || payload.PlayerID != state.CurrentLeader {
		return state
	}

	// 必须恰好凑齐本轮所需人数
	if len(state.SelectedPlayers) != MissionSize(len(state.Players), state.CurrentMission) {
		return state
	}

	next := state.Clone()
	next.Phase = PHASE_TEAM_VOTING
	next.Votes = make(map[string]bool)
	next.LastUpdate = action.At

	return next
}

func onVoteTeam(state GameState, action Action, _ PermFunc) GameState {
	payload := TryUnwrapVoteTeam(action)
	if payload == nil {
		return state
	}

	if state.FindPlayer(payload.PlayerID) == nil {
		return state
	}

	// 每人只能表决一次，重复表决不生效
	if _, voted := state.Votes[payload.PlayerID]; voted {
		return state
	}

	next := state.Clone()
	next.Votes[payload.PlayerID] = payload.Vote
	next.LastUpdate = action.At

	// 等待所有玩家表决完毕
	if len(next.Votes) < len(next.Players) {
		return next
	}

	approvals := 0
	for _, v := range next.Votes {
		if v {
			approvals++
		}
	}
	rejections := len(next.Players) - approvals

	// 严格多数通过，平票按否决处理
	if approvals > rejections {
		next.Phase = PHASE_MISSION_EXECUTION
		next.FailedVotes = 0
		next.Votes = make(map[string]bool)

		return next
	}

	next.FailedVotes++

	// 连续五次否决，坏人直接获胜
	if next.FailedVotes >= 5 {
		next.Phase = PHASE_GAME_OVER
		next.Winner = TEAM_EVIL

		return next
	}

	// 队长轮换到加入顺序的下一位，重新组队
	next.rotateLeader()
	next.Phase = PHASE_TEAM_SELECTION
	next.SelectedPlayers = make([]string, 0)
	next.Votes = make(map[string]bool)

	return next
}

func onExecuteMission(state GameState, action Action, _ PermFunc) GameState {
	payload := TryUnwrapExecuteMission(action)
	if payload == nil {
		return state
	}

	// 只有出征玩家可以提交任务牌
	if !state.isSelected(payload.PlayerID) {
		return state
	}

	if _, voted := state.Votes[payload.PlayerID]; voted {
		return state
	}

	next := state.Clone()
	next.Votes[payload.PlayerID] = payload.Success
	next.LastUpdate = action.At

	// 等待所有出征玩家提交完毕
	if len(next.Votes) < len(next.SelectedPlayers) {
		return next
	}

	failCount := 0
	for _, v := range next.Votes {
		if !v {
			failCount++
		}
	}

	failed := failCount >= FailsRequired(len(next.Players), next.CurrentMission)
	next.MissionResults = append(next.MissionResults, !failed)

	successes := 0
	failures := 0
	for _, r := range next.MissionResults {
		if r {
			successes++
		} else {
			failures++
		}
	}

	// 好人方凑满三次任务成功后，还要经受刺杀考验
	if successes >= 3 {
		next.Phase = PHASE_ASSASSINATION

		return next
	}

	if failures >= 3 {
		next.Phase = PHASE_GAME_OVER
		next.Winner = TEAM_EVIL

		return next
	}

	// 进入下一轮任务
	next.CurrentMission++
	next.rotateLeader()
	next.Phase = PHASE_TEAM_SELECTION
	next.SelectedPlayers = make([]string, 0)
	next.Votes = make(map[string]bool)

	return next
}

func onAssassinate(state GameState, action Action, _ PermFunc) GameState {
	payload := TryUnwrapAssassinate(action)
	if payload == nil {
		return state
	}

	// 只有刺客可以出手
	actor := state.FindPlayer(payload.PlayerID)
	if actor == nil || actor.Role != ROLE_ASSASSIN {
		return state
	}

	target := state.FindPlayer(payload.TargetID)
	if target == nil {
		return state
	}

	next := state.Clone()
	next.Phase = PHASE_GAME_OVER
	next.LastUpdate = action.At

	// 刺中梅林则坏人翻盘，否则好人坐实胜局
	if target.Role == ROLE_MERLIN {
		next.Winner = TEAM_EVIL
	} else {
		next.Winner = TEAM_GOOD
	}

	return next
}

// rotateLeader 将队长沿加入顺序循环移交给下一位玩家
func (gs *GameState) rotateLeader() {
	if len(gs.Players) == 0 {
		return
	}

	current := 0
	for i := range gs.Players {
		gs.Players[i].IsLeader = false
		if gs.Players[i].ID == gs.CurrentLeader {
			current = i
		}
	}

	nextIdx := (current + 1) % len(gs.Players)
	gs.Players[nextIdx].IsLeader = true
	gs.CurrentLeader = gs.Players[nextIdx].ID
}
