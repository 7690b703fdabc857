package game

import (
	"fmt"
	"reflect"
	"testing"
)

func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}

	return p
}

func joinAction(playerID, name string, at int64) Action {
	return Action{
		Type:    ACTION_JOIN,
		Payload: mustMarshal(JoinPayload{RoomID: "room1", PlayerID: playerID, PlayerName: name}),
		At:      at,
	}
}

func startAction(playerID string) Action {
	return Action{
		Type:    ACTION_START,
		Payload: mustMarshal(StartPayload{RoomID: "room1", PlayerID: playerID}),
	}
}

func selectAction(playerID, targetID string) Action {
	return Action{
		Type:    ACTION_SELECT_PLAYER,
		Payload: mustMarshal(SelectPlayerPayload{RoomID: "room1", PlayerID: playerID, TargetID: targetID}),
	}
}

func submitAction(playerID string) Action {
	return Action{
		Type:    ACTION_SUBMIT_TEAM,
		Payload: mustMarshal(SubmitTeamPayload{RoomID: "room1", PlayerID: playerID}),
	}
}

func voteAction(playerID string, vote bool) Action {
	return Action{
		Type:    ACTION_VOTE_TEAM,
		Payload: mustMarshal(VoteTeamPayload{RoomID: "room1", PlayerID: playerID, Vote: vote}),
	}
}

func executeAction(playerID string, success bool) Action {
	return Action{
		Type:    ACTION_EXECUTE_MISSION,
		Payload: mustMarshal(ExecuteMissionPayload{RoomID: "room1", PlayerID: playerID, Success: success}),
	}
}

func assassinateAction(playerID, targetID string) Action {
	return Action{
		Type:    ACTION_ASSASSINATE,
		Payload: mustMarshal(AssassinatePayload{RoomID: "room1", PlayerID: playerID, TargetID: targetID}),
	}
}

// lobby 组一个 n 人房间，玩家 ID 为 p1..pn
func lobby(t *testing.T, n int) GameState {
	t.Helper()

	state := NewGameState("room1")

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		state = Reduce(state, joinAction(id, "Player "+id, int64(i)), nil)
	}

	if len(state.Players) != n {
		t.Fatalf("lobby setup failed, want %d players got %d", n, len(state.Players))
	}

	return state
}

// started 组房并用固定排列开局
func started(t *testing.T, n int) GameState {
	t.Helper()

	state := Reduce(lobby(t, n), startAction("p1"), identityPerm)

	if state.Phase != PHASE_TEAM_SELECTION {
		t.Fatalf("start failed, phase = %s", state.Phase)
	}

	return state
}

// rejectTeamOnce 走一轮组队并让所有人否决
func rejectTeamOnce(t *testing.T, state GameState) GameState {
	t.Helper()

	leader := state.CurrentLeader
	size := MissionSize(len(state.Players), state.CurrentMission)

	for i := 0; i < size; i++ {
		state = Reduce(state, selectAction(leader, state.Players[i].ID), nil)
	}

	state = Reduce(state, submitAction(leader), nil)
	if state.Phase != PHASE_TEAM_VOTING {
		t.Fatalf("submit failed, phase = %s", state.Phase)
	}

	for _, p := range state.Players {
		state = Reduce(state, voteAction(p.ID, false), nil)
	}

	return state
}

// runMission 走完一轮任务：全员赞成组队，出征玩家按给定布尔提交
func runMission(t *testing.T, state GameState, results []bool) GameState {
	t.Helper()

	leader := state.CurrentLeader
	size := MissionSize(len(state.Players), state.CurrentMission)

	if len(results) != size {
		t.Fatalf("runMission needs %d results, got %d", size, len(results))
	}

	for i := 0; i < size; i++ {
		state = Reduce(state, selectAction(leader, state.Players[i].ID), nil)
	}

	state = Reduce(state, submitAction(leader), nil)

	for _, p := range state.Players {
		state = Reduce(state, voteAction(p.ID, true), nil)
	}

	if state.Phase != PHASE_MISSION_EXECUTION {
		t.Fatalf("team vote should pass, phase = %s", state.Phase)
	}

	selected := append([]string{}, state.SelectedPlayers...)
	for i, id := range selected {
		state = Reduce(state, executeAction(id, results[i]), nil)
	}

	return state
}

func TestReduce_Join_FirstJoinerBecomesLeader(t *testing.T) {
	state := lobby(t, 5)

	if state.CurrentLeader != "p1" {
		t.Fatalf("leader = %q, want p1", state.CurrentLeader)
	}

	if !state.Players[0].IsLeader {
		t.Fatalf("p1 should carry the leader flag")
	}

	for i, p := range state.Players {
		want := fmt.Sprintf("p%d", i+1)
		if p.ID != want {
			t.Fatalf("join order broken at %d: got %s want %s", i, p.ID, want)
		}
	}
}

func TestReduce_Join_DuplicateIDOnlyRefreshesPresence(t *testing.T) {
	state := lobby(t, 5)
	state.Players[2].IsOnline = false

	next := Reduce(state, joinAction("p3", "Renamed", 99), nil)

	if len(next.Players) != 5 {
		t.Fatalf("duplicate join must not grow roster, got %d players", len(next.Players))
	}

	p3 := next.FindPlayer("p3")
	if !p3.IsOnline || p3.LastAction != 99 {
		t.Fatalf("duplicate join should refresh presence, got online=%v lastAction=%d", p3.IsOnline, p3.LastAction)
	}

	if p3.Name != "Player p3" {
		t.Fatalf("duplicate join must not rename player, got %q", p3.Name)
	}
}

func TestReduce_Join_RejectsEleventhPlayer(t *testing.T) {
	state := lobby(t, 10)

	next := Reduce(state, joinAction("p11", "Player p11", 11), nil)

	if len(next.Players) != 10 {
		t.Fatalf("roster should cap at 10, got %d", len(next.Players))
	}
}

func TestReduce_Start_RequiresKnownActor(t *testing.T) {
	state := lobby(t, 5)

	next := Reduce(state, startAction("ghost"), identityPerm)

	if next.Phase != PHASE_WAITING_FOR_PLAYERS {
		t.Fatalf("start from a player outside the roster should be a no-op, phase = %s", next.Phase)
	}
}

func TestReduce_Start_RequiresFiveToTenPlayers(t *testing.T) {
	state := lobby(t, 4)

	next := Reduce(state, startAction("p1"), identityPerm)
	if next.Phase != PHASE_WAITING_FOR_PLAYERS {
		t.Fatalf("start with 4 players should be a no-op, phase = %s", next.Phase)
	}
}

// 五人局开局：1 梅林、1 刺客、2 忠臣、1 爪牙，首轮任务 2 人
func TestReduce_Start_FivePlayerRoleSetAndMissionSize(t *testing.T) {
	state := started(t, 5)

	counts := make(map[string]int)
	for _, p := range state.Players {
		counts[p.Role]++

		if RoleTeam(p.Role) != p.Team {
			t.Fatalf("player %s team %q does not match role %q", p.ID, p.Team, p.Role)
		}
	}

	want := map[string]int{
		ROLE_MERLIN:   1,
		ROLE_ASSASSIN: 1,
		ROLE_SERVANT:  2,
		ROLE_MINION:   1,
	}

	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("role multiset = %v, want %v", counts, want)
	}

	if state.CurrentMission != 1 {
		t.Fatalf("currentMission = %d, want 1", state.CurrentMission)
	}

	if size := MissionSize(len(state.Players), state.CurrentMission); size != 2 {
		t.Fatalf("mission 1 size = %d, want 2", size)
	}
}

func TestReduce_Start_IsDeterministicUnderFixedPermutation(t *testing.T) {
	base := lobby(t, 7)

	first := Reduce(base, startAction("p1"), identityPerm)
	second := Reduce(base, startAction("p1"), identityPerm)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same state, same action, same permutation must yield identical results")
	}
}

func TestReduce_Start_FreezesRoster(t *testing.T) {
	state := started(t, 5)

	next := Reduce(state, joinAction("p6", "Player p6", 60), nil)

	if len(next.Players) != 5 {
		t.Fatalf("roster must be frozen after start, got %d players", len(next.Players))
	}
}

func TestReduce_TeamSelection_OnlyLeaderMaySelect(t *testing.T) {
	state := started(t, 5)

	next := Reduce(state, selectAction("p2", "p3"), nil)

	if len(next.SelectedPlayers) != 0 {
		t.Fatalf("non-leader selection must be ignored, got %v", next.SelectedPlayers)
	}
}

func TestReduce_TeamSelection_ToggleRemovesTarget(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p2"), nil)
	state = Reduce(state, selectAction("p1", "p2"), nil)

	if len(state.SelectedPlayers) != 0 {
		t.Fatalf("re-selecting a selected target should deselect, got %v", state.SelectedPlayers)
	}
}

func TestReduce_TeamSelection_EnforcesTeamSizeBound(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p1"), nil)
	state = Reduce(state, selectAction("p1", "p2"), nil)
	state = Reduce(state, selectAction("p1", "p3"), nil)

	if len(state.SelectedPlayers) != 2 {
		t.Fatalf("selection must cap at mission size 2, got %v", state.SelectedPlayers)
	}
}

func TestReduce_SubmitTeam_RequiresExactSize(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p1"), nil)

	next := Reduce(state, submitAction("p1"), nil)
	if next.Phase != PHASE_TEAM_SELECTION {
		t.Fatalf("submit with 1 of 2 selected should be a no-op, phase = %s", next.Phase)
	}

	state = Reduce(state, selectAction("p1", "p2"), nil)

	next = Reduce(state, submitAction("p1"), nil)
	if next.Phase != PHASE_TEAM_VOTING {
		t.Fatalf("submit with full team should enter voting, phase = %s", next.Phase)
	}

	if len(next.Votes) != 0 {
		t.Fatalf("votes should be cleared when voting starts, got %v", next.Votes)
	}
}

// 五人局 2 赞成 3 反对：回到组队阶段，否决计数 1，队长轮到 p2
func TestReduce_TeamVoting_RejectionRotatesLeader(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p1"), nil)
	state = Reduce(state, selectAction("p1", "p2"), nil)
	state = Reduce(state, submitAction("p1"), nil)

	votes := map[string]bool{"p1": true, "p2": true, "p3": false, "p4": false, "p5": false}
	for id, v := range votes {
		state = Reduce(state, voteAction(id, v), nil)
	}

	if state.Phase != PHASE_TEAM_SELECTION {
		t.Fatalf("rejected team should return to selection, phase = %s", state.Phase)
	}

	if state.FailedVotes != 1 {
		t.Fatalf("failedVotes = %d, want 1", state.FailedVotes)
	}

	if state.CurrentLeader != "p2" {
		t.Fatalf("leader should advance to p2, got %s", state.CurrentLeader)
	}

	if len(state.SelectedPlayers) != 0 || len(state.Votes) != 0 {
		t.Fatalf("selection and votes should be cleared after rejection")
	}

	leaders := 0
	for _, p := range state.Players {
		if p.IsLeader {
			leaders++
		}
	}
	if leaders != 1 {
		t.Fatalf("exactly one player must carry the leader flag, got %d", leaders)
	}
}

// 六人局 3:3 平票按否决处理
func TestReduce_TeamVoting_TieCountsAsRejection(t *testing.T) {
	state := started(t, 6)

	leader := state.CurrentLeader
	for i := 0; i < MissionSize(6, 1); i++ {
		state = Reduce(state, selectAction(leader, state.Players[i].ID), nil)
	}
	state = Reduce(state, submitAction(leader), nil)

	for i, p := range state.Players {
		state = Reduce(state, voteAction(p.ID, i < 3), nil)
	}

	if state.Phase != PHASE_TEAM_SELECTION {
		t.Fatalf("tie vote should reject the team, phase = %s", state.Phase)
	}

	if state.FailedVotes != 1 {
		t.Fatalf("failedVotes = %d, want 1", state.FailedVotes)
	}
}

func TestReduce_TeamVoting_PreventsDuplicateVotes(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p1"), nil)
	state = Reduce(state, selectAction("p1", "p2"), nil)
	state = Reduce(state, submitAction("p1"), nil)

	state = Reduce(state, voteAction("p3", true), nil)

	again := Reduce(state, voteAction("p3", false), nil)

	if !reflect.DeepEqual(state, again) {
		t.Fatalf("second vote from the same player must be a no-op")
	}

	if !again.Votes["p3"] {
		t.Fatalf("first vote must stand, got %v", again.Votes["p3"])
	}
}

// 连续五次否决，坏人直接获胜
func TestReduce_TeamVoting_FiveRejectionsEndGameForEvil(t *testing.T) {
	state := started(t, 5)

	for i := 0; i < 5; i++ {
		state = rejectTeamOnce(t, state)
	}

	if state.Phase != PHASE_GAME_OVER {
		t.Fatalf("five straight rejections should end the game, phase = %s", state.Phase)
	}

	if state.Winner != TEAM_EVIL {
		t.Fatalf("winner = %q, want evil", state.Winner)
	}
}

func TestReduce_TeamVoting_ApprovalResetsFailedVotes(t *testing.T) {
	state := started(t, 5)

	state = rejectTeamOnce(t, state)
	if state.FailedVotes != 1 {
		t.Fatalf("failedVotes = %d, want 1", state.FailedVotes)
	}

	leader := state.CurrentLeader
	state = Reduce(state, selectAction(leader, "p1"), nil)
	state = Reduce(state, selectAction(leader, "p2"), nil)
	state = Reduce(state, submitAction(leader), nil)

	for _, p := range state.Players {
		state = Reduce(state, voteAction(p.ID, true), nil)
	}

	if state.Phase != PHASE_MISSION_EXECUTION {
		t.Fatalf("approved team should start the mission, phase = %s", state.Phase)
	}

	if state.FailedVotes != 0 {
		t.Fatalf("approval should reset failedVotes, got %d", state.FailedVotes)
	}
}

func TestReduce_Mission_OnlySelectedPlayersMayExecute(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p1"), nil)
	state = Reduce(state, selectAction("p1", "p2"), nil)
	state = Reduce(state, submitAction("p1"), nil)
	for _, p := range state.Players {
		state = Reduce(state, voteAction(p.ID, true), nil)
	}

	next := Reduce(state, executeAction("p5", false), nil)

	if !reflect.DeepEqual(state, next) {
		t.Fatalf("mission vote from a bystander must be a no-op")
	}
}

func TestReduce_Mission_PreventsDuplicateExecution(t *testing.T) {
	state := started(t, 5)

	state = Reduce(state, selectAction("p1", "p1"), nil)
	state = Reduce(state, selectAction("p1", "p2"), nil)
	state = Reduce(state, submitAction("p1"), nil)
	for _, p := range state.Players {
		state = Reduce(state, voteAction(p.ID, true), nil)
	}

	state = Reduce(state, executeAction("p1", true), nil)

	again := Reduce(state, executeAction("p1", false), nil)

	if !reflect.DeepEqual(state, again) {
		t.Fatalf("second mission card from the same player must be a no-op")
	}
}

func TestReduce_Mission_CompletionRotatesLeaderAndAdvances(t *testing.T) {
	state := started(t, 5)

	state = runMission(t, state, []bool{true, true})

	if state.Phase != PHASE_TEAM_SELECTION {
		t.Fatalf("after mission 1 the game should return to selection, phase = %s", state.Phase)
	}

	if state.CurrentMission != 2 {
		t.Fatalf("currentMission = %d, want 2", state.CurrentMission)
	}

	if state.CurrentLeader != "p2" {
		t.Fatalf("leader should rotate to p2, got %s", state.CurrentLeader)
	}

	if len(state.MissionResults) != 1 || !state.MissionResults[0] {
		t.Fatalf("missionResults = %v, want [true]", state.MissionResults)
	}
}

// 八人局第 4 轮需要两张失败牌，单张失败仍记为成功
func TestReduce_Mission_FourthMissionOfEightNeedsTwoFails(t *testing.T) {
	state := started(t, 8)

	if got := FailsRequired(8, 4); got != 2 {
		t.Fatalf("failsRequired(8, 4) = %d, want 2", got)
	}

	state.Phase = PHASE_MISSION_EXECUTION
	state.CurrentMission = 4
	state.MissionResults = []bool{true, false, false}
	state.SelectedPlayers = []string{"p1", "p2", "p3", "p4", "p5"}
	state.Votes = make(map[string]bool)

	results := []bool{true, true, true, true, false}
	for i, id := range state.SelectedPlayers {
		state = Reduce(state, executeAction(id, results[i]), nil)
	}

	if len(state.MissionResults) != 4 {
		t.Fatalf("missionResults length = %d, want 4", len(state.MissionResults))
	}

	if !state.MissionResults[3] {
		t.Fatalf("one fail out of five must not sink mission 4 of an 8-player game")
	}

	if state.Phase != PHASE_TEAM_SELECTION {
		t.Fatalf("game should continue to mission 5, phase = %s", state.Phase)
	}
}

func TestReduce_Mission_ThreeFailuresEndGameForEvil(t *testing.T) {
	state := started(t, 5)

	// 连续三轮任务各出一张失败牌
	state = runMission(t, state, []bool{false, true})
	state = runMission(t, state, []bool{false, true, true})
	state = runMission(t, state, []bool{false, true})

	if state.Phase != PHASE_GAME_OVER {
		t.Fatalf("three failed missions should end the game, phase = %s", state.Phase)
	}

	if state.Winner != TEAM_EVIL {
		t.Fatalf("winner = %q, want evil", state.Winner)
	}
}

// 三次任务成功进入刺杀阶段；刺错人好人获胜，刺中梅林坏人获胜
func TestReduce_Assassination_DecidesTheGame(t *testing.T) {
	state := started(t, 5) // 固定排列下 p1=梅林 p2=刺客

	state = runMission(t, state, []bool{true, true})
	state = runMission(t, state, []bool{true, true, true})
	state = runMission(t, state, []bool{true, true})

	if state.Phase != PHASE_ASSASSINATION {
		t.Fatalf("three successes should trigger assassination, phase = %s", state.Phase)
	}

	if state.Winner != "" {
		t.Fatalf("winner must stay unset before assassination, got %q", state.Winner)
	}

	missed := Reduce(state, assassinateAction("p2", "p4"), nil)
	if missed.Phase != PHASE_GAME_OVER || missed.Winner != TEAM_GOOD {
		t.Fatalf("missing Merlin should hand good the win, phase=%s winner=%q", missed.Phase, missed.Winner)
	}

	hit := Reduce(state, assassinateAction("p2", "p1"), nil)
	if hit.Phase != PHASE_GAME_OVER || hit.Winner != TEAM_EVIL {
		t.Fatalf("hitting Merlin should flip the win to evil, phase=%s winner=%q", hit.Phase, hit.Winner)
	}
}

func TestReduce_Assassination_OnlyAssassinMayAct(t *testing.T) {
	state := started(t, 5)

	state = runMission(t, state, []bool{true, true})
	state = runMission(t, state, []bool{true, true, true})
	state = runMission(t, state, []bool{true, true})

	next := Reduce(state, assassinateAction("p1", "p3"), nil)

	if !reflect.DeepEqual(state, next) {
		t.Fatalf("assassination attempt by a non-assassin must be a no-op")
	}
}

func TestReduce_GameOver_IsTerminal(t *testing.T) {
	state := started(t, 5)

	for i := 0; i < 5; i++ {
		state = rejectTeamOnce(t, state)
	}

	if state.Phase != PHASE_GAME_OVER || state.Winner != TEAM_EVIL {
		t.Fatalf("setup failed, phase=%s winner=%q", state.Phase, state.Winner)
	}

	attempts := []Action{
		joinAction("p9", "Player p9", 900),
		startAction("p1"),
		selectAction(state.CurrentLeader, "p1"),
		voteAction("p1", true),
		executeAction("p1", true),
		assassinateAction("p2", "p1"),
	}

	for _, attempt := range attempts {
		next := Reduce(state, attempt, identityPerm)
		if !reflect.DeepEqual(state, next) {
			t.Fatalf("action %s must not mutate a finished game", attempt.Type)
		}
	}
}

// 非法动作应用一次和应用两次的结果完全一致
func TestReduce_IllegalActionsAreIdempotent(t *testing.T) {
	state := lobby(t, 5)

	illegal := voteAction("p1", true) // 等待阶段不存在表决

	once := Reduce(state, illegal, nil)
	twice := Reduce(once, illegal, nil)

	if !reflect.DeepEqual(state, once) || !reflect.DeepEqual(once, twice) {
		t.Fatalf("illegal action must leave the state untouched no matter how often it is replayed")
	}
}

func TestReduce_UnknownActionTypeIsNoOp(t *testing.T) {
	state := started(t, 5)

	next := Reduce(state, Action{Type: "DANCE", Payload: mustMarshal(map[string]string{"roomId": "room1"})}, nil)

	if !reflect.DeepEqual(state, next) {
		t.Fatalf("unknown action type must be ignored")
	}
}

func TestReduce_DoesNotMutateInputState(t *testing.T) {
	state := started(t, 5)
	before := state.Clone()

	_ = Reduce(state, selectAction("p1", "p2"), nil)

	if !reflect.DeepEqual(before, state) {
		t.Fatalf("Reduce must not mutate its input state")
	}
}

func TestReduce_WinnerOnlySetAtGameOver(t *testing.T) {
	state := started(t, 5)

	state = runMission(t, state, []bool{true, true})
	if state.Winner != "" {
		t.Fatalf("winner must stay unset mid-game, got %q", state.Winner)
	}

	state = runMission(t, state, []bool{false, true, true})
	if state.Winner != "" {
		t.Fatalf("winner must stay unset mid-game, got %q", state.Winner)
	}
}
