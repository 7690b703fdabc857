package game

// CanSeeRole 判断 viewer 角色能否感知 target 角色的存在，是两个角色的纯函数：
// 梅林看见所有坏人；派西维尔看见梅林和莫甘娜（但分不清谁是谁）；
// 坏人互相看见；其余角色什么都看不见
// 只用于决定向每个客户端披露什么，绝不参与规则判定
func CanSeeRole(viewerRole, targetRole string) bool {
	if viewerRole == "" || targetRole == "" {
		return false
	}

	switch viewerRole {
	case ROLE_MERLIN:
		return RoleTeam(targetRole) == TEAM_EVIL
	case ROLE_PERCIVAL:
		return targetRole == ROLE_MERLIN || targetRole == ROLE_MORGANA
	case ROLE_ASSASSIN, ROLE_MORGANA, ROLE_MINION:
		return RoleTeam(targetRole) == TEAM_EVIL
	default:
		return false
	}
}

// VisibleRoles 以 viewer 的视角计算整个名单的可见性
// 玩家永远"看见"自己
func VisibleRoles(state GameState, viewerID string) map[string]bool {
	viewer := state.FindPlayer(viewerID)

	visible := make(map[string]bool, len(state.Players))

	for _, target := range state.Players {
		if target.ID == viewerID {
			visible[target.ID] = true
			continue
		}

		if viewer == nil {
			visible[target.ID] = false
			continue
		}

		visible[target.ID] = CanSeeRole(viewer.Role, target.Role)
	}

	return visible
}

// Snapshot 是广播给单个客户端的按视角脱敏状态
type Snapshot struct {
	GameState
	VisibleRoles map[string]bool `json:"visibleRoles"`
}

// SnapshotFor 生成 viewer 专属的快照：
// 除自己以外的所有角色和阵营字段一律抹掉，只保留可见性布尔值，
// 避免派西维尔等角色从字段内容反推出额外信息；游戏结束后全部公开
func SnapshotFor(state GameState, viewerID string) Snapshot {
	redacted := state.Clone()

	if redacted.Phase != PHASE_GAME_OVER {
		for i := range redacted.Players {
			if redacted.Players[i].ID == viewerID {
				continue
			}

			redacted.Players[i].Role = ""
			redacted.Players[i].Team = ""
		}
	}

	return Snapshot{
		GameState:    redacted,
		VisibleRoles: VisibleRoles(state, viewerID),
	}
}
