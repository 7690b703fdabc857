package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 动作类型
const (
	ACTION_JOIN            = "JOIN"
	ACTION_START           = "START"
	ACTION_SELECT_PLAYER   = "SELECT_PLAYER"
	ACTION_SUBMIT_TEAM     = "SUBMIT_TEAM"
	ACTION_VOTE_TEAM       = "VOTE_TEAM"
	ACTION_EXECUTE_MISSION = "EXECUTE_MISSION"
	ACTION_ASSASSINATE     = "ASSASSINATE"
)

// Action 是客户端动作信封，负载按类型延迟解码
// At 由分发器在接收动作时盖上毫秒时间戳，保证归约器本身不读取时钟
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      int64           `json:"at,omitempty"`
}

// RoomID 从负载中提取房间 ID，供分发器路由使用
func (a Action) RoomID() string {
	var routing struct {
		RoomID string `json:"roomId"`
	}

	if err := json.Unmarshal(a.Payload, &routing); err != nil {
		return ""
	}

	return routing.RoomID
}

func TryUnwrapJoin(action Action) *JoinPayload {
	if action.Type != ACTION_JOIN {
		return nil
	}

	var payload JoinPayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap JoinPayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

func TryUnwrapStart(action Action) *StartPayload {
	if action.Type != ACTION_START {
		return nil
	}

	var payload StartPayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap StartPayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

func TryUnwrapSelectPlayer(action Action) *SelectPlayerPayload {
	if action.Type != ACTION_SELECT_PLAYER {
		return nil
	}

	var payload SelectPlayerPayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap SelectPlayerPayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

func TryUnwrapSubmitTeam(action Action) *SubmitTeamPayload {
	if action.Type != ACTION_SUBMIT_TEAM {
		return nil
	}

	var payload SubmitTeamPayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap SubmitTeamPayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

func TryUnwrapVoteTeam(action Action) *VoteTeamPayload {
	if action.Type != ACTION_VOTE_TEAM {
		return nil
	}

	var payload VoteTeamPayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap VoteTeamPayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

func TryUnwrapExecuteMission(action Action) *ExecuteMissionPayload {
	if action.Type != ACTION_EXECUTE_MISSION {
		return nil
	}

	var payload ExecuteMissionPayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap ExecuteMissionPayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

func TryUnwrapAssassinate(action Action) *AssassinatePayload {
	if action.Type != ACTION_ASSASSINATE {
		return nil
	}

	var payload AssassinatePayload

	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		zap.L().Error(
			"Failed to unwrap AssassinatePayload",
			zap.Error(err),
			zap.Any("action", action),
		)
		return nil
	}

	return &payload
}

// 响应类型
const (
	RESP_ERROR = "Error"
	RESP_STATE = "GameState"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapStateResponse(snapshot Snapshot) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_STATE,
		Data:     snapshot,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
