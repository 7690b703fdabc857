package service

import (
	"errors"
	"sync"
	"time"

	"github.com/Pond32145/avalon/internal/service/dto"
	"github.com/Pond32145/avalon/internal/service/game"
	"github.com/Pond32145/avalon/internal/service/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 房间闲置超过这个时长且无人在线时会被清理循环回收
const ROOM_IDLE_TIMEOUT = 30 * time.Minute

type RoomService struct {
	state *roomServiceState
}

type roomServiceState struct {
	mu sync.RWMutex

	store *store.Store
	// 从房间 ID 到该房间串行处理协程的请求通道
	roomReqChList map[string]chan RoomRequest

	perm game.PermFunc

	cleanUpDone chan struct{}
}

func NewRoomService(st *store.Store) *RoomService {
	return NewRoomServiceWithPerm(st, game.RandomPerm)
}

// NewRoomServiceWithPerm 允许注入确定性的洗牌排列，测试用
func NewRoomServiceWithPerm(st *store.Store, perm game.PermFunc) *RoomService {
	cleanUpDone := make(chan struct{})

	state := &roomServiceState{
		store:         st,
		roomReqChList: make(map[string]chan RoomRequest),
		perm:          perm,
		cleanUpDone:   cleanUpDone,
	}

	// 启动一个 goroutine 定期清理闲置的房间
	go startCleanupLoop(state)

	return &RoomService{
		state: state,
	}
}

func startCleanupLoop(state *roomServiceState) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-state.cleanUpDone:
			return

		case <-ticker.C:
			state.mu.RLock()

			stale := make([]chan RoomRequest, 0)

			for roomID, reqCh := range state.roomReqChList {
				gameState, ok := state.store.Get(roomID)
				if ok && !isRoomIdle(gameState) {
					continue
				}

				zap.S().Infof("房间 %s 闲置超时，开始清理", roomID)

				stale = append(stale, reqCh)
			}

			state.mu.RUnlock()

			// 通知对应的房间 goroutine 退出，由它自己完成摘除
			for _, reqCh := range stale {
				select {
				case reqCh <- RoomRequest{Done: &struct{}{}}:
				default:
				}
			}
		}
	}
}

func isRoomIdle(gameState game.GameState) bool {
	for _, p := range gameState.Players {
		if p.IsOnline {
			return false
		}
	}

	last := time.UnixMilli(gameState.LastUpdate)

	return time.Since(last) > ROOM_IDLE_TIMEOUT
}

func (rs *RoomService) Close() {
	close(rs.state.cleanUpDone)
}

// CreateRoom 分配一个新的房间 ID 并启动对应的房间协程
// 创建者随后通过 WebSocket 以 JOIN 动作真正进入房间
func (rs *RoomService) CreateRoom(req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	if req.CreatorName == "" {
		return dto.CreateRoomResponse{}, errors.New("创建者名称不能为空")
	}

	roomID := uuid.New().String()[:8]

	rs.ensureRoom(roomID)

	zap.S().Infof("房间 %s 由 %s 创建", roomID, req.CreatorName)

	return dto.CreateRoomResponse{
		RoomID: roomID,
	}, nil
}

// ensureRoom 确保房间状态和串行处理协程存在，返回请求通道
func (rs *RoomService) ensureRoom(roomID string) chan RoomRequest {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	if reqCh, ok := rs.state.roomReqChList[roomID]; ok {
		return reqCh
	}

	rs.state.store.GetOrCreate(roomID)

	reqCh := make(chan RoomRequest, 64)
	rs.state.roomReqChList[roomID] = reqCh

	go rs.roomLoop(roomID, reqCh)

	return reqCh
}

// removeRoom 摘除房间的请求通道和持久状态，只能由房间协程自己调用
func (rs *RoomService) removeRoom(roomID string) {
	rs.state.mu.Lock()
	delete(rs.state.roomReqChList, roomID)
	rs.state.mu.Unlock()

	rs.state.store.Remove(roomID)
}

// Attach 把一条连接注册为房间的订阅者
// JOIN 动作负责把玩家写入名册，Attach 只管理广播通道
func (rs *RoomService) Attach(roomID string, sub *Subscriber) error {
	reqCh := rs.ensureRoom(roomID)

	return rs.send(reqCh, RoomRequest{Attach: sub})
}

// Detach 在连接断开时调用：摘除订阅、把玩家标记为离线
func (rs *RoomService) Detach(roomID string, sub *Subscriber) {
	rs.state.mu.RLock()
	reqCh, ok := rs.state.roomReqChList[roomID]
	rs.state.mu.RUnlock()

	if !ok {
		return
	}

	if err := rs.send(reqCh, RoomRequest{Detach: sub}); err != nil {
		zap.S().Warnf("房间 %s 处理断开请求失败：%v", roomID, err)
	}
}

// Dispatch 把动作路由到对应房间的串行处理协程
// 只有 JOIN 动作可以隐式创建房间，其他动作发往未知房间会返回错误
func (rs *RoomService) Dispatch(action game.Action) error {
	roomID := action.RoomID()
	if roomID == "" {
		return errors.New("动作缺少房间 ID")
	}

	action.At = time.Now().UnixMilli()

	rs.state.mu.RLock()
	reqCh, ok := rs.state.roomReqChList[roomID]
	rs.state.mu.RUnlock()

	if !ok {
		if action.Type != game.ACTION_JOIN {
			return errors.New("房间不存在")
		}

		reqCh = rs.ensureRoom(roomID)
	}

	return rs.send(reqCh, RoomRequest{Action: &action})
}

// Reset 把一局已结束的游戏拉回等待阶段，名册保留、角色清空
// 这是分发器层面的操作，不属于归约器的状态转移
func (rs *RoomService) Reset(roomID string) error {
	rs.state.mu.RLock()
	reqCh, ok := rs.state.roomReqChList[roomID]
	rs.state.mu.RUnlock()

	if !ok {
		return errors.New("房间不存在")
	}

	return rs.send(reqCh, RoomRequest{Reset: &struct{}{}})
}

func (rs *RoomService) send(reqCh chan RoomRequest, req RoomRequest) error {
	timer := time.NewTimer(5 * time.Second)
	defer timer.Stop()

	select {
	case reqCh <- req:
		return nil
	case <-timer.C:
		return errors.New("房间繁忙，请求发送超时")
	}
}

// roomLoop 是房间的串行处理协程：一次只处理一个请求，
// 归约器因此不需要任何内部锁
func (rs *RoomService) roomLoop(roomID string, reqCh <-chan RoomRequest) {
	subs := make(map[*Subscriber]struct{})

	// 订阅通道归创建它的连接协程所有，这里只发关闭通知，绝不关闭：
	// 连接的读循环可能还在往自己的通道里写错误响应
	defer func() {
		for sub := range subs {
			select {
			case sub.RespCh <- game.WrapErrResponse("房间已关闭"):
			default:
			}
		}

		zap.S().Infof("房间 %s 协程退出", roomID)
	}()

	for req := range reqCh {
		if req.Done != nil {
			zap.S().Infof("房间 %s 收到关闭指令", roomID)
			rs.removeRoom(roomID)
			return
		}

		if req.Attach != nil {
			rs.handleAttach(roomID, req.Attach, subs)
			continue
		}

		if req.Detach != nil {
			if rs.handleDetach(roomID, req.Detach, subs) {
				// 房间已无人在线，随连接一起回收
				rs.removeRoom(roomID)
				return
			}
			continue
		}

		if req.Reset != nil {
			rs.handleReset(roomID, subs)
			continue
		}

		if req.Action != nil {
			rs.handleAction(roomID, *req.Action, subs)
		}
	}
}

func (rs *RoomService) handleAttach(roomID string, sub *Subscriber, subs map[*Subscriber]struct{}) {
	subs[sub] = struct{}{}

	gameState, ok := rs.state.store.Get(roomID)
	if !ok {
		return
	}

	// 名册里已有的玩家重新连上来，直接把在线标记翻回来
	// 这是断线标记的对称操作，同样由分发器负责而不是归约器
	// 翻转写在深拷贝上：清理协程会并发读取仓库里同一份快照的玩家数组
	if player := gameState.FindPlayer(sub.PlayerID); player != nil && !player.IsOnline {
		next := gameState.Clone()

		reconnected := next.FindPlayer(sub.PlayerID)
		reconnected.IsOnline = true
		reconnected.LastAction = time.Now().UnixMilli()
		next.LastUpdate = reconnected.LastAction

		rs.state.store.Put(roomID, next)

		zap.S().Infof("房间 %s 玩家 %s 重连上线", roomID, sub.PlayerID)

		broadcast(next, subs)
		return
	}

	// 新订阅者先收到一份当前快照
	unicast(gameState, sub)
}

// handleDetach 返回 true 表示房间已无人在线，应当回收
func (rs *RoomService) handleDetach(roomID string, sub *Subscriber, subs map[*Subscriber]struct{}) bool {
	delete(subs, sub)

	gameState, ok := rs.state.store.Get(roomID)
	if !ok {
		return len(subs) == 0
	}

	if player := gameState.FindPlayer(sub.PlayerID); player != nil && player.IsOnline {
		next := gameState.Clone()

		gone := next.FindPlayer(sub.PlayerID)
		gone.IsOnline = false
		gone.LastAction = time.Now().UnixMilli()
		next.LastUpdate = gone.LastAction

		rs.state.store.Put(roomID, next)

		zap.S().Infof("房间 %s 玩家 %s 断开连接", roomID, sub.PlayerID)

		broadcast(next, subs)

		gameState = next
	}

	for _, p := range gameState.Players {
		if p.IsOnline {
			return false
		}
	}

	return true
}

func (rs *RoomService) handleReset(roomID string, subs map[*Subscriber]struct{}) {
	gameState, ok := rs.state.store.Get(roomID)
	if !ok {
		return
	}

	if gameState.Phase != game.PHASE_GAME_OVER {
		return
	}

	next := resetToLobby(gameState)
	rs.state.store.Put(roomID, next)

	zap.S().Infof("房间 %s 重置回等待阶段", roomID)

	broadcast(next, subs)
}

func (rs *RoomService) handleAction(roomID string, action game.Action, subs map[*Subscriber]struct{}) {
	gameState, ok := rs.state.store.Get(roomID)
	if !ok {
		zap.S().Warnf("房间 %s 状态缺失，丢弃动作 %s", roomID, action.Type)
		return
	}

	next := game.Reduce(gameState, action, rs.state.perm)
	rs.state.store.Put(roomID, next)

	zap.S().Debugf("房间 %s 处理动作 %s，阶段 %s", roomID, action.Type, next.Phase)

	broadcast(next, subs)
}

func broadcast(gameState game.GameState, subs map[*Subscriber]struct{}) {
	for sub := range subs {
		unicast(gameState, sub)
	}
}

func unicast(gameState game.GameState, sub *Subscriber) {
	resp := game.WrapStateResponse(game.SnapshotFor(gameState, sub.PlayerID))

	select {
	case sub.RespCh <- resp:
	default:
		zap.S().Warnf("玩家 %s 的响应通道已满，丢弃快照", sub.PlayerID)
	}
}
