package websocket

import (
	"encoding/json"
	"time"

	"github.com/Pond32145/avalon/internal/service"
	"github.com/Pond32145/avalon/internal/service/game"
	"github.com/Pond32145/avalon/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// 客户端在游戏结束后可以发送的房间级指令，不经过归约器
const REQ_RESET = "RESET"

func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		clientIP := ctx.RemoteAddr()

		// 读取首次请求，必须是 JOIN 动作
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.L().Error(
				"读取首次请求失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		var action game.Action

		if err := json.Unmarshal(msg, &action); err != nil {
			zap.L().Error(
				"解析首次请求失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)

			return
		}

		joinPayload := game.TryUnwrapJoin(action)
		if joinPayload == nil {
			zap.L().Error(
				"首次请求不是JOIN类型",
				zap.String("client_ip", clientIP),
				zap.Any("action", action),
			)

			return
		}

		roomID := joinPayload.RoomID
		if roomID == "" {
			zap.L().Error("首次请求缺少房间ID", zap.String("client_ip", clientIP))
			return
		}

		// 客户端可以自带稳定的玩家 ID（断线重连用），没有就现场分配一个
		playerID := joinPayload.PlayerID
		if playerID == "" {
			playerID = game.ShortID()

			joinPayload.PlayerID = playerID

			rewrapped, err := json.Marshal(joinPayload)
			if err != nil {
				zap.L().Error("重建JOIN负载失败", zap.Error(err))
				return
			}

			action.Payload = rewrapped
		}

		// Buffer responses so a slow client does not stall the room loop.
		respCh := make(chan game.ResponseWrapper, 64)

		sub := &service.Subscriber{
			PlayerID: playerID,
			RespCh:   respCh,
		}

		// 先订阅广播，再派发 JOIN 动作，保证不漏掉自己触发的快照
		if err := appState.RoomSvc.Attach(roomID, sub); err != nil {
			zap.L().Error(
				"订阅房间失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)

			return
		}

		if err := appState.RoomSvc.Dispatch(action); err != nil {
			zap.L().Error(
				"派发JOIN动作失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)

			appState.RoomSvc.Detach(roomID, sub)

			return
		}

		zap.L().Info(
			"玩家成功加入房间",
			zap.String("client_ip", clientIP),
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.String("player_name", joinPayload.PlayerName),
		)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})

		// 写入协程
		go func() {
			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeDoneCh:
					zap.L().Info(
						"WebSocket写入协程退出",
						zap.String("client_ip", clientIP),
					)
					return

				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

				case resp := <-respCh:
					// 通道归本协程所有且从不关闭，房间回收时会收到关闭通知消息
					if err := conn.WriteJSON(resp); err != nil {
						zap.L().Error(
							"发送消息失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}
				}
			}
		}()

		// 读取循环（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var action game.Action

			if err := json.Unmarshal(msg, &action); err != nil {
				zap.L().Error(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				respCh <- game.WrapErrResponse("无效的请求格式")

				continue
			}

			// 房间级指令单独处理，不进入归约器
			if action.Type == REQ_RESET {
				if err := appState.RoomSvc.Reset(roomID); err != nil {
					respCh <- game.WrapErrResponse(err.Error())
				}

				continue
			}

			if err := appState.RoomSvc.Dispatch(action); err != nil {
				zap.L().Warn(
					"派发动作失败",
					zap.String("client_ip", clientIP),
					zap.String("action_type", action.Type),
					zap.Error(err),
				)

				respCh <- game.WrapErrResponse(err.Error())
			}
		}

		close(writeDoneCh)

		// 连接断开：摘除订阅并把玩家标记为离线
		appState.RoomSvc.Detach(roomID, sub)
	}
}
