package main

import (
	"github.com/Pond32145/avalon/internal/api/http"
	"github.com/Pond32145/avalon/internal/config"
	"github.com/Pond32145/avalon/internal/logger"
	"github.com/Pond32145/avalon/internal/service"
	"github.com/Pond32145/avalon/internal/service/store"
	"github.com/Pond32145/avalon/internal/state"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)

    // 组装应用状态
    appState := state.NewAppState(
        cfg,
        service.NewRoomService(store.New()),
    )

    // 启动服务器
    http.RunServer(appState)
}
