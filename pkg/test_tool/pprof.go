package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"chat_relay_service/pkg/config"
	"chat_relay_service/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 非 production 時在 addr 啟動 pprof, empty addr keeps it off
func StartPprof(addr string) {
	if config.IsProduction() || addr == "" {
		logger.Log.Info("pprof is disabled")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Warn("pprof server stopped", zap.Error(err))
		}
	}()
}
