package application

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"go.uber.org/zap"
)

// WaitShutdown 阻塞直到 SIGINT/SIGTERM 或 ctx 结束。
// 第一次信号触发优雅关闭；第二次信号立即退出。
func WaitShutdown(ctx context.Context, log logger.Logger) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.InfoCtx(ctx, "Shutdown signal received", zap.String("signal", sig.String()))
		go func() {
			sig := <-quit
			log.WarnCtx(context.Background(), "Second signal received, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		}()
	case <-ctx.Done():
		signal.Stop(quit)
	}
}
