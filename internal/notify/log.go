package notify

import (
	"context"

	"go.uber.org/zap"
)

type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(ctx context.Context, ev Event) error {
	if n.Logger == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("event", ev.Type),
		zap.String("strategy_type", ev.StrategyType),
		zap.String("strategy_id", ev.StrategyID),
		zap.String("message", ev.Message),
	}
	if ev.BotID != "" {
		fields = append(fields, zap.String("bot_id", ev.BotID))
	}
	if ev.Level == LevelError {
		n.Logger.Warn("notify", fields...)
		return nil
	}
	n.Logger.Info("notify", fields...)
	return nil
}
