package error_notificator

import (
	"context"

	"go.uber.org/zap"
)

// Service всегда пишет ошибку в лог и, если задан infra, дублирует админу.
// Ошибка доставки не пробрасывается вызывающему.
type Service struct {
	infra Notificator
	log   *zap.SugaredLogger
}

func NewService(infra Notificator, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{infra: infra, log: log}
}

func (s *Service) Notify(ctx context.Context, err error, details string) error {
	s.log.Errorw("[error_notificator] "+details, "error", err)

	if s.infra == nil {
		return nil
	}
	if sendErr := s.infra.Notify(ctx, err, details); sendErr != nil {
		s.log.Warnw("[error_notificator] send fail", "error", sendErr)
	}
	return nil
}
