package policyattachment

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every routed request with its outcome and duration.
// The envelope is parsed by the routing core, so fields are read after next returns.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, s *RouteState) (RoutedResult, error) {
			start := time.Now()
			rr, err := next(ctx, s)

			fields := []zap.Field{
				zap.String("typeName", rr.TypeName),
				zap.String("action", rr.Action),
				zap.String("requestId", rr.RequestID),
				zap.Bool("shouldDelete", rr.HandlerResult.ShouldDelete),
				zap.Duration("duration", time.Since(start)),
			}
			if s != nil {
				fields = append(fields, zap.String("handlerKey", string(s.HandlerKey)))
			}
			if p := rr.HandlerResult.Progress; p != nil {
				fields = append(fields, zap.String("status", string(p.OperationStatus)))
			}

			switch {
			case err != nil:
				logger.Error("middleware chain failed", append(fields, zap.Error(err))...)
			case rr.HandlerResult.Error != nil:
				logger.Warn("request routed with error", append(fields, zap.Error(rr.HandlerResult.Error))...)
			default:
				logger.Debug("request routed", fields...)
			}
			return rr, err
		}
	}
}
