package rebuild

import (
	"go.uber.org/zap"
)

// LogObserver writes one structured log entry per event.
func LogObserver(logger *zap.Logger) Observer {
	return ObserverFunc(func(e Event) {
		switch ev := e.(type) {
		case RunStarted:
			logger.Info("Rebuild started", zap.String("run_id", ev.RunID), zap.Int("tokens", ev.Total))
		case TokenDone:
			logToken(logger, ev)
		case RunFinished:
			s := ev.Summary
			fields := []zap.Field{
				zap.String("run_id", s.RunID),
				zap.Int("processed", s.Processed),
				zap.Int("total", s.Total),
				zap.Int("success", s.Success),
				zap.Int("partial", s.Partial),
				zap.Int("failed", s.Failed),
				zap.Int("skipped", s.Skipped),
				zap.Duration("duration", s.Duration()),
			}
			switch {
			case s.Aborted:
				logger.Error("Rebuild aborted", append(fields, zap.String("reason", s.AbortReason))...)
			case s.Cancelled:
				logger.Warn("Rebuild cancelled", fields...)
			default:
				logger.Info("Rebuild finished", fields...)
			}
		}
	})
}

func logToken(logger *zap.Logger, ev TokenDone) {
	r := ev.Result
	fields := []zap.Field{
		zap.String("token", r.TokenID),
		zap.Int("done", ev.Done),
		zap.Int("total", ev.Total),
	}
	if len(r.Ambiguities) > 0 {
		fields = append(fields, zap.Int("ambiguous", len(r.Ambiguities)))
	}
	for _, w := range r.Warnings {
		fields = append(fields, zap.String("warning", w))
	}

	switch r.Status {
	case StatusSuccess:
		logger.Info("[OK] Token rebuilt", append(fields, zap.String("output", r.Output))...)
	case StatusPartial:
		missing := make([]string, len(r.Unresolved))
		for i, m := range r.Unresolved {
			missing[i] = m.Category + "/" + m.Value
		}
		logger.Warn("[MISS] Token rebuilt with missing layers",
			append(fields, zap.String("output", r.Output), zap.Strings("unresolved", missing))...)
	case StatusSkipped:
		logger.Debug("[SKIP] Output exists", append(fields, zap.String("output", r.Output))...)
	default:
		logger.Error("[ERR] Token failed", append(fields, zap.String("source", r.Source), zap.String("reason", r.Reason))...)
	}
}
