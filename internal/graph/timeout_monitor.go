package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// warningRatio is the share of an operation's timeout after which a
// finished statement is still reported as slow.
const warningRatio = 0.8

// OperationStats summarises the statements run for one operation kind.
type OperationStats struct {
	Operation       string        `json:"operation"`
	Executions      int           `json:"executions"`
	Failures        int           `json:"failures"`
	Timeouts        int           `json:"timeouts"`
	AverageDuration time.Duration `json:"averageDuration"`
	MaxDuration     time.Duration `json:"maxDuration"`
}

// timingRunner wraps a queryRunner, logs statements that fail or come close
// to their operation's timeout and keeps per-operation statistics.
type timingRunner struct {
	next   queryRunner
	logger logrus.FieldLogger
	now    func() time.Time

	mu    sync.Mutex
	stats map[string]*OperationStats
}

func newTimingRunner(next queryRunner, logger logrus.FieldLogger) *timingRunner {
	return &timingRunner{
		next:   next,
		logger: logger.WithField("component", "timeout_monitor"),
		now:    time.Now,
		stats:  make(map[string]*OperationStats),
	}
}

func (t *timingRunner) Run(ctx context.Context, operation, cypher string, params map[string]any) (*Result, error) {
	start := t.now()
	res, err := t.next.Run(ctx, operation, cypher, params)
	duration := t.now().Sub(start)

	timeout := GetConfigForOperation(operation).Timeout
	timedOut := err != nil && (ctx.Err() == context.DeadlineExceeded || (timeout > 0 && duration >= timeout))
	t.record(operation, duration, err != nil, timedOut)

	fields := logrus.Fields{
		"operation":        operation,
		"duration_seconds": duration.Seconds(),
	}
	if timeout > 0 {
		fields["timeout_seconds"] = timeout.Seconds()
	}
	switch {
	case timedOut:
		t.logger.WithFields(fields).WithError(err).Error("query timed out")
	case err != nil:
		t.logger.WithFields(fields).WithError(err).Debug("query failed")
	case timeout > 0 && duration >= time.Duration(float64(timeout)*warningRatio):
		fields["percent_used"] = duration.Seconds() / timeout.Seconds() * 100
		t.logger.WithFields(fields).Warn("query approaching timeout")
	default:
		t.logger.WithFields(fields).Debug("query completed")
	}
	return res, err
}

func (t *timingRunner) record(operation string, duration time.Duration, failed, timedOut bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats[operation]
	if s == nil {
		s = &OperationStats{Operation: operation}
		t.stats[operation] = s
	}
	s.Executions++
	if failed {
		s.Failures++
	}
	if timedOut {
		s.Timeouts++
	}
	total := s.AverageDuration*time.Duration(s.Executions-1) + duration
	s.AverageDuration = total / time.Duration(s.Executions)
	if duration > s.MaxDuration {
		s.MaxDuration = duration
	}
}

// Stats returns a copy of the statistics, sorted by operation.
func (t *timingRunner) Stats() []OperationStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]OperationStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

func (t *timingRunner) logSummary() {
	for _, s := range t.Stats() {
		t.logger.WithFields(logrus.Fields{
			"operation":            s.Operation,
			"executions":           s.Executions,
			"failures":             s.Failures,
			"timeouts":             s.Timeouts,
			"avg_duration_seconds": s.AverageDuration.Seconds(),
			"max_duration_seconds": s.MaxDuration.Seconds(),
		}).Debug("operation stats")
	}
}

func (t *timingRunner) Close(ctx context.Context) error {
	t.logSummary()
	return t.next.Close(ctx)
}
