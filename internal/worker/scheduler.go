// Package worker はデスクサーバーのバックグラウンドジョブを提供する。
// 一定間隔のティッカーで登録されたジョブを並列に実行する。
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job はスケジューラが定期実行するジョブ。
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler はジョブのスケジューリングと並列制御を行う。
type Scheduler struct {
	jobs           []Job
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はジョブ数を上限とする。
func NewScheduler(logger *slog.Logger, maxConcurrency int, jobs ...Job) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = len(jobs)
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Scheduler{
		jobs:           jobs,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。intervalが0以下の場合は1分とする。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ジョブスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("job_count", len(s.jobs)),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ジョブスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は全ジョブを1回ずつ並列に実行し、失敗したジョブ数を返す。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) int {
	start := time.Now()

	sem := make(chan struct{}, s.maxConcurrency)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, job := range s.jobs {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(j Job) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := j.Run(ctx); err != nil {
				s.logger.Warn("ジョブの実行に失敗しました",
					slog.String("job", j.Name()),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(job)
	}

	wg.Wait()

	s.logger.Debug("ジョブサイクルが完了しました",
		slog.Int("job_count", len(s.jobs)),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return failed
}
