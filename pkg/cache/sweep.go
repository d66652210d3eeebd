package cache

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"vrcache/pkg/logger"
)

// everySchedule 固定间隔调度。cron.Every 会把间隔取整到秒，这里保留亚秒精度。
type everySchedule struct {
	interval time.Duration
}

func (s everySchedule) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

// sweeper 持有清扫任务的调度器，由 Store 独占
type sweeper struct {
	cron *cron.Cron
}

// startSweeper 启动周期性清扫
func startSweeper(interval time.Duration, job func(), entry *logrus.Entry) *sweeper {
	cl := logger.NewCronLogger(entry)
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(everySchedule{interval: interval}, cron.FuncJob(job))
	c.Start()
	return &sweeper{cron: c}
}

// stop 停止调度并等待正在执行的清扫结束
func (s *sweeper) stop() {
	<-s.cron.Stop().Done()
}
