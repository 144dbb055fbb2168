package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CronTriggerConfig holds configuration for the daily trigger
type CronTriggerConfig struct {
	Hour   int
	Minute int
	// CheckInterval is how often the clock is compared with Hour:Minute
	CheckInterval time.Duration
	Kinds         []JobKind
}

// DefaultCronTriggerConfig returns the 02:00 nightly configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Hour:          2,
		Minute:        0,
		CheckInterval: time.Minute,
		Kinds:         NightlyJobKinds(),
	}
}

// ParseCronSchedule reads the minute and hour fields of a "m h * * *"
// expression. "*" and an empty expression keep the 02:00 default.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour, minute = 2, 0

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return 2, 0, fmt.Errorf("invalid minute %q: %w", parts[0], err)
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return 2, 0, fmt.Errorf("invalid hour %q: %w", parts[1], err)
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}
	return hour, minute, nil
}

// CronTrigger submits the configured job kinds once a day
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new daily trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if len(config.Kinds) == 0 {
		config.Kinds = NightlyJobKinds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger submits the nightly jobs at most once per calendar day
func (c *CronTrigger) checkAndTrigger() bool {
	now := c.now()
	if !c.shouldRun(now) {
		return false
	}

	today := now.Format("2006-01-02")
	c.mu.Lock()
	if c.lastRunDate == today {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = today
	c.mu.Unlock()

	c.logger.Info("Triggering nightly maintenance", zap.Int("jobs", len(c.config.Kinds)))
	for _, kind := range c.config.Kinds {
		if _, err := c.scheduler.Submit(kind); err != nil {
			c.logger.Error("Failed to submit maintenance job",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}
	return true
}

func (c *CronTrigger) shouldRun(now time.Time) bool {
	return now.Hour() == c.config.Hour && now.Minute() == c.config.Minute
}

// NextRunAt returns the next time the trigger fires
func (c *CronTrigger) NextRunAt() time.Time {
	now := c.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), c.config.Hour, c.config.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
