package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/scanner"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrBusy is returned when a scan is requested while another is running.
var ErrBusy = errors.New("a scan is already running")

// Runner executes one scan.
type Runner interface {
	Run(ctx context.Context, symbols []string) (*scanner.Report, error)
}

// Universe returns the symbols to scan. It is called before every run so
// that edits to a symbols file are picked up.
type Universe func() ([]string, error)

// Scheduler manages the cron-driven scans and the bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Universe Universe
	Alert    notifier.Sender
	Ctx      context.Context

	log     zerolog.Logger
	guard   sync.Mutex
	running atomic.Bool
	wg      sync.WaitGroup

	mu   sync.Mutex
	last *scanner.Report
}

// NewScheduler creates a new Scheduler. alert may be nil.
func NewScheduler(ctx context.Context, runner Runner, universe Universe, alert notifier.Sender, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.PrintfLogger(&log)))),
		Runner:   runner,
		Universe: universe,
		Alert:    alert,
		Ctx:      ctx,
		log:      log,
	}
}

// Register schedules the scan with a six-field cron spec.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running scans to flush.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes a scan immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() (*scanner.Report, error) {
	if !s.guard.TryLock() {
		return nil, ErrBusy
	}
	defer s.guard.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	symbols, err := s.Universe()
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, errors.New("universe is empty")
	}
	report, err := s.Runner.Run(s.Ctx, symbols)
	if report != nil {
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
	}
	return report, err
}

// Last returns the most recent report, or nil before the first run.
func (s *Scheduler) Last() *scanner.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Background runs a scan on a tracked goroutine so Stop can wait for it.
func (s *Scheduler) Background() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scanTask()
	}()
}

func (s *Scheduler) scanTask() {
	s.log.Info().Msg("running scheduled scan")
	_, err := s.RunNow()
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		s.log.Warn().Msg("skipping scan, previous run still active")
	default:
		s.log.Error().Err(err).Msg("scan failed")
		s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	cmd, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(command)), "@")
	switch cmd {
	case "/scan":
		if s.running.Load() {
			return ErrBusy.Error()
		}
		s.Background()
		return "🔎 Scan started."
	case "/status":
		last := s.Last()
		if last == nil {
			return notifier.FormatStatus(nil, s.running.Load())
		}
		return notifier.FormatStatus(&last.Summary, s.running.Load())
	case "/top":
		last := s.Last()
		if last == nil {
			return "No scan has completed yet."
		}
		return notifier.FormatScanReport(last.Summary, last.Results, 10)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Alert == nil {
		return
	}
	if err := s.Alert.SendWithRetry(context.WithoutCancel(s.Ctx), text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
