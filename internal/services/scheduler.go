package services

import (
	"context"
	"github.com/roylee0704/gron"
	"snapfeed/internal/providers"
	"snapfeed/internal/registry"
	"snapfeed/internal/structures"
	"sync"
	"time"
)

const warmupTimeout = 30 * time.Second

type SchedulerInterface interface {
	Init()
	Stop()
	Warmup()
}

// Scheduler runs the recurring background jobs. The sweep job closes idle
// sessions and republishes the resident gauges after every pass. A second
// job keeps the shared mute list warm when a list URL is configured.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	service FeedServiceInterface
	mute    *registry.MuteRegistry
	metrics providers.MetricsProviderInterface
	cron    *gron.Cron
	opsMu   sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	sweep := s.config.Feed.SweepInterval
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}
	s.cron.AddFunc(gron.Every(sweep), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		swept := s.service.SweepIdle()
		if swept > 0 {
			s.logger.Infof(providers.TypeApp, "Sweep removed %d idle sessions", swept)
		}
		s.publishGauges()
	})

	if s.config.Registry.MuteURL != "" {
		muteRefresh := s.config.Registry.MuteTTL / 2
		if muteRefresh < time.Minute {
			muteRefresh = time.Minute
		}
		s.cron.AddFunc(gron.Every(muteRefresh), func() {
			ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
			defer cancel()

			if err := s.mute.Refresh(ctx); err != nil {
				s.logger.Warnf(providers.TypeApp, "Scheduled mute refresh failed: %v", err)
			}
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Warmup prefetches the mute list so the first feed request does not pay
// for it. Failure is non-fatal; the registry retries on demand.
func (s *Scheduler) Warmup() {
	if s.config.Registry.MuteURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()

	if err := s.mute.Refresh(ctx); err != nil {
		s.logger.Warnf(providers.TypeApp, "Mute list warmup failed, starting without suppressions: %v", err)
		return
	}
	s.logger.Infof(providers.TypeApp, "Mute list warmed up")
}

func (s *Scheduler) publishGauges() {
	s.metrics.SetSessionsActive(s.service.Sessions())
	containers, snaps := s.service.TotalResident()
	s.metrics.SetContainersResident(containers)
	s.metrics.SetSnapsResident(snaps)
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	service FeedServiceInterface,
	mute *registry.MuteRegistry,
	metrics providers.MetricsProviderInterface,
) SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
		mute:    mute,
		metrics: metrics,
	}
}
