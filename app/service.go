// Package app wires the configured components into a runnable forecasting
// service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/api/results"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/config"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/runstore"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/publish"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/source"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/internal/eventbus"
)

// Service orchestrates the forecasting pipeline and its outputs.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	loc       *time.Location
	source    source.Source
	directory source.StationDirectory
	weather   *source.WeatherClient
	calendar  feature.Calendar
	publisher publish.Publisher
	sink      coremetrics.MetricsSink
	bus       *eventbus.Bus
	store     *runstore.MemoryStore
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	loc, err := cfg.Pipeline.Location()
	if err != nil {
		return nil, err
	}
	src, err := source.NewSource(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	calendar, err := buildCalendar(cfg.Holidays)
	if err != nil {
		return nil, err
	}
	pub, err := publish.NewPublishers(cfg.Publishers)
	if err != nil {
		return nil, fmt.Errorf("publishers: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	svc := &Service{
		cfg:       cfg,
		log:       logg,
		loc:       loc,
		source:    src,
		calendar:  calendar,
		publisher: pub,
		sink:      sink,
		bus:       eventbus.New(1024),
		store:     runstore.NewMemoryStore(),
	}
	if cfg.Stations.Enabled {
		svc.directory = source.NewGBFSDirectory(cfg.Stations.URL)
	}
	if cfg.Weather.Enabled {
		svc.weather = source.NewWeatherClient(cfg.Weather)
	}
	return svc, nil
}

// Store exposes the run store, read by the results API.
func (s *Service) Store() *runstore.MemoryStore { return s.store }

// Run executes the pipeline once when no schedule is configured, otherwise
// on the cron schedule with an immediate first run, until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.startEventLogger(ctx)
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.cfg.API.Enabled {
		go s.serveAPI(ctx)
	}
	if s.cfg.Metrics.HasPrometheus() {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Listen); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if s.cfg.Pipeline.Schedule == "" {
		_, err := s.RunOnce(ctx)
		return err
	}

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Errorf("initial run failed: %v", err)
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Pipeline.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Errorf("scheduled run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	c.Start()
	s.log.Infof("scheduled runs on %q", s.cfg.Pipeline.Schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) serveAPI(ctx context.Context) {
	handler := results.NewHandler(s.store)
	srv := &http.Server{Addr: s.cfg.API.Listen, Handler: handler.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("results api listening on %s", s.cfg.API.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Errorf("api server: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.publisher.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if c, ok := s.source.(interface{ Close() }); ok {
		c.Close()
	}
	s.bus.Close()
	return err
}

func buildCalendar(cfg config.HolidaysConfig) (feature.Calendar, error) {
	dates := append([]string(nil), cfg.Dates...)
	if cfg.File != "" {
		fileCal, err := feature.LoadCalendarFile(cfg.File)
		if err != nil {
			return feature.Calendar{}, err
		}
		dates = append(dates, fileCal.Dates()...)
	}
	return feature.CalendarFromStrings(dates)
}
