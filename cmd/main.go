package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/strokelab/rallylens/internal/adapters/http/api"
	"github.com/strokelab/rallylens/internal/adapters/http/swagger"
	"github.com/strokelab/rallylens/internal/adapters/inference"
	"github.com/strokelab/rallylens/internal/adapters/sampler"
	app "github.com/strokelab/rallylens/internal/app"
	"github.com/strokelab/rallylens/internal/config"
	"github.com/strokelab/rallylens/internal/domain/moments"
	"github.com/strokelab/rallylens/internal/domain/movement"
	"github.com/strokelab/rallylens/internal/domain/scoring"
	"github.com/strokelab/rallylens/internal/domain/segment"
	"github.com/strokelab/rallylens/internal/domain/shot"
	"github.com/strokelab/rallylens/internal/domain/technique"
	"github.com/strokelab/rallylens/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// The private registry carries only analysis metrics; drop the
	// default collectors so /healthz stays focused.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	frames := sampler.New(
		sampler.WithInterval(cfg.SampleIntervalFrames),
		sampler.WithStagingDir(cfg.StagingDir),
	)

	backend := inference.New(cfg.PoseBackendCommand)
	if err := backend.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start pose estimator: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn(ctx, "pose estimator shutdown", logger.Error(err))
		}
	}()

	svc := app.New(
		app.WithServiceLogger(log),
		app.WithFrameSource(frames),
		app.WithPoseBackend(backend),
		app.WithWorkerCount(cfg.AnalysisWorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMinPoseConfidence(cfg.MinPoseConfidence),
		app.WithResultsDBPath(cfg.ResultsDBPath),
		app.WithPipelineOptions(pipelineOptions(cfg)...),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// pipelineOptions maps configuration onto pipeline stage components.
func pipelineOptions(cfg *config.Config) []app.PipelineOption {
	return []app.PipelineOption{
		app.WithMinConfidentFrames(cfg.MinConfidentFrames),
		app.WithPoseWorkers(cfg.PoseWorkerCount),
		app.WithStageTimeout(time.Duration(cfg.StageTimeoutSeconds * float64(time.Second))),
		app.WithDetector(shot.NewDetector(
			shot.WithThreshold(cfg.ShotDetectionThreshold),
			shot.WithCleanQuality(cfg.CleanQualityThreshold),
			shot.WithCourtWidth(cfg.CourtWidthMeters),
			shot.WithMinShotGap(cfg.MinShotGapSeconds),
			shot.WithDominantHand(cfg.DominantHand),
		)),
		app.WithTechniqueAggregator(technique.NewAggregator(
			technique.WithDominantHand(cfg.DominantHand),
		)),
		app.WithSegmenter(segment.NewSegmenter(
			segment.WithRallyTimeout(cfg.RallyTimeoutSeconds),
		)),
		app.WithMovementAggregator(movement.NewAggregator(
			movement.WithCourtWidth(cfg.CourtWidthMeters),
			movement.WithHeatmapSize(cfg.HeatmapRows, cfg.HeatmapCols),
		)),
		app.WithMomentIdentifier(moments.NewIdentifier(
			moments.WithStrengthQuality(cfg.StrengthQuality),
			moments.WithMaxPerKind(cfg.MaxMomentsPerKind),
		)),
		app.WithScoringEngine(scoring.NewEngine(
			scoring.WithWeights(cfg.TechnicalWeight, cfg.MovementWeight, cfg.SuccessWeight),
		)),
	}
}

// startServiceMetricsUpdater refreshes service gauges on an interval.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue and storage gauges as a side
			// effect.
			_ = svc.GetStats()
		}
	}
}
