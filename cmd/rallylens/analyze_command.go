package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/strokelab/rallylens/internal/adapters/inference"
	"github.com/strokelab/rallylens/internal/adapters/sampler"
	app "github.com/strokelab/rallylens/internal/app"
	"github.com/strokelab/rallylens/internal/config"
	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/moments"
	"github.com/strokelab/rallylens/internal/domain/movement"
	"github.com/strokelab/rallylens/internal/domain/pose"
	"github.com/strokelab/rallylens/internal/domain/scoring"
	"github.com/strokelab/rallylens/internal/domain/segment"
	"github.com/strokelab/rallylens/internal/domain/shot"
	"github.com/strokelab/rallylens/internal/domain/technique"
	"github.com/strokelab/rallylens/pkg/logger"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		skillFlag     string
		typeFlag      string
		estimatorFlag string
		jsonFlag      bool
		verboseFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Run the full technique analysis on a local video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := logger.Init(); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			level := "error"
			if verboseFlag {
				level = "debug"
			}
			_ = logger.SetLevelString(level)

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			skill := model.SkillLevel(strings.ToUpper(skillFlag))
			if !skill.Valid() {
				return fmt.Errorf("invalid skill level %q", skillFlag)
			}
			atype := model.AnalysisType(strings.ToUpper(typeFlag))
			if !atype.Valid() {
				return fmt.Errorf("invalid analysis type %q", typeFlag)
			}

			command := cfg.PoseBackendCommand
			if estimatorFlag != "" {
				command = strings.Fields(estimatorFlag)
			}
			if len(command) == 0 {
				return errors.New("no pose estimator configured; set --estimator or pose_backend_command")
			}

			frames := sampler.New(
				sampler.WithInterval(cfg.SampleIntervalFrames),
				sampler.WithStagingDir(cfg.StagingDir),
			)
			backend := inference.New(command)
			if err := backend.Start(ctx); err != nil {
				return fmt.Errorf("start pose estimator: %w", err)
			}
			defer backend.Close()

			estimator := pose.NewEstimator(backend, pose.WithMinConfidence(cfg.MinPoseConfidence))
			pipeline := app.NewPipeline(frames, estimator,
				app.WithMinConfidentFrames(cfg.MinConfidentFrames),
				app.WithPoseWorkers(cfg.PoseWorkerCount),
				app.WithStageTimeout(time.Duration(cfg.StageTimeoutSeconds*float64(time.Second))),
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
			)

			videoPath := args[0]
			req := model.AnalysisRequest{
				AnalysisID:   uuid.NewString(),
				VideoRef:     videoPath,
				VideoID:      filepath.Base(videoPath),
				UserID:       "cli",
				SkillLevel:   skill,
				AnalysisType: atype,
			}

			var progress app.ProgressFunc
			if isTerminal(os.Stderr) && !jsonFlag {
				progress = func(p app.Progress) {
					fmt.Fprintf(os.Stderr, "\r%-16s %3d%% %s\x1b[K", p.Stage, p.Percent, p.Message)
				}
			}

			result, err := pipeline.Run(ctx, req, progress)
			if progress != nil {
				fmt.Fprint(os.Stderr, "\r\x1b[K")
			}
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if jsonFlag {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&skillFlag, "skill", "INTERMEDIATE", "Player skill level (BEGINNER, INTERMEDIATE, ADVANCED, PROFESSIONAL)")
	cmd.Flags().StringVar(&typeFlag, "type", "FULL", "Analysis type (FULL, QUICK, TECHNIQUE_FOCUS, MATCH_ANALYSIS)")
	cmd.Flags().StringVar(&estimatorFlag, "estimator", "", "Pose estimator command, overrides pose_backend_command")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the full result as JSON")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func printResult(cmd *cobra.Command, result *model.AnalysisResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Overall score", fmt.Sprintf("%.1f", result.OverallScore)},
			{"Technical", fmt.Sprintf("%.1f", result.Technical.Overall)},
			{"Movement", fmt.Sprintf("%.1f", result.Movement.Composite())},
			{"Shots detected", fmt.Sprintf("%d", len(result.Shots))},
			{"Success rate", fmt.Sprintf("%.0f%%", result.ShotStatistics.SuccessRate*100)},
			{"Video duration", fmt.Sprintf("%.1fs", result.VideoDuration)},
			{"Frames analyzed", fmt.Sprintf("%d", result.FrameCount)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(result.Comparison.ImprovementAreas) > 0 {
		rows := make([][]string, 0, len(result.Comparison.ImprovementAreas))
		for _, a := range result.Comparison.ImprovementAreas {
			rows = append(rows, []string{
				a.Area,
				fmt.Sprintf("%.0f", a.Current),
				fmt.Sprintf("%.0f", a.Target),
				string(a.Priority),
				a.TimeToImprove,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Improvement area", "Current", "Target", "Priority", "Horizon"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		))
	}

	fmt.Fprintln(out, result.Commentary.Opening)
	for _, obs := range result.Commentary.KeyObservations {
		fmt.Fprintf(out, "  - %s\n", obs)
	}
	if result.Commentary.Encouragement != "" {
		fmt.Fprintln(out, result.Commentary.Encouragement)
	}
	for _, step := range result.Commentary.NextSteps {
		fmt.Fprintf(out, "  next: %s\n", step)
	}
}
