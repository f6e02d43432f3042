// matchtrain 是离线训练进程：清洗 CSV 样本，训练全部候选分类器，
// 按 F1 选出最优者并把工件三件套持久化到输出目录。
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/utesolo/matchkit/config"
	"github.com/utesolo/matchkit/dataset"
	"github.com/utesolo/matchkit/store"
	"github.com/utesolo/matchkit/trainer"
)

func main() {
	// .env 不存在不是错误
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "YAML 配置文件路径")
		dataPath   = flag.String("data", "", "训练样本 CSV 路径（覆盖配置文件）")
		outputDir  = flag.String("output", "", "工件输出根目录（覆盖配置文件）")
		testSize   = flag.Float64("test-size", 0, "留出测试集比例（覆盖配置文件）")
		seed       = flag.Int64("seed", 0, "随机种子（覆盖配置文件）")
		tune       = flag.Bool("tune", false, "对随机森林做网格搜索调优")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("load config failed", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dataPath != "" {
		cfg.Train.DataPath = *dataPath
	}
	if *outputDir != "" {
		cfg.Train.OutputDir = *outputDir
	}
	if *testSize > 0 {
		cfg.Train.TestFraction = *testSize
	}
	if *seed != 0 {
		cfg.Train.Seed = *seed
	}
	if *tune {
		cfg.Train.Tune = true
	}
	if cfg.Train.DataPath == "" {
		logger.Error("no training data: pass --data or set train.data_path in config")
		os.Exit(2)
	}

	samples, report, err := dataset.CleanFile(cfg.Train.DataPath)
	if err != nil {
		logger.Error("data cleaning failed", "path", cfg.Train.DataPath, "err", err)
		os.Exit(1)
	}
	logger.Info("training data cleaned",
		"rows_read", report.RowsRead,
		"dropped_missing", report.DroppedMissing,
		"dropped_range", report.DroppedRange,
		"dropped_label", report.DroppedLabel,
		"rows_kept", report.RowsKept)

	candidates := trainer.DefaultCandidates(cfg.Train.Seed)
	if len(cfg.Train.Candidates) > 0 {
		wanted := make(map[string]bool, len(cfg.Train.Candidates))
		for _, name := range cfg.Train.Candidates {
			wanted[name] = true
		}
		kept := candidates[:0]
		for _, c := range candidates {
			if wanted[c.Name] {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			logger.Error("no known candidate in train.candidates", "candidates", cfg.Train.Candidates)
			os.Exit(2)
		}
		candidates = kept
	}

	artifact, trainReport, err := trainer.TrainAndSelect(context.Background(), samples, trainer.Options{
		TestFraction: cfg.Train.TestFraction,
		Seed:         cfg.Train.Seed,
		KFolds:       cfg.Train.KFolds,
		Tune:         cfg.Train.Tune,
		Candidates:   candidates,
		Grid: trainer.GridOptions{
			NumTrees:        cfg.Train.Grid.NumTrees,
			MaxDepths:       cfg.Train.Grid.MaxDepths,
			MinSamplesSplit: cfg.Train.Grid.MinSamplesSplit,
			MinSamplesLeaf:  cfg.Train.Grid.MinSamplesLeaf,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("training failed", "err", err)
		os.Exit(1)
	}

	for _, r := range trainReport.Results {
		if r.FailReason != "" {
			logger.Warn("candidate failed", "model", r.Name, "reason", r.FailReason)
			continue
		}
		logger.Info("candidate evaluated",
			"model", r.Name,
			"accuracy", r.Metrics.Accuracy,
			"precision", r.Metrics.Precision,
			"recall", r.Metrics.Recall,
			"f1", r.Metrics.F1,
			"auc", r.Metrics.AUC,
			"cv_mean", r.Metrics.CVMean,
			"cv_std", r.Metrics.CVStd)
	}
	logger.Info("model selected",
		"model", trainReport.Selected,
		"train_size", trainReport.TrainSize,
		"test_size", trainReport.TestSize)

	for _, fi := range trainer.SortedImportance(artifact.Importance) {
		logger.Info("feature importance", "feature", fi.Feature, "importance", fi.Importance)
	}

	fileStore, err := store.NewFileStore(cfg.Train.OutputDir)
	if err != nil {
		logger.Error("open artifact store failed", "dir", cfg.Train.OutputDir, "err", err)
		os.Exit(1)
	}
	id, err := fileStore.Save(context.Background(), artifact)
	if err != nil {
		logger.Error("save artifact failed", "err", err)
		os.Exit(1)
	}
	logger.Info("artifact saved", "id", id, "dir", cfg.Train.OutputDir)
}
