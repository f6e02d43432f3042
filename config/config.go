// Package config 提供训练与服务进程的 YAML 配置加载。
//
// 配置只覆盖进程级参数（数据路径、监听地址、超参数等），
// 零值字段在加载时填入默认值，命令行 flag 的显式取值优先于配置文件。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是训练与服务共用的顶层配置结构。
type Config struct {
	Train TrainConfig `yaml:"train"`
	Serve ServeConfig `yaml:"serve"`
}

// TrainConfig 是离线训练的配置。
type TrainConfig struct {
	DataPath     string  `yaml:"data_path"`     // 训练样本 CSV 路径
	OutputDir    string  `yaml:"output_dir"`    // 工件输出根目录
	TestFraction float64 `yaml:"test_fraction"` // 留出测试集比例，默认 0.2
	Seed         int64   `yaml:"seed"`          // 随机种子，默认 42
	KFolds       int     `yaml:"k_folds"`       // 交叉验证折数，默认 5
	Tune         bool    `yaml:"tune"`          // 是否对随机森林做网格搜索调优

	// Candidates 限定参赛的候选分类器名称，空表示全部默认候选。
	// 可选值：logistic_regression / random_forest / gradient_boosting / mlp
	Candidates []string `yaml:"candidates"`

	Grid GridConfig `yaml:"grid"` // 网格搜索空间，空切片用默认网格
}

// GridConfig 是随机森林网格搜索的搜索空间。
type GridConfig struct {
	NumTrees        []int `yaml:"num_trees"`
	MaxDepths       []int `yaml:"max_depths"` // 0 表示不限深
	MinSamplesSplit []int `yaml:"min_samples_split"`
	MinSamplesLeaf  []int `yaml:"min_samples_leaf"`
}

// ServeConfig 是在线打分服务的配置。
type ServeConfig struct {
	Addr string `yaml:"addr"` // HTTP 监听地址，默认 ":8080"

	// 启动时加载的工件三件套路径。三者都为空时服务以未初始化状态启动，
	// 等待管理接口热加载。
	ModelPath  string `yaml:"model_path"`
	ScalerPath string `yaml:"scaler_path"`
	MetaPath   string `yaml:"meta_path"`

	Redis RedisConfig `yaml:"redis"` // 打分结果缓存，Addr 为空时禁用
}

// RedisConfig 是打分结果缓存的连接配置。
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // 默认 10m
}

// Default 返回填好默认值的配置。
func Default() *Config {
	return &Config{
		Train: TrainConfig{
			OutputDir:    "artifacts",
			TestFraction: 0.2,
			Seed:         42,
			KFolds:       5,
		},
		Serve: ServeConfig{
			Addr: ":8080",
			Redis: RedisConfig{
				CacheTTL: 10 * time.Minute,
			},
		},
	}
}

// Load 从 YAML 文件加载配置，文件中未出现的字段保持默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults 把被显式写成零值的字段拉回默认值。
func (c *Config) fillDefaults() {
	d := Default()
	if c.Train.OutputDir == "" {
		c.Train.OutputDir = d.Train.OutputDir
	}
	if c.Train.TestFraction <= 0 || c.Train.TestFraction >= 1 {
		c.Train.TestFraction = d.Train.TestFraction
	}
	if c.Train.Seed == 0 {
		c.Train.Seed = d.Train.Seed
	}
	if c.Train.KFolds < 2 {
		c.Train.KFolds = d.Train.KFolds
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
	if c.Serve.Redis.CacheTTL <= 0 {
		c.Serve.Redis.CacheTTL = d.Serve.Redis.CacheTTL
	}
}
