// Package dsl 提供打分结果的表达式过滤，使用 CEL (Common Expression Language) 实现。
// CEL 是 Google 开发的表达式语言，具有类型安全、高性能、线程安全等特性。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：result.score >= 60.0 / result.probability > 0.5
//   - 等级：result.grade == "A" / result.grade in ["A", "B"]
//   - 特征：features.variety_score > 80.0
//   - 逻辑：result.grade == "A" && features.intent_score >= 50.0
//
// 使用场景：批量打分接口按调用方给定的表达式筛选结果，
// 例如只返回 `result.score >= 60.0 && result.grade != "D"` 的条目。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/utesolo/matchkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("result", cel.DynType),
		cel.Variable("features", cel.DynType),
	)
}

func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	if celEnv == nil && err == nil {
		err = fmt.Errorf("cel env not initialized")
	}
	return celEnv, err
}

// Filter 是编译后的结果过滤器。编译一次后可并发用于整批结果的匹配。
type Filter struct {
	prg cel.Program
}

// Compile 编译过滤表达式。空表达式返回 nil 过滤器（匹配一切）。
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	return &Filter{prg: prg}, nil
}

// Match 对单条打分结果求值，返回布尔结果。
// nil 过滤器匹配一切。表达式求值结果必须是布尔类型。
func (f *Filter) Match(result *core.ScoreResult, features map[string]float64) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(buildInput(result, features))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return b, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(result *core.ScoreResult, features map[string]float64) map[string]any {
	r := map[string]any{
		"probability":     result.Probability,
		"score":           result.Score,
		"grade":           result.Grade,
		"recommendation":  result.Recommendation,
		"heuristic_score": result.HeuristicScore,
	}
	f := make(map[string]any, len(features))
	for k, v := range features {
		f[k] = v
	}
	return map[string]any{
		"result":   r,
		"features": f,
	}
}
