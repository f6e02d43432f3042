// Package dataset 负责训练数据的加载与清洗。
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/utesolo/matchkit/core"
)

// LabelColumn 是标签列名，1 表示用户确认/购买。
const LabelColumn = "is_positive"

// CleanReport 记录清洗各阶段的行数统计。
type CleanReport struct {
	RowsRead       int // 读入的原始行数（不含表头）
	DroppedMissing int // 阶段 1：必需列存在缺失/不可解析值
	DroppedRange   int // 阶段 2：特征值越出 [0, 100]
	DroppedLabel   int // 阶段 3：标签不是 0 或 1
	RowsKept       int // 清洗后可用行数
}

func (r CleanReport) String() string {
	return fmt.Sprintf("read=%d dropped_missing=%d dropped_range=%d dropped_label=%d kept=%d",
		r.RowsRead, r.DroppedMissing, r.DroppedRange, r.DroppedLabel, r.RowsKept)
}

// Clean 从 CSV 读取带标签的原始行并清洗为训练样本。
//
// 必需列是 6 个特征列加标签列，缺少任何一列对整次加载是致命错误（快速失败，
// 不做逐行兜底）。逐行过滤按固定顺序执行：
//  1. 丢弃必需列缺失或不可解析的行；
//  2. 丢弃特征值越出 [0, 100] 的行；
//  3. 丢弃标签不恰为 0/1 的行。
//
// 清洗后 0 行是致命的"无可用训练数据"错误。输入不被修改。
func Clean(r io.Reader) ([]core.LabeledSample, CleanReport, error) {
	var report CleanReport

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // 允许任意多余列

	header, err := cr.Read()
	if err != nil {
		return nil, report, fmt.Errorf("read csv header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	required := append(append([]string{}, core.FeatureColumns...), LabelColumn)
	var missingCols []string
	for _, col := range required {
		if _, ok := colIdx[col]; !ok {
			missingCols = append(missingCols, col)
		}
	}
	if len(missingCols) > 0 {
		return nil, report, core.NewDomainError(core.ModuleDataset, core.ErrorCodeMissingColumn,
			fmt.Sprintf("missing required columns: [%s]", core.JoinColumns(missingCols)))
	}

	var samples []core.LabeledSample
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("read csv row: %w", err)
		}
		report.RowsRead++

		values, labelRaw, ok := parseRow(row, colIdx)
		if !ok {
			report.DroppedMissing++
			continue
		}

		features := make(map[string]float64, core.NumFeatures)
		inRange := true
		for i, col := range core.FeatureColumns {
			if values[i] < core.FeatureMin || values[i] > core.FeatureMax {
				inRange = false
				break
			}
			features[col] = values[i]
		}
		if !inRange {
			report.DroppedRange++
			continue
		}

		label, ok := parseLabel(labelRaw)
		if !ok {
			report.DroppedLabel++
			continue
		}

		// 范围已校验，构造不会失败
		vec, err := core.NewFeatureVector(features)
		if err != nil {
			report.DroppedRange++
			continue
		}
		samples = append(samples, core.LabeledSample{Features: vec, Label: label})
	}
	report.RowsKept = len(samples)

	if report.RowsKept == 0 {
		return nil, report, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNoTrainingData,
			"no usable training data after cleaning")
	}
	return samples, report, nil
}

// CleanFile 打开 CSV 文件并清洗。
func CleanFile(path string) ([]core.LabeledSample, CleanReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CleanReport{}, fmt.Errorf("open training data: %w", err)
	}
	defer f.Close()
	return Clean(f)
}

// parseRow 解析一行的 6 个特征值与原始标签串。
// 任一必需列缺失（列越界或空串）或特征值不可解析时返回 ok=false。
func parseRow(row []string, colIdx map[string]int) (values [core.NumFeatures]float64, label string, ok bool) {
	for i, col := range core.FeatureColumns {
		idx := colIdx[col]
		if idx >= len(row) {
			return values, "", false
		}
		raw := strings.TrimSpace(row[idx])
		if raw == "" {
			return values, "", false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return values, "", false
		}
		values[i] = v
	}

	idx := colIdx[LabelColumn]
	if idx >= len(row) {
		return values, "", false
	}
	label = strings.TrimSpace(row[idx])
	if label == "" {
		return values, "", false
	}
	return values, label, true
}

// parseLabel 要求标签数值上恰为 0 或 1。
func parseLabel(raw string) (int, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if v == 0 {
		return 0, true
	}
	if v == 1 {
		return 1, true
	}
	return 0, false
}
