package core

import "fmt"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 校验类错误在产生它的调用边界处处理，绝不跨层传播
//
// 使用场景：
//   - 打分校验：MISSING_FEATURE, OUT_OF_RANGE, INVALID_INPUT
//   - 服务状态：NOT_INITIALIZED
//   - 训练数据：MISSING_COLUMN, NO_TRAINING_DATA
//   - 存储与内部错误：NOT_FOUND, INTERNAL_ERROR
type DomainError struct {
	Code    string // 错误代码（如 "MISSING_FEATURE"）
	Message string // 错误消息，包含调用方修正请求所需的细节
	Module  string // 模块名称（如 "scoring", "dataset"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeNotInitialized = "NOT_INITIALIZED"  // 模型未加载
	ErrorCodeInvalidInput   = "INVALID_INPUT"    // 输入无效（空请求、类型错误）
	ErrorCodeMissingFeature = "MISSING_FEATURE"  // 必需特征缺失
	ErrorCodeOutOfRange     = "OUT_OF_RANGE"     // 特征值越界
	ErrorCodeMissingColumn  = "MISSING_COLUMN"   // 训练数据缺少必需列
	ErrorCodeNoTrainingData = "NO_TRAINING_DATA" // 清洗后无可用样本
	ErrorCodeNotFound       = "NOT_FOUND"        // 资源不存在
	ErrorCodeInternalError  = "INTERNAL_ERROR"   // 内部错误（对外只暴露通用消息）
)

// 模块名称常量
const (
	ModuleScoring = "scoring" // 在线打分
	ModuleDataset = "dataset" // 数据清洗
	ModuleTrainer = "trainer" // 模型训练
	ModuleStore   = "store"   // 模型存储
	ModuleModel   = "model"   // 分类器
)

// NewMissingFeatureError 构造缺失特征错误，消息中列出全部缺失的 key。
func NewMissingFeatureError(missing []string) *DomainError {
	return NewDomainError(ModuleScoring, ErrorCodeMissingFeature,
		fmt.Sprintf("missing required features: [%s]", JoinColumns(missing)))
}

// NewOutOfRangeError 构造特征值越界错误。
func NewOutOfRangeError() *DomainError {
	return NewDomainError(ModuleScoring, ErrorCodeOutOfRange,
		"feature values must be between 0-100")
}

// ErrNotInitialized 是"模型未加载"的哨兵错误，每次打分调用都必须先检查。
var ErrNotInitialized = NewDomainError(ModuleScoring, ErrorCodeNotInitialized,
	"model not initialized")

// IsValidationError 检查错误是否为请求可修复的校验类错误。
func IsValidationError(err error) bool {
	de := GetDomainError(err)
	if de == nil {
		return false
	}
	switch de.Code {
	case ErrorCodeInvalidInput, ErrorCodeMissingFeature, ErrorCodeOutOfRange:
		return true
	}
	return false
}

// IsNotInitialized 检查错误是否为 NOT_INITIALIZED
func IsNotInitialized(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrorCodeNotInitialized
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrorCodeNotFound
}
