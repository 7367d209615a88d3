package response

import "github.com/stemsi/course-planner/internal/model"

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session ───────────────────────────────────────────────────────
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrSectionNotFound ErrCode = "SECTION_NOT_FOUND"
	ErrCatalogEmpty    ErrCode = "CATALOG_EMPTY"

	// ─── Enrollment ────────────────────────────────────────────────────
	ErrTimeConflict     ErrCode = "TIME_CONFLICT"
	ErrAlreadyEnrolled  ErrCode = "ALREADY_ENROLLED"
	ErrNotEligible      ErrCode = "NOT_ELIGIBLE"
	ErrInvalidPosition  ErrCode = "INVALID_POSITION"
	ErrNothingToExport  ErrCode = "NOTHING_TO_EXPORT"
	ErrConcurrentUpdate ErrCode = "CONCURRENT_UPDATE"

	// ─── Upload ────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

var messages = map[model.Language]map[ErrCode]string{
	model.LangEN: {
		ErrTokenRequired:     "A planner session token is required.",
		ErrTokenInvalid:      "The planner session token is invalid.",
		ErrSessionNotFound:   "The planner session has expired. Please start a new one.",
		ErrValidation:        "Validation failed. Please check your input.",
		ErrInvalidID:         "Invalid ID format.",
		ErrInvalidPayload:    "Invalid request payload.",
		ErrNotFound:          "Resource not found.",
		ErrSectionNotFound:   "Course section not found.",
		ErrCatalogEmpty:      "No course catalog has been loaded. Please upload a file first.",
		ErrTimeConflict:      "Time conflict detected with",
		ErrAlreadyEnrolled:   "This course section is already selected.",
		ErrNotEligible:       "This course section is not open to your department.",
		ErrInvalidPosition:   "No selected course at that position.",
		ErrNothingToExport:   "Select at least one course before exporting.",
		ErrConcurrentUpdate:  "Your selection changed in another window. Please retry.",
		ErrFileRequired:      "A file upload is required.",
		ErrUnsupportedFile:   "Only .xlsx files are supported.",
		ErrFileTooLarge:      "The file exceeds the size limit.",
		ErrRateLimitExceeded: "Too many requests. Please try again later.",
		ErrInternal:          "Internal server error.",
	},
	model.LangZH: {
		ErrTokenRequired:     "需要选课会话令牌。",
		ErrTokenInvalid:      "选课会话令牌无效。",
		ErrSessionNotFound:   "选课会话已过期，请重新开始。",
		ErrValidation:        "校验失败，请检查输入。",
		ErrInvalidID:         "ID 格式无效。",
		ErrInvalidPayload:    "请求内容无效。",
		ErrNotFound:          "资源不存在。",
		ErrSectionNotFound:   "未找到该课程班级。",
		ErrCatalogEmpty:      "尚未加载课程数据，请先上传文件。",
		ErrTimeConflict:      "检测到时间冲突，与以下课程冲突：",
		ErrAlreadyEnrolled:   "已选择该课程班级。",
		ErrNotEligible:       "该课程班级不面向你的院系开放。",
		ErrInvalidPosition:   "该位置没有已选课程。",
		ErrNothingToExport:   "请至少选择一门课程后再导出。",
		ErrConcurrentUpdate:  "已选课程在其他窗口中被修改，请重试。",
		ErrFileRequired:      "请上传文件。",
		ErrUnsupportedFile:   "仅支持 .xlsx 文件。",
		ErrFileTooLarge:      "文件大小超过限制。",
		ErrRateLimitExceeded: "请求过于频繁，请稍后再试。",
		ErrInternal:          "服务器内部错误。",
	},
}

// GetMessage returns the English message for a given error code.
func GetMessage(code ErrCode) string {
	return MessageFor(code, model.LangEN)
}

// MessageFor returns a human-readable message for code in lang, falling back
// to English.
func MessageFor(code ErrCode, lang model.Language) string {
	if msg, ok := messages[lang][code]; ok {
		return msg
	}
	if msg, ok := messages[model.LangEN][code]; ok {
		return msg
	}
	if lang == model.LangZH {
		return "发生未知错误。"
	}
	return "An unexpected error occurred."
}
