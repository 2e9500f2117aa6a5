package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDocumentStore      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Organization Module Error Codes
const (
	ErrCodeOrganizationNotFound ErrorCode = "ORG_001"
	ErrCodeOrganizationInactive ErrorCode = "ORG_002"
	ErrCodeOrganizationInvalid  ErrorCode = "ORG_003"
)

// Plan Module Error Codes
const (
	ErrCodePlanNotFound      ErrorCode = "PLN_001"
	ErrCodePlanInvalid       ErrorCode = "PLN_002"
	ErrCodePlanInUse         ErrorCode = "PLN_003"
	ErrCodePlanSelfMigration ErrorCode = "PLN_004"
)

// Subscription Module Error Codes
const (
	ErrCodeSubscriptionNotFound ErrorCode = "SUB_001"
	ErrCodeSubscriptionCapacity ErrorCode = "SUB_002"
	ErrCodeSubscriptionInactive ErrorCode = "SUB_003"
	ErrCodeMigrationRequired    ErrorCode = "SUB_004"
	ErrCodeMembershipConflict   ErrorCode = "SUB_005"
	ErrCodePartialSync          ErrorCode = "SUB_006"
)

// Quota Module Error Codes
const (
	ErrCodeLedgerNotFound ErrorCode = "QUO_001"
	ErrCodeQuotaExceeded  ErrorCode = "QUO_002"
	ErrCodeLedgerConflict ErrorCode = "QUO_003"
)

// Search Module Error Codes
const (
	ErrCodeSearchInvalidRequest ErrorCode = "SRCH_001"
	ErrCodeSearchJobNotFound    ErrorCode = "SRCH_002"
	ErrCodeSearchJobFailed      ErrorCode = "SRCH_003"
	ErrCodeSearchAPIUnavailable ErrorCode = "SRCH_004"
	ErrCodeSearchTimeout        ErrorCode = "SRCH_005"
)

// AI/Assistant Module Error Codes
const (
	ErrCodeAICompletionFailed ErrorCode = "AI_001"
	ErrCodeAIConfigMissing    ErrorCode = "AI_002"
	ErrCodeAIInputInvalid     ErrorCode = "AI_003"
)

// Aliases used throughout the codebase.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeUnauthorized = ErrCodeUnauthorized
	CodeForbidden    = ErrCodeForbidden
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDocumentStore:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeOrganizationNotFound: http.StatusNotFound,
	ErrCodeOrganizationInactive: http.StatusConflict,
	ErrCodeOrganizationInvalid:  http.StatusBadRequest,

	ErrCodePlanNotFound:      http.StatusNotFound,
	ErrCodePlanInvalid:       http.StatusBadRequest,
	ErrCodePlanInUse:         http.StatusConflict,
	ErrCodePlanSelfMigration: http.StatusBadRequest,

	ErrCodeSubscriptionNotFound: http.StatusNotFound,
	ErrCodeSubscriptionCapacity: http.StatusConflict,
	ErrCodeSubscriptionInactive: http.StatusConflict,
	ErrCodeMigrationRequired:    http.StatusConflict,
	ErrCodeMembershipConflict:   http.StatusConflict,
	ErrCodePartialSync:          http.StatusMultiStatus,

	ErrCodeLedgerNotFound: http.StatusNotFound,
	ErrCodeQuotaExceeded:  http.StatusTooManyRequests,
	ErrCodeLedgerConflict: http.StatusConflict,

	ErrCodeSearchInvalidRequest: http.StatusBadRequest,
	ErrCodeSearchJobNotFound:    http.StatusNotFound,
	ErrCodeSearchJobFailed:      http.StatusBadGateway,
	ErrCodeSearchAPIUnavailable: http.StatusBadGateway,
	ErrCodeSearchTimeout:        http.StatusGatewayTimeout,

	ErrCodeAICompletionFailed: http.StatusBadGateway,
	ErrCodeAIConfigMissing:    http.StatusServiceUnavailable,
	ErrCodeAIInputInvalid:     http.StatusBadRequest,
}

// HTTPStatus returns the HTTP status code for c, defaulting to 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := ErrorCodeHTTPStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
