package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics across domains.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodeAccessDenied       ErrorCode = "access_denied"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Machine-stable reasons carried in Error.Message.
const (
	ReasonNoSuchPurchase         = "NO SUCH PURCHASE"
	ReasonNotJoint               = "NOT JOINT"
	ReasonAlreadyJoint           = "ALREADY JOINT"
	ReasonLesserThanUsed         = "LESSER THAN USED"
	ReasonGreaterThanRemaining   = "GREATER THAN REMAINING"
	ReasonVolumeLesserThanMin    = "VOLUME IS LESSER THAN MINIMUM"
	ReasonTooMuchVolume          = "TOO MUCH VOLUME"
	ReasonUnmodifiableField      = "UNMODIFIABLE FIELD"
	ReasonInvalidValue           = "INVALID VALUE"
	ReasonPurchaseIsPublic       = "PURCHASE IS PUBLIC"
	ReasonAccessDenied           = "ACCESS DENIED"
	ReasonNotUpdated             = "NOT UPDATED"
	ReasonNotAdded               = "NOT ADDED"
	ReasonNotDetached            = "NOT DETACHED"
	ReasonNotCreated             = "NOT CREATED"
	ReasonBrokenVolumeAccounting = "BROKEN VOLUME ACCOUNTING"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// ReasonOf returns the reason string of an aggregate error, or err.Error() for anything else.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var aggErr *Error
	if errors.As(err, &aggErr) && aggErr.Message != "" {
		return aggErr.Message
	}
	return err.Error()
}
