// Package apperr 定义领域错误分类，由 handler 层统一映射为 HTTP 状态码
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrConcurrentUpdate 乐观锁冲突：状态已被其他请求修改
var ErrConcurrentUpdate = errors.New("record was modified concurrently, reload and try again")

// NotFoundError 实体不存在
type NotFoundError struct {
	Entity string
	Field  string
	Value  any
}

func NotFound(entity, field string, value any) *NotFoundError {
	return &NotFoundError{Entity: entity, Field: field, Value: value}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with %s: %v", e.Entity, e.Field, e.Value)
}

// InvalidStateError 状态机守卫拒绝了本次流转
type InvalidStateError struct {
	Entity    string
	Current   string
	Operation string
}

func InvalidState(entity, current, operation string) *InvalidStateError {
	if current == "" {
		current = "UNKNOWN"
	}
	return &InvalidStateError{Entity: entity, Current: current, Operation: operation}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("Cannot %s %s in %s state", e.Operation, e.Entity, e.Current)
}

// UnauthorizedError 访问被拒绝，携带主体和资源描述用于审计日志
type UnauthorizedError struct {
	Username string
	Resource string
}

func Unauthorized(username, resource string) *UnauthorizedError {
	return &UnauthorizedError{Username: username, Resource: resource}
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("User '%s' is not authorized to access '%s'", e.Username, e.Resource)
}

// ValidationError 输入校验失败，按字段聚合
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func Validation(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string]string{}}
}

// Add 追加字段错误，返回自身便于链式调用
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = message
	return e
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// FromValidator 把 validator 的错误转换为 ValidationError
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation(err.Error())
	}
	ve := Validation("Invalid request data")
	for _, fe := range verrs {
		ve.Add(fe.Field(), fieldMessage(fe))
	}
	return ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "len":
		return "Value must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Value must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
