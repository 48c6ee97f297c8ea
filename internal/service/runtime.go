package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/go-playground/validator/v10"
)

// Recorder 业务指标，由 internal/metrics 实现
type Recorder interface {
	Transition(entity, action, result string)
	RiskAssessed(level string)
	ComplianceEvaluated(status string)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string, string) {}
func (nopRecorder) RiskAssessed(string)               {}
func (nopRecorder) ComplianceEvaluated(string)        {}

// NopLocker 单实例或未配置 Redis 时使用，不做任何互斥
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Runtime 各服务共享的运行时依赖，零值字段使用默认实现
type Runtime struct {
	Logger  *slog.Logger
	Locker  Locker
	Metrics Recorder
	Now     Clock
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Logger == nil {
		rt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if rt.Locker == nil {
		rt.Locker = NopLocker{}
	}
	if rt.Metrics == nil {
		rt.Metrics = nopRecorder{}
	}
	if rt.Now == nil {
		rt.Now = time.Now
	}
	return rt
}

// locked 在参考号维度的锁内执行 fn
func (rt Runtime) locked(ctx context.Context, reference string, fn func() error) error {
	release, err := rt.Locker.Acquire(ctx, "tfms:lock:"+reference)
	if err != nil {
		return fmt.Errorf("获取锁失败 %s: %w", reference, err)
	}
	defer release()
	return fn()
}

// outcome 指标中的结果标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperr.IsInvalidState(err):
		return "invalid_state"
	case apperr.IsUnauthorized(err):
		return "unauthorized"
	case apperr.IsValidation(err):
		return "validation"
	case apperr.IsNotFound(err):
		return "not_found"
	case errors.Is(err, apperr.ErrConcurrentUpdate):
		return "conflict"
	default:
		return "error"
	}
}

// logResult 业务错误记 warn，其他错误记 error
func (rt Runtime) logResult(err error, msg string, args ...any) {
	if err == nil {
		rt.Logger.Info(msg, args...)
		return
	}
	args = append(args, "error", err)
	if outcome(err) == "error" {
		rt.Logger.Error(msg, args...)
		return
	}
	rt.Logger.Warn(msg, args...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 字段错误使用 json 名称
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func validateRequest(req any) error {
	return apperr.FromValidator(validate.Struct(req))
}

const dateLayout = "2006-01-02"

// parseDate 空串返回 nil
func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.Validation("Invalid request data").Add(field, "Date must be in format "+dateLayout)
	}
	return &t, nil
}

// identityNames 受益人匹配使用的身份字段
func identityNames(p *model.Principal) []string {
	names := make([]string, 0, 3)
	for _, n := range []string{p.Username, p.FullName, p.Email} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
