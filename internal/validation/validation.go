// Package validation はネットワーク呼び出し前のクライアント側入力検証を提供する。
// 入力エラーは*model.ValidationErrorとして返し、画面ではフィールド横に表示する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/investdesk/internal/model"
)

// Validator はvalidateタグによる構造体検証を行う。
type Validator struct {
	v *validator.Validate
}

// New はJSONタグ名でフィールドを報告するValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Validator{v: v}
}

// Struct は構造体を検証する。検証に成功した場合はnilを返す。
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fieldMessage(fe.Field(), fe)
	}
	return &model.ValidationError{Fields: fields}
}

// Var は単一の値を検証する。fieldは入力エラーのフィールド名に使う。
func (val *Validator) Var(field string, value any, tag string) error {
	err := val.v.Var(value, tag)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fmt.Errorf("failed to validate %s: %w", field, err)
	}
	return model.NewValidationError(field, fieldMessage(field, ve[0]))
}

// PositiveAmount は金額が0より大きいことを検証する。
func PositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return model.NewValidationError(field, "Enter an amount greater than zero")
	}
	return nil
}

// Merge は複数の検証結果を1つの入力エラーにまとめる。全てnilの場合はnilを返す。
// 入力エラー以外のエラーが含まれる場合はそれを返す。
func Merge(errs ...error) error {
	var merged *model.ValidationError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		if merged == nil {
			merged = &model.ValidationError{Fields: make(map[string]string)}
		}
		for k, v := range ve.Fields {
			merged.Fields[k] = v
		}
	}
	if merged == nil {
		return nil
	}
	return merged
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", name, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s may contain only letters and digits", name)
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", name)
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// jsonFieldName は入力エラーのフィールド名に画面側と同じJSONタグ名を使う。
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}
