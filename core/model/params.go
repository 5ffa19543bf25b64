package model

import (
	"math"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// ParamInt はハイパーパラメータの値をintに変換する
// int系・整数値のfloat64を受け付ける。allowNone が true の場合 nil は 0（無制限）として扱う
func ParamInt(name string, value interface{}, allowNone bool) (int, error) {
	switch v := value.(type) {
	case nil:
		if allowNone {
			return 0, nil
		}
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(name, "must be an integer", value)
}

// ParamString はハイパーパラメータの値をstringに変換する
func ParamString(name string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", errors.NewValidationError(name, "must be a string", value)
	}
	return s, nil
}

// ParamBool はハイパーパラメータの値をboolに変換する
func ParamBool(name string, value interface{}) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "must be a boolean", value)
	}
	return b, nil
}
