package validation

import "strings"

// Name length limits mirror the column definitions.
const (
	maxStrategyNameLen = 100
	maxTagNameLen      = 50
)

// ValidateStrategyName checks a strategy name for create/update.
func ValidateStrategyName(name string) error {
	errors := make(map[string]string)

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		errors["name"] = "策略名称不能为空"
	} else if len(trimmed) > maxStrategyNameLen {
		errors["name"] = "策略名称过长"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateTagName checks a tag name for create/rename.
func ValidateTagName(name string) error {
	errors := make(map[string]string)

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		errors["name"] = "标签名称不能为空"
	} else if len(trimmed) > maxTagNameLen {
		errors["name"] = "标签名称过长"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
