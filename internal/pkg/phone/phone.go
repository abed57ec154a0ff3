// Package phone 手机号在身份服务格式（+86 13800000000）与页面展示格式之间转换
package phone

import (
	"regexp"
	"strings"
)

const chinaCode = "+86"

var (
	cnWithCode  = regexp.MustCompile(`^86\d{11}$`)
	cnLocal     = regexp.MustCompile(`^\d{11}$`)
	plainDigits = regexp.MustCompile(`^\d{6,20}$`)
)

func compact(value string) string {
	return strings.Join(strings.Fields(value), "")
}

func collapse(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// formatE164 把 +国家码号码 拆成 "+cc rest"，国家码取 1-3 位中第一个使剩余长度落在 4-20 的
func formatE164(value string) string {
	cleaned := compact(value)
	if !strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	digits := cleaned[1:]
	for ccLen := 1; ccLen <= 3 && ccLen <= len(digits); ccLen++ {
		rest := digits[ccLen:]
		if len(rest) >= 4 && len(rest) <= 20 {
			return "+" + digits[:ccLen] + " " + rest
		}
	}
	return cleaned
}

// NormalizeForAPI 转为身份服务要求的格式，大陆号码补全 +86
func NormalizeForAPI(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	cleaned := compact(trimmed)

	switch {
	case strings.HasPrefix(cleaned, chinaCode):
		rest := cleaned[len(chinaCode):]
		if rest == "" {
			return chinaCode
		}
		return chinaCode + " " + rest
	case cnWithCode.MatchString(cleaned):
		return chinaCode + " " + cleaned[2:]
	case cnLocal.MatchString(cleaned):
		return chinaCode + " " + cleaned
	case strings.HasPrefix(cleaned, "+"):
		return formatE164(cleaned)
	case strings.Contains(trimmed, " "):
		// 只有含空格的输入保留分隔，制表符等空白直接去掉
		return collapse(trimmed)
	}
	return cleaned
}

// FormatForDisplay 页面展示格式，大陆号码去掉国家码
func FormatForDisplay(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	cleaned := compact(trimmed)

	switch {
	case strings.HasPrefix(cleaned, chinaCode):
		return cleaned[len(chinaCode):]
	case cnWithCode.MatchString(cleaned):
		return cleaned[2:]
	case plainDigits.MatchString(cleaned):
		return cleaned
	case strings.HasPrefix(cleaned, "+"):
		return formatE164(cleaned)
	}
	return collapse(trimmed)
}
