package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/qs3c/aipara_account_server/internal/pkg/timeutil"
)

// MetaVersion 当前元数据结构版本
const MetaVersion = 1

const (
	PasswordMethodEmail = "email"
	PasswordMethodPhone = "phone"
)

// 字段长度上限（按字符计）
const (
	maxNameLen      = 120
	maxEmailLen     = 320
	maxPhoneLen     = 32
	maxPictureLen   = 2048
	maxMethodLen    = 16
	maxTimestampLen = 64
)

// ProfileMeta 用户扩展资料
type ProfileMeta struct {
	Version           int        `json:"v,omitempty"`
	Name              *string    `json:"name,omitempty"`
	Email             *string    `json:"email,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	PhoneE164         *string    `json:"phone_e164,omitempty"`
	Picture           *string    `json:"picture,omitempty"`
	PasswordSet       *bool      `json:"password_set,omitempty"`
	PasswordSkipped   *bool      `json:"password_skipped,omitempty"`
	PasswordSetAt     *time.Time `json:"password_set_at,omitempty"`
	PasswordSkippedAt *time.Time `json:"password_skipped_at,omitempty"`
	PasswordMethod    *string    `json:"password_method,omitempty"`
	EmailBoundAt      *time.Time `json:"email_bound_at,omitempty"`
	PhoneBoundAt      *time.Time `json:"phone_bound_at,omitempty"`
}

// Field 补丁中的单个字段：Set 为 false 表示未出现；Set 为 true 且 Value 为 nil 表示清空
type Field[T any] struct {
	Set   bool
	Value *T
}

// Value 构造一个赋值字段
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Clear 构造一个清空字段
func Clear[T any]() Field[T] {
	return Field[T]{Set: true}
}

func (f Field[T]) applyTo(dst **T) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		*dst = nil
		return
	}
	v := *f.Value
	*dst = &v
}

// MetaPatch 经过清洗的元数据增量
type MetaPatch struct {
	Name              Field[string]
	Email             Field[string]
	Phone             Field[string]
	PhoneE164         Field[string]
	Picture           Field[string]
	PasswordSet       Field[bool]
	PasswordSkipped   Field[bool]
	PasswordSetAt     Field[time.Time]
	PasswordSkippedAt Field[time.Time]
	PasswordMethod    Field[string]
	EmailBoundAt      Field[time.Time]
	PhoneBoundAt      Field[time.Time]
}

// Empty 补丁中没有任何字段
func (p MetaPatch) Empty() bool {
	return !(p.Name.Set || p.Email.Set || p.Phone.Set || p.PhoneE164.Set || p.Picture.Set ||
		p.PasswordSet.Set || p.PasswordSkipped.Set || p.PasswordSetAt.Set ||
		p.PasswordSkippedAt.Set || p.PasswordMethod.Set || p.EmailBoundAt.Set || p.PhoneBoundAt.Set)
}

// Apply 将补丁合并到当前元数据，返回新值；对同一补丁重复调用结果不变
func (m ProfileMeta) Apply(p MetaPatch) ProfileMeta {
	out := m
	p.Name.applyTo(&out.Name)
	p.Email.applyTo(&out.Email)
	p.Phone.applyTo(&out.Phone)
	p.PhoneE164.applyTo(&out.PhoneE164)
	p.Picture.applyTo(&out.Picture)
	p.PasswordSet.applyTo(&out.PasswordSet)
	p.PasswordSkipped.applyTo(&out.PasswordSkipped)
	p.PasswordSetAt.applyTo(&out.PasswordSetAt)
	p.PasswordSkippedAt.applyTo(&out.PasswordSkippedAt)
	p.PasswordMethod.applyTo(&out.PasswordMethod)
	p.EmailBoundAt.applyTo(&out.EmailBoundAt)
	p.PhoneBoundAt.applyTo(&out.PhoneBoundAt)
	out.Version = MetaVersion
	return out
}

// ParseMetaPatch 把客户端提交的任意 JSON 对象清洗为补丁
//   - 不在白名单的字段直接丢弃
//   - 布尔字段按 true/1/"1"/"true" 归一
//   - 字符串去除首尾空白并截断，空串或 null 表示清空，非字符串丢弃
//   - 时间字段可解析时归一为 UTC，无法解析时丢弃，空值清空
func ParseMetaPatch(input any) MetaPatch {
	var p MetaPatch
	obj, ok := input.(map[string]any)
	if !ok {
		return p
	}

	for key, raw := range obj {
		switch key {
		case "name":
			p.Name = stringField(raw, maxNameLen)
		case "email":
			p.Email = stringField(raw, maxEmailLen)
		case "phone":
			p.Phone = stringField(raw, maxPhoneLen)
		case "phone_e164":
			p.PhoneE164 = stringField(raw, maxPhoneLen)
		case "picture":
			p.Picture = stringField(raw, maxPictureLen)
		case "password_set":
			p.PasswordSet = Value(ToBool(raw))
		case "password_skipped":
			p.PasswordSkipped = Value(ToBool(raw))
		case "password_method":
			method, ok := SanitizeString(raw, maxMethodLen)
			if ok && method != nil && (*method == PasswordMethodEmail || *method == PasswordMethodPhone) {
				p.PasswordMethod = Value(*method)
			}
		case "password_set_at":
			p.PasswordSetAt = timestampField(raw)
		case "password_skipped_at":
			p.PasswordSkippedAt = timestampField(raw)
		case "email_bound_at":
			p.EmailBoundAt = timestampField(raw)
		case "phone_bound_at":
			p.PhoneBoundAt = timestampField(raw)
		}
	}

	return p
}

func stringField(raw any, maxLen int) Field[string] {
	v, ok := SanitizeString(raw, maxLen)
	if !ok {
		return Field[string]{}
	}
	if v == nil {
		return Clear[string]()
	}
	return Value(*v)
}

func timestampField(raw any) Field[time.Time] {
	v, ok := SanitizeString(raw, maxTimestampLen)
	if !ok || v == nil {
		return Clear[time.Time]()
	}
	t, parsed := timeutil.ParseTimestamp(*v)
	if !parsed {
		return Field[time.Time]{}
	}
	return Value(t)
}

// SanitizeString 清洗字符串输入
// 返回 (nil, true) 表示应清空；(nil, false) 表示输入不是字符串，应忽略
func SanitizeString(raw any, maxLen int) (*string, bool) {
	if raw == nil {
		return nil, true
	}
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return &s, true
}

// ToBool 宽松布尔转换
func ToBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "1" || v == "true"
	case json.Number:
		return v.String() == "1"
	case float64:
		return v == 1
	case int:
		return v == 1
	case int64:
		return v == 1
	}
	return false
}

// ToNumber 宽松数值转换，无法解析时为 0
func ToNumber(raw any) float64 {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		// 整串必须是数字，"12abc" 这类带尾巴的输入视为非数值
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Scan 读取时按同一套清洗规则解析，历史数据中的未知字段会被丢弃
func (m *ProfileMeta) Scan(value any) error {
	*m = ProfileMeta{}

	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported meta type %T", value)
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		// 无法解析的历史数据视为空
		return nil
	}
	*m = ProfileMeta{}.Apply(ParseMetaPatch(raw))
	return nil
}

// Value 写库时统一带上版本号
func (m ProfileMeta) Value() (driver.Value, error) {
	m.Version = MetaVersion
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// MarshalJSON 时间字段输出为 ISO-8601 毫秒格式
func (m ProfileMeta) MarshalJSON() ([]byte, error) {
	type alias ProfileMeta
	return json.Marshal(struct {
		alias
		PasswordSetAt     *string `json:"password_set_at,omitempty"`
		PasswordSkippedAt *string `json:"password_skipped_at,omitempty"`
		EmailBoundAt      *string `json:"email_bound_at,omitempty"`
		PhoneBoundAt      *string `json:"phone_bound_at,omitempty"`
	}{
		alias:             alias(m),
		PasswordSetAt:     isoString(m.PasswordSetAt),
		PasswordSkippedAt: isoString(m.PasswordSkippedAt),
		EmailBoundAt:      isoString(m.EmailBoundAt),
		PhoneBoundAt:      isoString(m.PhoneBoundAt),
	})
}

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func isoString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(isoLayout)
	return &s
}
