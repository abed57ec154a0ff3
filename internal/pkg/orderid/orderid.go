// Package orderid 生成订单号：{前缀}-{毫秒时间戳}-{8 位随机十六进制}
package orderid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixUpgrade  = "UPG"
	PrefixCancel   = "CAN"
	PrefixRenew    = "REN"
	PrefixRecharge = "RC"
)

// NewAt 以指定时间生成订单号；同一毫秒内由随机后缀区分
func NewAt(prefix string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, at.UnixMilli(), suffix)
}

// Prefix 取订单号前缀
func Prefix(orderID string) string {
	prefix, _, found := strings.Cut(orderID, "-")
	if !found {
		return ""
	}
	return prefix
}
