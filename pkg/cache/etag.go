package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ComputeETag 计算值的内容哈希（xxhash64，16 位十六进制）。
// 结构相同的值得到相同的 ETag。这是变更检测用的哈希，不具备密码学强度。
func ComputeETag(value interface{}) string {
	sum := xxhash.Sum64(canonicalBytes(value))
	s := strconv.FormatUint(sum, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// canonicalBytes 返回值的规范化表示。JSON 编码会对 map 的键排序，
// 无法编码的值退化为类型加标识。
func canonicalBytes(value interface{}) []byte {
	switch v := value.(type) {
	case string:
		return append([]byte("s:"), v...)
	case []byte:
		return append([]byte("b:"), v...)
	}

	data, err := json.Marshal(value)
	if err == nil {
		return append([]byte("j:"), data...)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return []byte(fmt.Sprintf("p:%T:%#x", value, rv.Pointer()))
	}
	return []byte(fmt.Sprintf("v:%T:%v", value, value))
}
