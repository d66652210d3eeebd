package cache

import (
	"regexp"
	"strings"
)

// CompilePattern 将通配符模式转换为锚定的正则表达式。
// "*" 匹配一个或多个任意字符（包括换行），其余字符按字面匹配；不含 "*" 的模式只匹配自身。
func CompilePattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("(?s)^" + strings.Join(parts, ".+") + "$")
}
