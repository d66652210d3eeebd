package cache

import (
	"reflect"
)

const (
	minEstimate      = 2  // 空字符串、空字节切片的下限
	fallbackEstimate = 64 // chan、func，以及超出遍历预算的子树

	sliceHeader = 24
	mapHeader   = 48
	pointerSize = 8

	maxSizeDepth   = 16   // 遍历深度上限，循环引用在这里截断
	maxSizeNodes   = 4096 // 单次估算最多访问的节点数
	maxSizeSamples = 64   // 每个切片、数组、map 最多采样的元素数，其余按平均值外推
)

// EstimateSize 估算值占用的字节数。
// 只追求数量级正确：文本按 UTF-16 计每字符 2 字节，标量为固定小开销，
// 复合值用有界的反射遍历累加，大集合按采样外推。返回值总是正数。
func EstimateSize(value interface{}) int64 {
	switch v := value.(type) {
	case nil:
		return 8
	case string:
		return atLeast(int64(len(v)) * 2)
	case []byte:
		return atLeast(int64(len(v)))
	case bool:
		return 4
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr, float32, float64:
		return 8
	}

	z := sizer{budget: maxSizeNodes}
	return atLeast(z.size(reflect.ValueOf(value), 0))
}

type sizer struct {
	budget int
}

func (z *sizer) size(rv reflect.Value, depth int) int64 {
	if depth > maxSizeDepth || z.budget <= 0 {
		return fallbackEstimate
	}
	z.budget--

	switch rv.Kind() {
	case reflect.Invalid:
		return 8
	case reflect.String:
		return int64(rv.Len()) * 2
	case reflect.Bool:
		return 4
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return 8
	case reflect.Complex64, reflect.Complex128:
		return 16
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fallbackEstimate
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return pointerSize
		}
		return pointerSize + z.size(rv.Elem(), depth+1)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return sliceHeader + int64(rv.Len())
		}
		return sliceHeader + z.sequence(rv, depth)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return int64(rv.Len())
		}
		return z.sequence(rv, depth)
	case reflect.Map:
		return mapHeader + z.mapEntries(rv, depth)
	case reflect.Struct:
		var total int64
		for i := 0; i < rv.NumField(); i++ {
			total += z.size(rv.Field(i), depth+1)
		}
		return total
	}
	return fallbackEstimate
}

func (z *sizer) sequence(rv reflect.Value, depth int) int64 {
	n := rv.Len()
	sampled := n
	if sampled > maxSizeSamples {
		sampled = maxSizeSamples
	}

	var total int64
	for i := 0; i < sampled; i++ {
		total += z.size(rv.Index(i), depth+1)
	}
	return extrapolate(total, sampled, n)
}

func (z *sizer) mapEntries(rv reflect.Value, depth int) int64 {
	n := rv.Len()
	sampled := 0
	var total int64

	iter := rv.MapRange()
	for sampled < maxSizeSamples && iter.Next() {
		total += z.size(iter.Key(), depth+1) + z.size(iter.Value(), depth+1)
		sampled++
	}
	return extrapolate(total, sampled, n)
}

// extrapolate 按采样均值推算全部 n 个元素的大小
func extrapolate(total int64, sampled, n int) int64 {
	if sampled == 0 || sampled == n {
		return total
	}
	return total * int64(n) / int64(sampled)
}

func atLeast(n int64) int64 {
	if n < minEstimate {
		return minEstimate
	}
	return n
}
