package service

import (
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"reflect"
	"strconv"
	"strings"
)

// глубже этого уровня считаем значение циклическим и отбрасываем
const maxSanitizeDepth = 64

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	readerType        = reflect.TypeOf((*io.Reader)(nil)).Elem()
	fileHeaderType    = reflect.TypeOf(multipart.FileHeader{})
)

// Sanitize приводит произвольное значение к виду, который переживает JSON.
// false означает, что значение пропадает целиком (бинарные данные, функции,
// каналы). NaN и бесконечности становятся nil.
func Sanitize(v any) (any, bool) {
	return sanitizeValue(reflect.ValueOf(v), 0)
}

func sanitizeValue(v reflect.Value, depth int) (any, bool) {
	if !v.IsValid() {
		return nil, true
	}
	if depth > maxSanitizeDepth {
		return nil, false
	}

	if isBlobType(v.Type()) {
		return nil, false
	}
	if v.CanInterface() && v.Type().Implements(jsonMarshalerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, true
		}
		return sanitizeMarshaler(v.Interface().(json.Marshaler))
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, true
		}
		return f, true
	case reflect.String:
		return v.String(), true
	case reflect.Complex64, reflect.Complex128, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return sanitizeValue(v.Elem(), depth+1)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		if v.IsNil() {
			return nil, true
		}
		return sanitizeList(v, depth)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		return sanitizeList(v, depth)
	case reflect.Map:
		if v.IsNil() {
			return nil, true
		}
		return sanitizeMap(v, depth)
	case reflect.Struct:
		out := make(map[string]any)
		sanitizeStruct(v, depth, out)
		return out, true
	}

	return nil, false
}

func sanitizeMarshaler(m json.Marshaler) (any, bool) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func sanitizeList(v reflect.Value, depth int) (any, bool) {
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item, ok := sanitizeValue(v.Index(i), depth+1)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out, true
}

func sanitizeMap(v reflect.Value, depth int) (any, bool) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, ok := mapKey(iter.Key())
		if !ok {
			// ключи, которые JSON не умеет, делают всю карту непредставимой
			return nil, false
		}
		item, ok := sanitizeValue(iter.Value(), depth+1)
		if !ok {
			continue
		}
		out[key] = item
	}
	return out, true
}

func mapKey(k reflect.Value) (string, bool) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

func sanitizeStruct(v reflect.Value, depth int, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fv := v.Field(i)
		if field.Anonymous && name == "" {
			embedded := fv
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				sanitizeStruct(embedded, depth+1, out)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if omitEmpty && isEmptyValue(fv) {
			continue
		}

		item, ok := sanitizeValue(fv, depth+1)
		if !ok {
			continue
		}
		out[name] = item
	}
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// isBlobType: загруженные файлы и все, что читается как поток байт,
// в том числе по значению (bytes.Buffer)
func isBlobType(t reflect.Type) bool {
	if t == fileHeaderType || t == reflect.PointerTo(fileHeaderType) {
		return true
	}
	if t.Implements(readerType) {
		return true
	}
	return t.Kind() != reflect.Interface && t.Kind() != reflect.Pointer &&
		reflect.PointerTo(t).Implements(readerType)
}
