// Package validate checks request structs against `validate` struct tags.
//
// Rules (comma-separated, first failing rule per field wins):
//
//	required        not zero / not empty (nil pointer, "" , 0, empty slice)
//	nullable        skip the remaining rules when the field is empty
//	email           looks like an address
//	min=N / max=N   string length in runes, slice length, or numeric bound
//	gte=N / lte=N   numeric bound
//	digits=N        exactly N ASCII digits
//	regex=pattern   full match (no commas in the pattern)
//	in=a|b|c        one of the listed values
//	dive            validate a nested struct, errors keyed "parent.child"
//
// Messages are French; they reach the storefront client unchanged.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Struct validates v and returns field → message. An empty map means valid.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	walk(rv, "", errs)
	return errs
}

// HasErrors reports whether errs is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		name := prefix + jsonFieldName(field)
		value := rv.Field(i)
		rules := strings.Split(tag, ",")

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}

		for _, rule := range rules {
			rule = strings.TrimSpace(rule)
			if rule == "" || rule == "nullable" {
				continue
			}
			if rule == "dive" {
				if nested, ok := structValue(value); ok {
					walk(nested, name+".", errs)
				}
				continue
			}
			if msg := apply(rule, name, value); msg != "" {
				errs[name] = msg
				break
			}
		}
	}
}

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	v = deref(v)

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("Le champ %s est obligatoire.", field)
		}
	case "email":
		if s, ok := str(v); ok && !emailRE.MatchString(s) {
			return fmt.Sprintf("Le champ %s doit être une adresse email valide.", field)
		}
	case "min", "max":
		n, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return ""
		}
		size, numeric := measure(v)
		if (key == "min" && size < n) || (key == "max" && size > n) {
			return boundMessage(key, field, param, numeric)
		}
	case "gte", "lte":
		n, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return ""
		}
		f, ok := number(v)
		if !ok {
			return fmt.Sprintf("Le champ %s doit être un nombre.", field)
		}
		if key == "gte" && f < n {
			return fmt.Sprintf("Le champ %s doit être supérieur ou égal à %s.", field, param)
		}
		if key == "lte" && f > n {
			return fmt.Sprintf("Le champ %s doit être inférieur ou égal à %s.", field, param)
		}
	case "digits":
		n, _ := strconv.Atoi(param)
		s, _ := str(v)
		if len(s) != n || strings.Trim(s, "0123456789") != "" {
			return fmt.Sprintf("Le champ %s doit contenir %d chiffres.", field, n)
		}
	case "regex":
		s, _ := str(v)
		if !compile(param).MatchString(s) {
			return fmt.Sprintf("Le format du champ %s est invalide.", field)
		}
	case "in":
		s := fmt.Sprintf("%v", v.Interface())
		for _, opt := range strings.Split(param, "|") {
			if s == opt {
				return ""
			}
		}
		return fmt.Sprintf("Le champ %s doit valoir %s.", field, strings.ReplaceAll(param, "|", ", "))
	}
	return ""
}

func boundMessage(key, field, param string, numeric bool) string {
	switch {
	case numeric && key == "min":
		return fmt.Sprintf("Le champ %s doit être au moins %s.", field, param)
	case numeric:
		return fmt.Sprintf("Le champ %s ne doit pas dépasser %s.", field, param)
	case key == "min":
		return fmt.Sprintf("Le champ %s doit contenir au moins %s caractères.", field, param)
	default:
		return fmt.Sprintf("Le champ %s ne doit pas dépasser %s caractères.", field, param)
	}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	reMu    sync.Mutex
	reCache = map[string]*regexp.Regexp{}
)

// compile anchors pattern and caches it.
func compile(pattern string) *regexp.Regexp {
	reMu.Lock()
	defer reMu.Unlock()
	if re, ok := reCache[pattern]; ok {
		return re
	}
	re := regexp.MustCompile(`^(?:` + strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$") + `)$`)
	reCache[pattern] = re
	return re
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func structValue(v reflect.Value) (reflect.Value, bool) {
	v = deref(v)
	if v.Kind() == reflect.Struct {
		return v, true
	}
	return v, false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Invalid:
		return true
	default:
		return v.IsZero()
	}
}

func str(v reflect.Value) (string, bool) {
	if v.Kind() == reflect.String {
		return v.String(), true
	}
	if !v.IsValid() {
		return "", false
	}
	return fmt.Sprintf("%v", v.Interface()), false
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return f, err == nil
	}
	return 0, false
}

// measure returns rune length for strings, length for collections and the
// value for numbers. numeric reports which one it was.
func measure(v reflect.Value) (size float64, numeric bool) {
	switch v.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(v.String())), false
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(v.Len()), false
	}
	f, _ := number(v)
	return f, true
}

func hasRule(rules []string, name string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == name {
			return true
		}
	}
	return false
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
