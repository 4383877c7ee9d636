// Package env fills configuration structs from environment variables.
package env

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Validator is implemented by config structs that need validation.
type Validator interface {
	Validate() error
}

// ErrInvalidValue is returned when an environment variable value cannot be parsed.
type ErrInvalidValue struct {
	Field  string
	EnvVar string
	Value  string
	Err    error
}

func (e ErrInvalidValue) Error() string {
	return fmt.Sprintf("invalid value for %s=%q (field: %s): %v", e.EnvVar, e.Value, e.Field, e.Err)
}

func (e ErrInvalidValue) Unwrap() error {
	return e.Err
}

// ErrNotStructPointer is returned when Load is called with a non-pointer or non-struct argument.
type ErrNotStructPointer struct {
	Type string
}

func (e ErrNotStructPointer) Error() string {
	return fmt.Sprintf("env.Load: argument must be a pointer to struct, got %s", e.Type)
}

// ErrUnsupportedType is returned when a field has an unsupported type.
type ErrUnsupportedType struct {
	Kind string
}

func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported type: %s", e.Kind)
}

var (
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
)

// Load fills the struct pointed to by v from the process environment.
//
// Struct tags:
//   - env:"VAR_NAME" maps the field to VAR_NAME
//   - default:"value" is used when VAR_NAME is unset (an empty value still counts as set)
//
// Field types: string, bool, signed ints, float64, time.Duration ("1m30s")
// and []string (comma separated, blanks dropped).
//
// Nested structs are loaded recursively and validated bottom-up through
// Validator. Every unparsable variable is reported, joined into one error,
// before any validation runs.
func Load(v any) error {
	return load(v, os.LookupEnv)
}

// LoadFrom is Load reading from vars instead of the environment.
func LoadFrom(v any, vars map[string]string) error {
	return load(v, func(key string) (string, bool) {
		val, ok := vars[key]
		return val, ok
	})
}

type loader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func load(v any, lookup func(string) (string, bool)) error {
	ptrVal := reflect.ValueOf(v)
	if ptrVal.Kind() != reflect.Pointer || ptrVal.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer{Type: fmt.Sprintf("%T", v)}
	}

	l := &loader{lookup: lookup}
	l.fill(ptrVal.Elem())
	if len(l.errs) > 0 {
		return errors.Join(l.errs...)
	}
	return validate(ptrVal.Elem())
}

func (l *loader) fill(val reflect.Value) {
	typ := val.Type()

	for i := range val.NumField() {
		field := val.Field(i)
		sf := typ.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != timeType {
			l.fill(field)
			continue
		}

		key := sf.Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := l.lookup(key)
		if !ok {
			if raw, ok = sf.Tag.Lookup("default"); !ok {
				continue
			}
		}

		if err := setField(field, raw); err != nil {
			l.errs = append(l.errs, ErrInvalidValue{Field: sf.Name, EnvVar: key, Value: raw, Err: err})
		}
	}
}

// validate runs Validator on nested structs first, then on val itself.
func validate(val reflect.Value) error {
	for i := range val.NumField() {
		field := val.Field(i)
		if field.Kind() != reflect.Struct || field.Type() == timeType || !field.CanSet() {
			continue
		}
		if err := validate(field); err != nil {
			return err
		}
	}
	if val.CanAddr() {
		if v, ok := val.Addr().Interface().(Validator); ok {
			return v.Validate()
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return ErrUnsupportedType{Kind: "[]" + field.Type().Elem().Kind().String()}
		}
		var items []string
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return ErrUnsupportedType{Kind: field.Kind().String()}
	}
	return nil
}
