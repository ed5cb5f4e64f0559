package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// ErrMissingKey is returned when a field tagged `required:"true"` has no value and no default.
var ErrMissingKey = errors.New("missing required config key")

var durationType = reflect.TypeOf(time.Duration(0))

// Parse reads the config values for every `config_key` tagged field of T. T must be a struct or a
// pointer to a struct.
//
// A `default` tag supplies the value of a key missing from configMap, and a `required:"true"` tag
// makes a key that is missing from both an error.
func Parse[T any](configMap Map) (T, error) {
	var target T
	targetType := reflect.TypeOf(target)
	if targetType == nil {
		return target, fmt.Errorf("unsupported target type \"%T\"", target)
	}
	switch targetType.Kind() {
	case reflect.Struct:
		err := ParseInto(configMap, &target)
		return target, err
	case reflect.Pointer:
		p := reflect.ValueOf(&target).Elem()
		if p.IsNil() {
			p.Set(reflect.New(targetType.Elem()))
		}
		err := ParseInto(configMap, p.Interface())
		return target, err
	default:
		return target, fmt.Errorf("unsupported target type \"%T\"", target)
	}
}

// ParseInto is like [Parse] but populates an existing pointer to a struct.
func ParseInto(configMap Map, target any) error {
	targetType := reflect.TypeOf(target)
	if targetType == nil || targetType.Kind() != reflect.Pointer {
		return fmt.Errorf("unsupported target type \"%T\"", target)
	}

	targetType = targetType.Elem()
	if targetType.Kind() != reflect.Struct {
		return fmt.Errorf("unsupported target type \"%T\"", target)
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.IsNil() {
		return errors.New("target was nil")
	}
	targetValue = targetValue.Elem()

	for i := 0; i < targetType.NumField(); i++ {
		fieldInfo := targetType.Field(i)
		if !fieldInfo.IsExported() {
			continue
		}
		configKey, ok := fieldInfo.Tag.Lookup("config_key")
		if !ok {
			continue
		}
		configVal, ok := lookup(configMap, configKey)
		if !ok {
			configVal, ok = fieldInfo.Tag.Lookup("default")
		}
		if !ok {
			if fieldInfo.Tag.Get("required") == "true" {
				return fmt.Errorf("parse %q: %w", configKey, ErrMissingKey)
			}
			continue
		}
		if err := setField(targetValue.Field(i), configVal); err != nil {
			return fmt.Errorf("parse %q=%q: %w", configKey, configVal, err)
		}
	}
	return nil
}

func lookup(configMap Map, key string) (string, bool) {
	if configMap == nil {
		return "", false
	}
	return configMap.Lookup(key)
}

func setField(field reflect.Value, configVal string) error {
	if field.Type() == durationType {
		v, err := time.ParseDuration(configVal)
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(configVal)
	case reflect.Bool:
		v, err := strconv.ParseBool(configVal)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bitSize := int(field.Type().Size() * 8)
		v, err := strconv.ParseInt(configVal, 10, bitSize)
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bitSize := int(field.Type().Size() * 8)
		v, err := strconv.ParseUint(configVal, 10, bitSize)
		if err != nil {
			return err
		}
		field.SetUint(v)
	case reflect.Float32, reflect.Float64:
		bitSize := int(field.Type().Size() * 8)
		v, err := strconv.ParseFloat(configVal, bitSize)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
