package flagx

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var durationType = reflect.TypeOf(time.Duration(0))

// BindFlags registers one flag per tagged field of an options struct
//
// Usage:
//
//	type statusOptions struct {
//	    URL     string        `flag:"url,u" usage:"monitor URL" default:"http://localhost:3001"`
//	    Timeout time.Duration `flag:"timeout" usage:"request timeout" default:"5s"`
//	    Port    int           `flag:"port,p" usage:"API port" config:"monitor.server.port"`
//	}
//
// Supported tags:
// - flag: name[,shorthand] (mandatory)
// - usage: help text
// - default: default value
// - required: "true" marks the flag required
// - config: configuration key the flag overrides, see Bindings
func BindFlags(cmd *cobra.Command, target interface{}) error {
	t, err := structType(target)
	if err != nil {
		return err
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, short, ok := flagName(field)
		if !ok {
			continue
		}

		usage := field.Tag.Get("usage")
		def := field.Tag.Get("default")
		if err := registerFlag(cmd, field.Type, name, short, usage, def); err != nil {
			return fmt.Errorf("flag %s: %w", name, err)
		}
		if field.Tag.Get("required") == "true" {
			_ = cmd.MarkFlagRequired(name)
		}
	}
	return nil
}

// ParseFlags copies parsed flag values into the options struct
func ParseFlags(cmd *cobra.Command, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		name, _, ok := flagName(t.Field(i))
		if !ok || !field.CanSet() {
			continue
		}
		if err := setFieldValue(cmd, field, name); err != nil {
			return fmt.Errorf("parse field %s: %w", t.Field(i).Name, err)
		}
	}
	return nil
}

// Bindings flag name to configuration key, from the `config` tags
func Bindings(target interface{}) map[string]string {
	t, err := structType(target)
	if err != nil {
		return nil
	}

	out := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, _, ok := flagName(field)
		if !ok {
			continue
		}
		if key := field.Tag.Get("config"); key != "" {
			out[name] = key
		}
	}
	return out
}

func structType(target interface{}) (reflect.Type, error) {
	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("target must be a pointer to struct")
	}
	return t.Elem(), nil
}

func flagName(field reflect.StructField) (name, short string, ok bool) {
	tag := field.Tag.Get("flag")
	if tag == "" {
		return "", "", false
	}
	parts := strings.SplitN(tag, ",", 2)
	name = parts[0]
	if len(parts) > 1 {
		short = parts[1]
	}
	return name, short, true
}

func registerFlag(cmd *cobra.Command, typ reflect.Type, name, short, usage, def string) error {
	flags := cmd.Flags()

	// Duration is an int64 kind, check it first
	if typ == durationType {
		var d time.Duration
		if def != "" {
			parsed, err := time.ParseDuration(def)
			if err != nil {
				return fmt.Errorf("default %q: %w", def, err)
			}
			d = parsed
		}
		flags.DurationP(name, short, d, usage)
		return nil
	}

	switch typ.Kind() {
	case reflect.String:
		flags.StringP(name, short, def, usage)

	case reflect.Int:
		n := 0
		if def != "" {
			parsed, err := strconv.Atoi(def)
			if err != nil {
				return fmt.Errorf("default %q: %w", def, err)
			}
			n = parsed
		}
		flags.IntP(name, short, n, usage)

	case reflect.Bool:
		b := false
		if def != "" {
			parsed, err := strconv.ParseBool(def)
			if err != nil {
				return fmt.Errorf("default %q: %w", def, err)
			}
			b = parsed
		}
		flags.BoolP(name, short, b, usage)

	case reflect.Slice:
		if typ.Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", typ.Elem().Kind())
		}
		var list []string
		if def != "" {
			list = strings.Split(def, ",")
		}
		flags.StringSliceP(name, short, list, usage)

	default:
		return fmt.Errorf("unsupported field type: %s", typ.Kind())
	}
	return nil
}

func setFieldValue(cmd *cobra.Command, field reflect.Value, name string) error {
	flags := cmd.Flags()

	if field.Type() == durationType {
		d, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, err := flags.GetString(name)
		if err != nil {
			return err
		}
		field.SetString(s)

	case reflect.Int:
		n, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))

	case reflect.Bool:
		b, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		list, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(list))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
