package codec

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// builtTimeLayouts are the accepted formats for time.Time form fields, in
// order of preference.
var builtTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormCodec binds urlencoded or multipart form fields to a struct of type T
// by field name, or by the `form` tag when present. Supported field types
// are string, bool, integers, floats, and time.Time. The response side
// encodes as JSON, which suits endpoints that echo a bound form back as
// structured data.
type FormCodec[T any, U any] struct {
	json JSONCodec[T, U]
}

// NewFormCodec creates a new FormCodec instance for the specified types.
func NewFormCodec[T any, U any]() *FormCodec[T, U] {
	return &FormCodec[T, U]{}
}

// NewRequest creates a new zero-value instance of the request type T.
func (c *FormCodec[T, U]) NewRequest() T {
	var data T
	return data
}

// Decode parses the request form and binds its fields into type T.
func (c *FormCodec[T, U]) Decode(r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		return data, fmt.Errorf("failed parsing form: %w", err)
	}
	if err := bindForm(&data, r.PostForm); err != nil {
		var zero T
		return zero, err
	}
	return data, nil
}

// DecodeBytes parses data as a urlencoded form body and binds it into T.
func (c *FormCodec[T, U]) DecodeBytes(body []byte) (T, error) {
	var data T
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return data, fmt.Errorf("failed parsing form data: %w", err)
	}
	if err := bindForm(&data, values); err != nil {
		var zero T
		return zero, err
	}
	return data, nil
}

// Encode writes the response as JSON.
func (c *FormCodec[T, U]) Encode(w http.ResponseWriter, resp U) error {
	return c.json.Encode(w, resp)
}

// bindForm assigns form values to the exported fields of the struct that
// dst points to. Missing fields keep their zero values; a value that fails
// to parse for the field's type is an error.
func bindForm(dst any, values url.Values) error {
	v := reflect.ValueOf(dst).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("form binding requires a struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("form")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if !values.Has(name) {
			// Form field names are matched case-insensitively as a
			// fallback, the way lenient form binders behave.
			name = matchFold(values, name)
			if name == "" {
				continue
			}
		}

		if err := setField(v.Field(i), values.Get(name)); err != nil {
			return fmt.Errorf("failed binding form field %q: %w", name, err)
		}
	}
	return nil
}

func matchFold(values url.Values, name string) string {
	for key := range values {
		if strings.EqualFold(key, name) {
			return key
		}
	}
	return ""
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == reflect.TypeOf(time.Time{}) {
		for _, layout := range builtTimeLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				field.Set(reflect.ValueOf(ts))
				return nil
			}
		}
		return fmt.Errorf("unrecognized time format %q", raw)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
