package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Encode converts a tagged struct (or a map) into document fields. Values are
// normalised to their JSON shapes, so every backend stores and compares the
// same representation: numbers become float64, times RFC 3339 strings.
func Encode(v any) (Data, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if data == nil {
		data = Data{}
	}
	return data, nil
}

// Decode fills out from document fields using the json field tags.
func Decode(data Data, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := dec.Decode(map[string]any(data)); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// normalizeValue gives a single field value the representation Encode would.
func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fieldEquals(data Data, field string, want any) bool {
	got, ok := data[field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, want)
}

func cloneData(d Data) Data {
	if d == nil {
		return Data{}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		out := make(Data, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out
	}
	var out Data
	_ = json.Unmarshal(raw, &out)
	return out
}
