package schema

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var setTemp = Object(
	Required("roomName", String, "Name of the room"),
	Required("temperature", Number, "Target temperature"),
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    Args
		wantErr string
	}{
		{
			name: "valid",
			raw:  map[string]any{"roomName": "Kitchen", "temperature": 23.0},
			want: Args{"roomName": "Kitchen", "temperature": 23.0},
		},
		{
			name: "extra fields are dropped",
			raw:  map[string]any{"roomName": "Kitchen", "temperature": 23.0, "unit": "C"},
			want: Args{"roomName": "Kitchen", "temperature": 23.0},
		},
		{
			name: "int and json.Number accepted",
			raw:  map[string]any{"roomName": "Kitchen", "temperature": json.Number("19.5")},
			want: Args{"roomName": "Kitchen", "temperature": 19.5},
		},
		{
			name: "negative temperatures have no bounds",
			raw:  map[string]any{"roomName": "Freezer", "temperature": -40},
			want: Args{"roomName": "Freezer", "temperature": -40.0},
		},
		{
			name:    "missing required",
			raw:     map[string]any{"roomName": "Kitchen"},
			wantErr: "temperature is required",
		},
		{
			name:    "wrong type",
			raw:     map[string]any{"roomName": "Kitchen", "temperature": "warm"},
			wantErr: "temperature expected number, got string",
		},
		{
			name:    "nil map",
			raw:     nil,
			wantErr: "roomName is required; temperature is required",
		},
		{
			name:    "not finite",
			raw:     map[string]any{"roomName": "Kitchen", "temperature": math.Inf(1)},
			wantErr: "temperature must be a finite number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := setTemp.Validate(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaValidation))
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateIntegerAndBoolean(t *testing.T) {
	s := Object(
		Optional("count", Integer, ""),
		Optional("verbose", Boolean, ""),
	)

	args, err := s.Validate(map[string]any{"count": 3.0, "verbose": true})
	require.NoError(t, err)
	assert.Equal(t, 3.0, args["count"])
	assert.Equal(t, true, args["verbose"])

	_, err = s.Validate(map[string]any{"count": 2.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whole number")

	_, err = s.Validate(map[string]any{"verbose": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected boolean")

	args, err = s.Validate(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestArgsDecode(t *testing.T) {
	args, err := setTemp.Validate(map[string]any{"roomName": "Bedroom", "temperature": 18})
	require.NoError(t, err)

	var params struct {
		RoomName    string  `mapstructure:"roomName"`
		Temperature float64 `mapstructure:"temperature"`
	}
	require.NoError(t, args.Decode(&params))
	assert.Equal(t, "Bedroom", params.RoomName)
	assert.Equal(t, 18.0, params.Temperature)

	assert.Equal(t, "Bedroom", args.String("roomName"))
	f, ok := args.Float("temperature")
	assert.True(t, ok)
	assert.Equal(t, 18.0, f)
}

func TestJSONSchema(t *testing.T) {
	js := setTemp.JSONSchema()
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, []string{"roomName", "temperature"}, js["required"])

	props := js["properties"].(map[string]any)
	require.Len(t, props, 2)
	room := props["roomName"].(map[string]any)
	assert.Equal(t, "string", room["type"])
	assert.Equal(t, "Name of the room", room["description"])

	empty := Object().JSONSchema()
	assert.Equal(t, []string{}, empty["required"])
	assert.Empty(t, empty["properties"])
}
