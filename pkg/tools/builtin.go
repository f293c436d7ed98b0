package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KakuleMalambo/voice-assistant/pkg/house"
	"github.com/KakuleMalambo/voice-assistant/pkg/schema"
)

// Names of the built-in tools as declared to the model.
const (
	NameWeather             = "weather"
	NameSearchWeb           = "searchWeb"
	NameGetRoomTemperatures = "getRoomTemperatures"
	NameSetRoomTemperature  = "setRoomTemperature"
)

// ErrNotConfigured indicates a built-in whose backend was not provided.
var ErrNotConfigured = errors.New("tools: backend not configured")

// WeatherLookup answers weather questions for a free-text location.
type WeatherLookup interface {
	Lookup(ctx context.Context, location string) (string, error)
}

// WebSearcher answers free-text web queries.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// BuiltinConfig holds the backends of the built-in tools.
type BuiltinConfig struct {
	Store   house.Store
	Weather WeatherLookup
	Search  WebSearcher
}

type weatherParams struct {
	Location string `mapstructure:"location"`
}

type searchParams struct {
	Query string `mapstructure:"query"`
}

type setTemperatureParams struct {
	RoomName    string  `mapstructure:"roomName"`
	Temperature float64 `mapstructure:"temperature"`
}

// Builtin returns the four household tools in declaration order.
func Builtin(cfg BuiltinConfig) []Tool {
	return []Tool{
		{
			Name:        NameWeather,
			Description: "Get the current weather for a location. Use when someone asks about the weather, temperature outside, or forecast somewhere.",
			Action:      "getting the weather",
			Schema: schema.Object(
				schema.Required("location", schema.String, "City or place name, e.g. \"Paris\" or \"New York\""),
			),
			Handler: func(ctx context.Context, args schema.Args) (string, error) {
				if cfg.Weather == nil {
					return "", fmt.Errorf("%w: weather", ErrNotConfigured)
				}
				var p weatherParams
				if err := args.Decode(&p); err != nil {
					return "", err
				}
				return cfg.Weather.Lookup(ctx, p.Location)
			},
		},
		{
			Name:        NameSearchWeb,
			Description: "Search the web for current information. Use for news, recent events, prices, schedules, or anything that may have changed since your training data.",
			Action:      "searching the web",
			Schema: schema.Object(
				schema.Required("query", schema.String, "The search query"),
			),
			Handler: func(ctx context.Context, args schema.Args) (string, error) {
				if cfg.Search == nil {
					return "", fmt.Errorf("%w: search", ErrNotConfigured)
				}
				var p searchParams
				if err := args.Decode(&p); err != nil {
					return "", err
				}
				return cfg.Search.Search(ctx, p.Query)
			},
		},
		{
			Name:        NameGetRoomTemperatures,
			Description: "Get the current temperature of every room in the house.",
			Action:      "getting room temperatures",
			Schema:      schema.Object(),
			Handler: func(ctx context.Context, _ schema.Args) (string, error) {
				if cfg.Store == nil {
					return "", fmt.Errorf("%w: room store", ErrNotConfigured)
				}
				doc, err := cfg.Store.ReadAll(ctx)
				if err != nil {
					return "", err
				}
				return FormatRooms(doc.House.Rooms), nil
			},
		},
		{
			Name:        NameSetRoomTemperature,
			Description: "Set the temperature of a room in the house. Room names are matched case-insensitively.",
			Action:      "setting room temperature",
			Schema: schema.Object(
				schema.Required("roomName", schema.String, "Name of the room, e.g. \"Kitchen\""),
				schema.Required("temperature", schema.Number, "New temperature in degrees"),
			),
			Handler: func(ctx context.Context, args schema.Args) (string, error) {
				if cfg.Store == nil {
					return "", fmt.Errorf("%w: room store", ErrNotConfigured)
				}
				var p setTemperatureParams
				if err := args.Decode(&p); err != nil {
					return "", err
				}
				change, err := cfg.Store.SetTemperature(ctx, p.RoomName, p.Temperature)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("The temperature in %s has been set from %s to %s degrees.",
					change.Room.Name,
					house.FormatTemperature(change.Previous),
					house.FormatTemperature(change.Room.Temperature),
				), nil
			},
		},
	}
}

// FormatRooms renders one line per room under a heading.
func FormatRooms(rooms []house.Room) string {
	if len(rooms) == 0 {
		return "There are no rooms in the house."
	}
	var b strings.Builder
	b.WriteString("Current room temperatures:")
	for _, r := range rooms {
		fmt.Fprintf(&b, "\n- %s: %s degrees", r.Name, house.FormatTemperature(r.Temperature))
	}
	return b.String()
}
