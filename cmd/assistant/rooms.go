package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KakuleMalambo/voice-assistant/internal/log"
	"github.com/KakuleMalambo/voice-assistant/pkg/house"
)

// defaultRooms seeds a fresh document.
var defaultRooms = []house.Room{
	{Name: "Living Room", Temperature: 21},
	{Name: "Kitchen", Temperature: 21},
	{Name: "Bedroom", Temperature: 18},
	{Name: "Bathroom", Temperature: 22},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Inspect or change room temperatures",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every room and its temperature",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log.Component("house"))
		if err != nil {
			return err
		}
		doc, err := store.ReadAll(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, r := range doc.House.Rooms {
			fmt.Fprintf(w, "%s\t%s\n", r.Name, house.FormatTemperature(r.Temperature))
		}
		return w.Flush()
	},
}

var roomsSetCmd = &cobra.Command{
	Use:   "set <room> <temperature>",
	Short: "Set the temperature of one room",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		temp, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("temperature %q is not a number", args[1])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log.Component("house"))
		if err != nil {
			return err
		}
		change, err := store.SetTemperature(cmd.Context(), args[0], temp)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", change.Room.Name,
			house.FormatTemperature(change.Previous), house.FormatTemperature(change.Room.Temperature))
		return nil
	},
}

var roomsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter rooms document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(cfg.Store.Path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfg.Store.Path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		store, err := openStore(cfg, log.Component("house"))
		if err != nil {
			return err
		}
		if err := store.Seed(house.Document{House: house.House{Rooms: defaultRooms}}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rooms to %s\n", len(defaultRooms), cfg.Store.Path)
		return nil
	},
}

func init() {
	roomsInitCmd.Flags().Bool("force", false, "overwrite an existing document")
	roomsCmd.AddCommand(roomsListCmd, roomsSetCmd, roomsInitCmd)
	rootCmd.AddCommand(roomsCmd)
}
