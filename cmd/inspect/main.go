package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/astromechza/toggle-rooms/pkg/room"
	"github.com/astromechza/toggle-rooms/pkg/session"
	"github.com/astromechza/toggle-rooms/pkg/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	driverVar := flag.String("driver", store.DriverSQLite, "the store driver: sqlite or badger")
	pathVar := flag.String("path", "rooms.sqlite3", "the store path")
	flag.Parse()

	if *driverVar == store.DriverMemory {
		return fmt.Errorf("the memory driver has nothing to inspect")
	}
	s, err := store.Open(*driverVar, *pathVar, slog.Default())
	if err != nil {
		return err
	}
	defer s.Close()

	scanner, ok := s.(store.Scanner)
	if !ok {
		return fmt.Errorf("driver %s cannot be scanned", *driverVar)
	}
	return renderStates(context.Background(), os.Stdout, scanner)
}

// renderStates prints one row per persisted room state. Records that fail to decode are
// listed with the error instead of aborting the scan.
func renderStates(ctx context.Context, w io.Writer, scanner store.Scanner) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Room", "Session", "Toggled", "Created", "Updated", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err := scanner.Scan(ctx, room.StateKey, func(roomID string, value []byte) error {
		var state session.State
		if err := json.Unmarshal(value, &state); err != nil {
			table.Append([]string{roomID, "", "", "", "", "undecodable: " + err.Error()})
			return nil
		}
		detail := ""
		if err := state.Validate(); err != nil {
			detail = "invalid: " + err.Error()
		}
		table.Append([]string{
			roomID,
			state.ID,
			strconv.FormatBool(state.IsToggled),
			formatMillis(state.CreatedAt),
			formatMillis(state.UpdatedAt),
			detail,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan states: %w", err)
	}
	table.Render()
	return nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
