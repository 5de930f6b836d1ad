package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/models"
)

var (
	eventsType       string
	eventsEntityType string
	eventsEntityID   string
	eventsLimit      int
	eventsCursor     string
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsType, "type", "", "event type, e.g. playback.revealed")
	eventsCmd.Flags().StringVar(&eventsEntityType, "entity-type", "", "entity type: session or signup")
	eventsCmd.Flags().StringVar(&eventsEntityID, "entity-id", "", "entity ID")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum events")
	eventsCmd.Flags().StringVar(&eventsCursor, "cursor", "", "continue after this event ID")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the playback and signup event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		page, err := db.NewEventRepository(database).Query(ctx, eventQueryFromFlags())
		if err != nil {
			return err
		}

		if IsJSONLOutput() {
			return WriteOutput(os.Stdout, page.Events)
		}
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, page)
		}
		if len(page.Events) == 0 {
			fmt.Println("No events.")
			return nil
		}

		rows := make([][]string, 0, len(page.Events))
		for _, e := range page.Events {
			rows = append(rows, []string{
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				string(e.Type),
				string(e.EntityType),
				e.EntityID,
				truncate(string(e.Payload), 60),
			})
		}
		if err := writeTable(os.Stdout, []string{"TIME", "TYPE", "ENTITY", "ID", "PAYLOAD"}, rows); err != nil {
			return err
		}
		if page.NextCursor != "" {
			fmt.Printf("\nMore: vibealong events --cursor %s\n", page.NextCursor)
		}
		return nil
	},
}

func eventQueryFromFlags() db.EventQuery {
	q := db.EventQuery{Limit: eventsLimit, Cursor: eventsCursor}
	if eventsType != "" {
		t := models.EventType(eventsType)
		q.Type = &t
	}
	if eventsEntityType != "" {
		t := models.EntityType(eventsEntityType)
		q.EntityType = &t
	}
	if eventsEntityID != "" {
		id := eventsEntityID
		q.EntityID = &id
	}
	return q
}
