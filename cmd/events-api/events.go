package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"example.com/golocalevents/internal/domain"
	"example.com/golocalevents/internal/filter"
	"example.com/golocalevents/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// withStore opens and loads the store for a one-shot command.
func (a *app) withStore(ctx context.Context, fn func(*store.Store) error) error {
	st, err := a.openStore(ctx, nil)
	if st != nil {
		defer st.Close()
	}
	if err != nil {
		return err
	}
	return fn(st)
}

func newListCmd(a *app) *cobra.Command {
	var (
		search, typ, location, startDate string
		limit                            int
		asJSON                           bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally searched and filtered",
		Long: `List the events of the collection in insertion order.

Examples:
  events-api list
  events-api list --search music --location springfield
  events-api list --type Workshop --start-date 2025-10-01 --json
  events-api list --limit 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			crit, err := filter.ParseCriteria(search, typ, location, startDate)
			if err != nil {
				return fmt.Errorf("invalid --start-date, expected YYYY-MM-DD: %w", err)
			}
			if limit < 0 {
				return fmt.Errorf("invalid --limit %d: must not be negative", limit)
			}
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				events := filter.Limit(st.Query(crit), limit)
				if asJSON {
					res := a.resolver(cmd.Context())
					for i := range events {
						events[i] = res.Apply(events[i])
					}
					return writeJSON(cmd.OutOrStdout(), events)
				}
				return writeTable(cmd.OutOrStdout(), events)
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match title or description (case-insensitive)")
	cmd.Flags().StringVar(&typ, "type", "", "exact event type, or \"any\"")
	cmd.Flags().StringVar(&location, "location", "", "location substring (case-insensitive)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "only events on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many events, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				ev, err := st.GetByID(args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), a.resolver(cmd.Context()).Apply(ev))
			})
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var d domain.Draft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Long: `Create an event and save the collection.

Example:
  events-api create --title "Picnic" --description "Bring a blanket" --type Meetup \
    --date 2025-10-01 --time 12:00 --city Springfield --address "12 Elm St" --host Marge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				ev, err := st.Create(cmd.Context(), d)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), ev)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Title, "title", "", "event title")
	f.StringVar(&d.Description, "description", "", "what the event is about")
	f.StringVar(&d.Type, "type", "", "event type, e.g. Workshop, Music, Sports, Meetup, Other")
	f.StringVar(&d.Date, "date", "", "date (YYYY-MM-DD)")
	f.StringVar(&d.Time, "time", "", "time of day, display only")
	f.StringVar(&d.City, "city", "", "city")
	f.StringVar(&d.Address, "address", "", "street address")
	f.StringVar(&d.Host, "host", "", "organizer")
	f.StringVar(&d.ImageURL, "image-url", "", "picture URL; picked from the catalog when empty")
	f.IntVar(&d.Capacity, "capacity", 0, "maximum attendees, 0 for unlimited")
	return cmd
}

func newRsvpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rsvp <id>",
		Short: "RSVP to an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				ev, err := st.Rsvp(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "RSVP'd to %q (%d attending)\n", ev.Title, ev.Attendees)
				return err
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, events []domain.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tTITLE\tLOCATION\tATTENDEES")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", ev.ID, ev.Date, ev.Type, ev.Title, ev.Location, ev.Attendees)
	}
	if len(events) == 0 {
		fmt.Fprintln(tw, "no events match")
	}
	return tw.Flush()
}
