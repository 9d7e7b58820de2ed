package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgellow/ortho-diary/internal/client"
	"github.com/dgellow/ortho-diary/internal/journal"
	"github.com/dgellow/ortho-diary/internal/storage"
)

func newPhotosCmd(o *options) *cobra.Command {
	var (
		starred  bool
		google   bool
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "photos",
		Short: "List diary photos by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone: %w", err)
			}

			mgr, err := o.openSession(cmd.Context(), cmd.ErrOrStderr(), google)
			if err != nil {
				return err
			}
			defer mgr.Close()

			photos, err := client.NewJournalClient(o.server, mgr).ListPhotos(cmd.Context(), starred)
			if err != nil {
				return err
			}
			printDays(cmd.OutOrStdout(), journal.GroupByDate(photos, loc, starred), loc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&starred, "starred", false, "Only starred photos")
	cmd.Flags().BoolVar(&google, "google", false, "Sign in with Google for this command")
	cmd.Flags().StringVar(&timezone, "tz", "Local", "Time zone that decides which day a photo belongs to")

	cmd.AddCommand(
		newStarCmd(o, true),
		newStarCmd(o, false),
		newMemoCmd(o),
		newDeleteCmd(o),
	)
	return cmd
}

func printDays(w io.Writer, days []journal.DayGroup, loc *time.Location) {
	if len(days) == 0 {
		fmt.Fprintln(w, "No photos yet.")
		return
	}
	for i, day := range days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", day.Date, len(day.Photos))
		for _, p := range day.Photos {
			star := " "
			if p.IsStarred {
				star = "★"
			}
			line := fmt.Sprintf("  %s %s %s", p.Timestamp.In(loc).Format("15:04"), star, p.ID)
			if p.Memo != "" {
				line += "  " + p.Memo
			}
			fmt.Fprintln(w, line)
		}
	}
}

func newStarCmd(o *options, star bool) *cobra.Command {
	use, short := "star <id>", "Star a photo"
	if !star {
		use, short = "unstar <id>", "Remove the star from a photo"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.updatePhoto(cmd, args[0], storage.PhotoUpdate{IsStarred: &star})
		},
	}
}

func newMemoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "memo <id> <text>...",
		Short: "Replace the memo of a photo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memo := strings.Join(args[1:], " ")
			return o.updatePhoto(cmd, args[0], storage.PhotoUpdate{Memo: &memo})
		},
	}
}

func newDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := o.openSession(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := client.NewJournalClient(o.server, mgr).DeletePhoto(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (o *options) updatePhoto(cmd *cobra.Command, id string, update storage.PhotoUpdate) error {
	mgr, err := o.openSession(cmd.Context(), cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer mgr.Close()

	photo, err := client.NewJournalClient(o.server, mgr).UpdatePhoto(cmd.Context(), id, update)
	if err != nil {
		return err
	}
	printDays(cmd.OutOrStdout(), []journal.DayGroup{{
		Date:   photo.Timestamp.In(time.Local).Format(time.DateOnly),
		Photos: []storage.Photo{*photo},
	}}, time.Local)
	return nil
}
