package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/edgard/starboard/internal/config"
	"github.com/edgard/starboard/internal/database"
	"github.com/edgard/starboard/internal/starboard"
)

// NewRecordsCommand creates the records command group for inspecting and
// removing star records.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and remove star records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every star record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), rootOpts, func(store database.Store) error {
				return listRecords(cmd.Context(), store, cmd.OutOrStdout())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <message_id>",
		Short: "Show the star record for a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), rootOpts, func(store database.Store) error {
				return showRecord(cmd.Context(), store, id, cmd.OutOrStdout())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <message_id>",
		Short: "Delete the star record for a message",
		Long: `Delete the star record for a message. The mirrored starboard post is left
in place; the message will be mirrored again if it reaches the threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), rootOpts, func(store database.Store) error {
				if err := store.DeleteStarRecord(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "star record for message %d deleted\n", id)
				return nil
			})
		},
	})

	return cmd
}

func withStore(ctx context.Context, opts *RootOptions, fn func(database.Store) error) error {
	cfg, err := config.LoadStorage(opts.ConfigPath)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	store := database.NewStore(db, nil)
	if err := store.Ping(ctx); err != nil {
		return err
	}
	return fn(store)
}

func parseMessageID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func listRecords(ctx context.Context, store database.Store, out io.Writer) error {
	records, err := store.ListStarRecords(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no star records")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE\tCHANNEL\tAUTHOR\tSTARS\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
			r.MessageID, r.ChannelID, r.AuthorID, humanize.Comma(int64(r.ReactionCount)), humanize.Time(r.UpdatedAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s records\n", humanize.Comma(int64(len(records))))
	return nil
}

func showRecord(ctx context.Context, store database.Store, id int64, out io.Writer) error {
	r, err := store.GetStarRecord(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("star record for message %d: %w", id, database.ErrNotFound)
	}

	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "message:\t%d\n", r.MessageID)
	fmt.Fprintf(w, "link:\t%s\n", starboard.JumpLink(r.GuildID, r.ChannelID, r.MessageID))
	fmt.Fprintf(w, "author:\t%d\n", r.AuthorID)
	fmt.Fprintf(w, "stars:\t%s\n", humanize.Comma(int64(r.ReactionCount)))
	fmt.Fprintf(w, "star message:\t%s\n", optionalID(r.StarMessageID.Valid, r.StarMessageID.Int64))
	fmt.Fprintf(w, "embed message:\t%s\n", optionalID(r.EmbedMessageID.Valid, r.EmbedMessageID.Int64))
	fmt.Fprintf(w, "created:\t%s (%s)\n", r.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(r.CreatedAt))
	fmt.Fprintf(w, "updated:\t%s (%s)\n", r.UpdatedAt.Format("2006-01-02 15:04:05"), humanize.Time(r.UpdatedAt))
	return w.Flush()
}

func optionalID(valid bool, id int64) string {
	if !valid {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}
