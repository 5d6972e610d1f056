package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/internal/history"
)

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage saved queries",
	}
	cmd.AddCommand(newFavoritesListCommand())
	cmd.AddCommand(newFavoritesSaveCommand())
	cmd.AddCommand(newFavoritesSearchCommand())
	cmd.AddCommand(newFavoritesRunCommand())
	cmd.AddCommand(newFavoritesDeleteCommand())
	return cmd
}

func newFavoritesSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search saved queries by name, SQL, or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			favorites, err := session.Store.SearchFavorites(ctx, args[0])
			if err != nil {
				return err
			}
			renderFavorites(cmd.OutOrStdout(), favorites)
			return nil
		},
	}
}

func newFavoritesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			favorites, err := session.Store.ListFavorites(ctx)
			if err != nil {
				return err
			}
			renderFavorites(cmd.OutOrStdout(), favorites)
			return nil
		},
	}
}

func newFavoritesSaveCommand() *cobra.Command {
	var (
		description string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:     "save <name> <sql>",
		Aliases: []string{"add"},
		Short:   "Save a query under a name",
		Example: `  glacier favorites save daily-actives "SELECT count(*) FROM events WHERE day = current_date"
  glacier favorites save top-users "SELECT * FROM users ORDER BY score DESC" --tag metrics`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			err = session.Store.SaveFavorite(ctx, history.Favorite{
				Name:        args[0],
				Query:       args[1],
				Description: description,
				Tags:        tags,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the query")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags (repeatable)")
	return cmd
}

func newFavoritesRunCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Execute a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)
			session, err := OpenSession(ctx, cfg, GetLogger(ctx), true)
			if err != nil {
				return err
			}
			defer session.Close()

			favorite, err := session.Store.GetFavorite(ctx, args[0])
			if err != nil {
				return err
			}
			_ = session.Store.TouchFavorite(ctx, args[0])

			result, affected, err := session.Execute(ctx, favorite.Query)
			var denied *DeniedError
			if errors.As(err, &denied) {
				renderDecision(cmd.ErrOrStderr(), denied.Decision)
				return err
			}
			if err != nil {
				return err
			}
			if result == nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "OK (%d rows affected)\n", affected)
				return nil
			}
			return renderResult(cmd.OutOrStdout(), result, format, cfg.Display.NullString, cfg.Display.MaxRows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table|csv|json|markdown)")
	return cmd
}

func newFavoritesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Store.DeleteFavorite(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
			return nil
		},
	}
}
