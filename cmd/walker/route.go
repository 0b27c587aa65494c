package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gigaz-dev/walker/internal/route"
	"github.com/gigaz-dev/walker/internal/route/store"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Manage stored waypoint routes",
}

var routeImportCmd = &cobra.Command{
	Use:   "import <name> <file.json>",
	Short: "Validate a route file and save it in the route store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRouteFile(args[1])
		if err != nil {
			return err
		}
		db, err := store.Open(routeStorePath())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SaveRoute(cmd.Context(), args[0], r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved route %s with %d waypoints\n", args[0], len(r))
		return nil
	},
}

var routeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := store.Open(routeStorePath())
		if err != nil {
			return err
		}
		defer db.Close()

		infos, err := db.ListRoutes(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tWAYPOINTS\tUPDATED")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%d\t%s\n", info.Name, info.Legs, info.UpdatedAt.Format(time.DateTime))
		}
		return w.Flush()
	},
}

var routeShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored route as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(routeStorePath())
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.LoadRoute(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := route.Encode(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

var routeCheckCmd = &cobra.Command{
	Use:   "check <file.json>",
	Short: "Validate a route file without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRouteFile(args[0])
		if err != nil {
			return err
		}
		for i, leg := range r {
			label := leg.Label
			if label == "" {
				label = fmt.Sprintf("waypoint %d", i+1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s %s\n", i+1, label, leg.Goal)
		}
		return nil
	},
}

func init() {
	routeCmd.AddCommand(routeImportCmd, routeListCmd, routeShowCmd, routeCheckCmd)
}

func readRouteFile(path string) (route.Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := route.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
