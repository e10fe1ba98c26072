package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/msgpo/kalliope-app/internal/audit"
	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/synapse"
)

// signalCLI names the signal built from --param flags.
const signalCLI = "cli"

// newRootCmd builds the command tree. Each invocation gets fresh flag
// state, so tests can execute it repeatedly.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "kalliope",
		Short:         "Client and relay for a Kalliope assistant",
		Long:          "kalliope lists and starts synapses on a Kalliope server and arms geofences for its geolocation synapses.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default $KALLIOPE_CONFIG or "+defaultConfigPath+")")

	setup := func() (*app, error) {
		return newApp(configPath)
	}

	root.AddCommand(
		newSynapsesCmd(setup),
		newOrderCmd(setup),
		newGeofenceCmd(setup),
		newHistoryCmd(setup),
		newMigrateCmd(setup),
		newServeCmd(setup),
		newVersionCmd(),
	)
	return root
}

// setupFunc loads the app for a subcommand. The caller closes it.
type setupFunc func() (*app, error)

func newSynapsesCmd(setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synapses",
		Short: "List and start synapses",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List the synapses configured on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			synapses, err := a.client(cmd.Context()).GetSynapses(cmd.Context(), a.cfg.Settings())
			if err != nil {
				return err
			}
			if asJSON {
				data, err := synapse.EncodeSynapses(synapses)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return printSynapses(cmd.OutOrStdout(), synapses)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print the list in the server's JSON shape")

	var (
		params []string
		mute   bool
	)
	run := &cobra.Command{
		Use:   "run NAME",
		Short: "Start a synapse by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return err
			}
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			settings := a.cfg.Settings()
			if cmd.Flags().Changed("mute") {
				settings.Mute = mute
			}
			var signal synapse.Signal
			if len(values) > 0 {
				signal = synapse.NewGenericSignal(signalCLI, values)
			}

			resp, err := a.client(cmd.Context()).RunSynapseByName(cmd.Context(), args[0], settings, signal)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	run.Flags().StringArrayVarP(&params, "param", "p", nil, "parameter as key=value (repeatable)")
	run.Flags().BoolVar(&mute, "mute", false, "ask the server not to speak")

	cmd.AddCommand(list, run)
	return cmd
}

func newOrderCmd(setup setupFunc) *cobra.Command {
	var mute bool
	cmd := &cobra.Command{
		Use:   "order TEXT...",
		Short: "Send a spoken-style order to the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			settings := a.cfg.Settings()
			if cmd.Flags().Changed("mute") {
				settings.Mute = mute
			}
			resp, err := a.client(cmd.Context()).RunOrder(cmd.Context(), strings.Join(args, " "), settings)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().BoolVar(&mute, "mute", false, "ask the server not to speak")
	return cmd
}

func newGeofenceCmd(setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geofence",
		Short: "Arm and inspect geofences for geolocation synapses",
	}

	arm := &cobra.Command{
		Use:   "arm",
		Short: "Register a fence for every geolocation synapse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			synapses, err := a.client(cmd.Context()).GetSynapses(cmd.Context(), a.cfg.Settings())
			if err != nil {
				return err
			}
			platform, err := a.platform(cmd.Context())
			if err != nil {
				return err
			}
			bridge := geofence.NewBridge(platform)
			bridge.SetLogger(a.log.With("component", "geofence"))

			result, err := bridge.SetGeofence(cmd.Context(), synapses)
			if err != nil {
				return err
			}
			return printArmResult(cmd.OutOrStdout(), result)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List fences kept in the local registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			fences, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printFences(cmd.OutOrStdout(), fences)
		},
	}

	cmd.AddCommand(arm, list)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "kalliope %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}

// parseParams turns key=value flags into a parameter map.
func parseParams(raw []string) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", synapse.ErrInvalidParam, kv)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %q", synapse.ErrInvalidParam, key)
		}
		values[key] = value
	}
	return values, nil
}

func printSynapses(w io.Writer, synapses []synapse.Synapse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIGNAL\tDETAIL")
	for _, s := range synapses {
		kind, detail := describeSignal(s.Signal)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, kind, detail)
	}
	return tw.Flush()
}

func describeSignal(sig synapse.Signal) (kind, detail string) {
	switch sig := sig.(type) {
	case synapse.OrderSignal:
		return string(synapse.KindOrder), fmt.Sprintf("%q", sig.Text)
	case synapse.Geolocation:
		return string(synapse.KindGeolocation), fmt.Sprintf("%.6f,%.6f r=%gm", sig.Latitude, sig.Longitude, sig.Radius)
	case synapse.GenericSignal:
		parts := make([]string, 0, len(sig.Parameters))
		for _, p := range sig.Parameters {
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Value))
		}
		return sig.Name, strings.Join(parts, " ")
	case nil:
		return "-", ""
	}
	return "-", ""
}

func printResponse(w io.Writer, resp synapse.OrderResponse) error {
	status := resp.Status
	if status == "" {
		status = "unknown"
	}
	if _, err := fmt.Fprintf(w, "status: %s\n", status); err != nil {
		return err
	}
	for _, m := range resp.MatchedSynapses {
		if _, err := fmt.Fprintf(w, "synapse: %s\n", m.SynapseName); err != nil {
			return err
		}
	}
	for _, msg := range resp.Messages() {
		if _, err := fmt.Fprintf(w, "  %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}

func printArmResult(w io.Writer, result geofence.Result) error {
	for _, id := range result.Registered {
		fmt.Fprintf(w, "armed   %s\n", id)
	}
	for _, f := range result.Failed {
		fmt.Fprintf(w, "failed  %s: %v\n", f.ID, f.Err)
	}
	_, err := fmt.Fprintf(w, "%d armed, %d failed\n", len(result.Registered), len(result.Failed))
	return err
}

func printFences(w io.Writer, fences []geofence.StoredFence) error {
	sort.Slice(fences, func(i, j int) bool { return fences[i].ID < fences[j].ID })
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLATITUDE\tLONGITUDE\tRADIUS\tLAST EVENT")
	for _, f := range fences {
		last := "-"
		if f.LastEvent != "" && f.LastEventAt != nil {
			last = fmt.Sprintf("%s %s", f.LastEvent, f.LastEventAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%g\t%s\n", f.ID, f.Latitude, f.Longitude, f.Radius, last)
	}
	return tw.Flush()
}

func newHistoryCmd(setup setupFunc) *cobra.Command {
	var filter audit.Filter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent synapse runs and geofence transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			result, err := audit.NewSQLiteRepository(db.DB).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&filter.Subject, "synapse", "", "only entries for this synapse")
	cmd.Flags().StringVar(&filter.Action, "action", "", "only run or transition entries")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "number of entries")
	return cmd
}

func printHistory(w io.Writer, result *audit.ListResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tSUBJECT\tSOURCE\tSTATUS\tDURATION")
	for _, e := range result.Entries {
		status := e.Status
		if e.Error != "" {
			status += ": " + e.Error
		}
		duration := "-"
		if e.DurationMS > 0 {
			duration = fmt.Sprintf("%.0fms", e.DurationMS)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Action, e.Subject, e.Source, status, duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d entries\n", len(result.Entries), result.Total)
	return err
}
