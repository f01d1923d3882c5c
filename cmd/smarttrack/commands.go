package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smarttrack/internal/admin"
	"smarttrack/internal/attendance"
	"smarttrack/internal/config"
	"smarttrack/internal/deviceid"
	"smarttrack/internal/logger"
	"smarttrack/internal/model"
	"smarttrack/internal/netprobe"
	"smarttrack/internal/qrtoken"
)

func deviceIDCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "device-id",
		Short: "Print this profile's device id, creating it on first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				d, err := deviceid.DefaultDir()
				if err != nil {
					return err
				}
				dir = d
			}
			id, err := deviceid.LoadOrCreate(dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Profile directory (default ~/.smarttrack)")
	return cmd
}

func networkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "Print the network fingerprint a network-locked session would see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			var probe netprobe.Probe = netprobe.NewHTTPProbe(cfg.NetworkProbeURL, cfg.NetworkFallback,
				logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel))
			fmt.Fprintln(cmd.OutOrStdout(), probe.Fingerprint(cmd.Context()))
			return nil
		},
	}
}

func qrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Encode and decode attendance QR tokens",
	}

	var (
		out  string
		size int
	)
	encode := &cobra.Command{
		Use:   "encode <payload>",
		Short: "Render a payload as a QR PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := qrtoken.DefaultOptions()
			if size > 0 {
				opts.Size = size
			}
			png, err := qrtoken.Encode(args[0], opts)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(png)
				return err
			}
			return os.WriteFile(out, png, 0o644)
		},
	}
	encode.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	encode.Flags().IntVar(&size, "size", 0, "Image size in pixels")

	decode := &cobra.Command{
		Use:   "decode <image>",
		Short: "Read the token out of a PNG or JPEG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			payload, err := qrtoken.DecodeReader(f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}

func usersCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer registered users",
	}

	var query, role, binding string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := admin.Filter{Query: query}
			var err error
			if f.Binding, err = admin.ParseBinding(binding); err != nil {
				return err
			}
			if role != "" {
				if f.Role, err = model.ParseRole(role); err != nil {
					return err
				}
			}
			st, closer, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			users, err := admin.NewRegistry(st, nil, nil).List(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tREF\tDEVICE")
			for _, u := range users {
				ref := u.AdmissionNumber()
				if ref == "" {
					ref = u.StaffID()
				}
				device := "-"
				if u.Bound() {
					device = "linked"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.Role, ref, device)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "Substring of name, email, admission number or staff id")
	list.Flags().StringVar(&role, "role", "", "STUDENT or STAFF")
	list.Flags().StringVar(&binding, "binding", "all", "all, linked or unlinked")

	unbind := &cobra.Command{
		Use:   "unbind <id>...",
		Short: "Clear device bindings so the next login binds again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closer, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			n, err := admin.NewRegistry(st, nil, nil).BulkUnbind(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unbound %d of %d\n", n, len(args))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete users; their attendance records are kept",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closer, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			n, err := admin.NewRegistry(st, nil, nil).BulkDelete(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d\n", n, len(args))
			return nil
		},
	}

	cmd.AddCommand(list, unbind, del)
	return cmd
}

func reportCmd(open opener) *cobra.Command {
	var format, out, tz string
	cmd := &cobra.Command{
		Use:   "report <periodID>",
		Short: "Export a period's check-ins as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q", format)
			}
			loc := time.UTC
			if tz != "" {
				var err error
				if loc, err = time.LoadLocation(tz); err != nil {
					return err
				}
			} else {
				loc = config.Load().Location()
			}

			st, closer, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			rep, err := attendance.NewReporter(st, attendance.WithLocation(loc)).Build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				if out == "." {
					out = rep.FileName() + "." + format
				}
				f, err := os.Create(filepath.Clean(out))
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if format == "xlsx" {
				return rep.WriteXLSX(w)
			}
			return rep.WriteCSV(w)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file; "." uses the suggested name (default stdout)`)
	cmd.Flags().StringVar(&tz, "tz", "", "Time zone for check-in times (default TIMEZONE)")
	return cmd
}
