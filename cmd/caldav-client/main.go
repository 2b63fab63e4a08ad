// caldav-client is a command-line driver for the library: one subcommand per
// calendar operation, aimed at smoke-testing servers and scripting simple
// calendar access.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/caldav-client/internal/config"
	"github.com/sonroyaalmerol/caldav-client/internal/credentials"
	"github.com/sonroyaalmerol/caldav-client/internal/logging"
	"github.com/sonroyaalmerol/caldav-client/pkg/caldav"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	cfg     *config.Config

	// identity flags for modify/delete
	uri      string
	etag     string
	location string

	// time window flags
	start string
	end   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "caldav-client",
		Short:         "Talk to CalDAV calendar collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgPath
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cfg.UseKeyring && cfg.Password == "" && cfg.Username != "" {
				if secret, err := credentials.Get(cfg.Username); err == nil && secret != "" {
					cfg.Password = secret
				}
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(
		a.probeCmd(),
		a.optionsCmd(),
		a.displayNameCmd(),
		a.getCmd(),
		a.getallCmd(),
		a.freebusyCmd(),
		a.addCmd(),
		a.modifyCmd(),
		a.deleteCmd(),
		a.sampleCmd(),
		a.authCmd(),
	)
	return root
}

func (a *app) client() *caldav.Client {
	opts := caldav.DefaultOptions()
	opts.VerifyTLS = a.cfg.VerifyTLS
	opts.CustomCA = a.cfg.CustomCA
	opts.UseLocking = a.cfg.UseLocking
	opts.Debug = a.cfg.Debug
	opts.TraceASCII = a.cfg.TraceASCII
	if a.cfg.Debug {
		opts.Logger = logging.NewConsole("debug")
	} else {
		opts.Logger = logging.NewConsole(a.cfg.LogLevel)
	}
	return caldav.New(opts)
}

// url splices the configured credentials into the collection URL; the
// library strips them back out for the transport.
func (a *app) url() (string, error) {
	raw := a.cfg.URL
	if raw == "" {
		return "", fmt.Errorf("no collection URL configured (config file or CALDAV_URL)")
	}
	if a.cfg.Username == "" {
		return raw, nil
	}
	sep := strings.Index(raw, "//")
	if sep < 0 {
		return "", fmt.Errorf("malformed collection URL %q", raw)
	}
	creds := a.cfg.Username
	if a.cfg.Password != "" {
		creds += ":" + a.cfg.Password
	}
	return raw[:sep+2] + creds + "@" + raw[sep+2:], nil
}

func (a *app) window() (time.Time, time.Time, error) {
	const layout = "2006-01-02T15:04:05"
	start, err := time.Parse(layout, a.start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad --start: %w", err)
	}
	end, err := time.Parse(layout, a.end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad --end: %w", err)
	}
	return start, end, nil
}

func (a *app) windowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.start, "start", "", "window start, 2006-01-02T15:04:05 (UTC)")
	cmd.Flags().StringVar(&a.end, "end", "", "window end, 2006-01-02T15:04:05 (UTC)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
}

func (a *app) idFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.uri, "uri", "", "resource URL from a previous add/modify")
	cmd.Flags().StringVar(&a.etag, "etag", "", "entity tag from a previous add/modify")
	cmd.Flags().StringVar(&a.location, "location", "", "Location header from a previous add")
}

// objectID rebuilds the identity from the flags; nil means the lossy
// resolve-by-UID path.
func (a *app) objectID() *caldav.ObjectID {
	switch {
	case a.location != "":
		return caldav.NewLocationID(a.location, a.etag)
	case a.uri != "":
		return caldav.NewETagID(a.uri, a.etag)
	}
	return nil
}

func readPayload(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		return string(data), err
	}
	data, err := io.ReadAll(os.Stdin)
	return string(data), err
}

func printID(id *caldav.ObjectID) {
	if id == nil {
		return
	}
	switch id.Kind {
	case caldav.LocationKind:
		fmt.Printf("location: %s\n", id.Location)
	default:
		fmt.Printf("uri: %s\n", id.URI)
	}
	if id.ETag != "" {
		fmt.Printf("etag: %s\n", id.ETag)
	}
}

func (a *app) probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the URL is a CalDAV collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			ok, err := a.client().Probe(context.Background(), url)
			if ok {
				fmt.Println("CalDAV collection")
				return nil
			}
			return err
		},
	}
}

func (a *app) optionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the HTTP methods the server advertises",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			methods, err := a.client().ServerOptions(context.Background(), url)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(methods, "\n"))
			return nil
		},
	}
}

func (a *app) displayNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displayname",
		Short: "Print the collection's display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			name, err := a.client().DisplayName(context.Background(), url)
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch events in a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			start, end, err := a.window()
			if err != nil {
				return err
			}
			text, err := a.client().GetRange(context.Background(), start, end, url)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
	a.windowFlags(cmd)
	return cmd
}

func (a *app) getallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "getall",
		Short: "Fetch every event in the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			text, err := a.client().GetAll(context.Background(), url)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
}

func (a *app) freebusyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freebusy",
		Short: "Fetch free/busy information for a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			start, end, err := a.window()
			if err != nil {
				return err
			}
			text, err := a.client().FreeBusy(context.Background(), start, end, url)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
	a.windowFlags(cmd)
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [file]",
		Short: "Store a new event (reads stdin without a file argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			payload, err := readPayload(args)
			if err != nil {
				return err
			}
			status, id, err := a.client().Add(context.Background(), payload, url)
			if err != nil {
				return fmt.Errorf("%s: %w", status, err)
			}
			printID(id)
			return nil
		},
	}
}

func (a *app) modifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modify [file]",
		Short: "Overwrite an event, conditional on its entity tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			payload, err := readPayload(args)
			if err != nil {
				return err
			}
			status, id, err := a.client().Modify(context.Background(), a.objectID(), payload, url)
			if err != nil {
				return fmt.Errorf("%s: %w", status, err)
			}
			printID(id)
			return nil
		},
	}
	a.idFlags(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [file]",
		Short: "Delete an event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.url()
			if err != nil {
				return err
			}
			var payload string
			if a.objectID() == nil {
				if payload, err = readPayload(args); err != nil {
					return err
				}
			}
			status, err := a.client().Delete(context.Background(), a.objectID(), payload, url)
			if err != nil {
				return fmt.Errorf("%s: %w", status, err)
			}
			return nil
		},
	}
	a.idFlags(cmd)
	return cmd
}

func (a *app) sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Emit a ready-to-add demo event",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			start := now.Add(time.Hour).Format("20060102T150405Z")
			end := now.Add(2 * time.Hour).Format("20060102T150405Z")
			stamp := now.Format("20060102T150405Z")
			lines := []string{
				"BEGIN:VCALENDAR",
				"PRODID:-//CalDAV Calendar//NONSGML caldav-client//EN",
				"VERSION:2.0",
				"BEGIN:VEVENT",
				"UID:" + uuid.NewString(),
				"DTSTAMP:" + stamp,
				"DTSTART:" + start,
				"DTEND:" + end,
				"SUMMARY:caldav-client smoke test",
				"END:VEVENT",
				"END:VCALENDAR",
			}
			fmt.Print(strings.Join(lines, "\r\n") + "\r\n")
			return nil
		},
	}
}

func (a *app) authCmd() *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage the keyring-stored password",
	}
	auth.AddCommand(&cobra.Command{
		Use:   "set <username> <password>",
		Short: "Store a password in the OS keyring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentials.Set(args[0], args[1])
		},
	})
	auth.AddCommand(&cobra.Command{
		Use:   "delete <username>",
		Short: "Remove a password from the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentials.Delete(args[0])
		},
	})
	return auth
}
