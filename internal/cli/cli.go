package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/gridkit/internal/app"
	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/hcl"
	"github.com/specialistvlad/gridkit/internal/web"
	"github.com/specialistvlad/gridkit/internal/yamlconfig"
	"github.com/specialistvlad/gridkit/modules/realtime"
	"github.com/spf13/cobra"
)

// Version is reported by the version command.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Options hold the values of the persistent flags.
type Options struct {
	ConfigPaths []string
	EnvFiles    []string
	LogLevel    string
	LogFormat   string
	Address     string
	WatchConfig bool
}

// AppConfig validates the logging flags and returns the configuration an
// App is created with. extra paths are appended to the --config ones.
func (o *Options) AppConfig(extra ...string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		ConfigPaths: append(append([]string(nil), o.ConfigPaths...), extra...),
		LogFormat:   strings.ToLower(o.LogFormat),
		LogLevel:    strings.ToLower(o.LogLevel),
		WatchConfig: o.WatchConfig,
	})
	if err != nil {
		return nil, usageError("%v", err)
	}
	return cfg, nil
}

// Loader returns a loader for every supported configuration format. It
// must be created after the env files are loaded: HCL files see the process
// environment as it was at that moment.
func Loader() *config.Multi {
	return config.NewMulti().
		Register(hcl.NewLoader(), ".hcl").
		Register(yamlconfig.NewLoader(), ".yaml", ".yml")
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// NewCommand returns the gridkit command tree writing to outW. features is
// called once per command run and returns the features to install.
func NewCommand(outW io.Writer, features func() []feature.Feature) *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "gridkit",
		Short: "A modular application host with dependency injection and ordered service lifecycles",
		Long: `gridkit assembles an application from features, reads HCL or YAML
configuration, builds every component, and starts services in dependency order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFiles(opts.EnvFiles)
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringArrayVarP(&opts.ConfigPaths, "config", "c", nil, "Configuration file or directory (.hcl, .yaml, .yml). Repeatable.")
	flags.StringArrayVar(&opts.EnvFiles, "env-file", nil, "Dotenv file loaded into the environment before configuration is read. Repeatable.")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&opts.LogFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.Address, "address", "", "Listen address of the web application. Overrides the configuration.")

	root.AddCommand(
		newServeCommand(outW, opts, features),
		newCheckCommand(outW, opts, features),
		newPingCommand(outW),
		newVersionCommand(outW),
	)
	return root
}

func newServeCommand(outW io.Writer, opts *Options, features func() []feature.Feature) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [CONFIG_PATH...]",
		Short: "Start every service and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.AppConfig(args...)
			if err != nil {
				return err
			}
			a, err := app.New(outW, cfg, Loader(), features()...)
			if err != nil {
				return err
			}
			if opts.Address != "" {
				address := opts.Address
				a.Override(web.Section, func(target any) error {
					settings, ok := target.(*web.Settings)
					if !ok {
						return fmt.Errorf("unexpected web settings type %T", target)
					}
					settings.Address = address
					return nil
				})
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&opts.WatchConfig, "watch", false, "Reload configuration hooks, such as log levels, when configuration files change.")
	return cmd
}

func newCheckCommand(outW io.Writer, opts *Options, features func() []feature.Feature) *cobra.Command {
	return &cobra.Command{
		Use:   "check [CONFIG_PATH...]",
		Short: "Load the configuration and report its sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.AppConfig(args...)
			if err != nil {
				return err
			}
			if len(cfg.ConfigPaths) == 0 {
				return usageError("no configuration paths given")
			}
			root, err := Loader().Load(cmd.Context(), cfg.ConfigPaths...)
			if err != nil {
				return err
			}

			set := feature.NewSet()
			for _, f := range features() {
				if err := set.Add(f); err != nil {
					return err
				}
			}
			known := make(map[string]bool)
			for _, name := range set.Sections() {
				known[name] = true
			}

			var unused []string
			for _, name := range root.Names() {
				status := "ok"
				if !known[name] {
					status = "unused"
					unused = append(unused, name)
				}
				fmt.Fprintf(outW, "%s\t%s\n", name, status)
			}
			if len(unused) > 0 {
				return &ExitError{Code: 1, Message: "configuration sections not used by any feature: " + strings.Join(unused, ", ")}
			}
			return nil
		},
	}
}

func newPingCommand(outW io.Writer) *cobra.Command {
	var (
		reqOpts realtime.RequestOptions
		data    []string
	)
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Emit an event to a socket.io endpoint and print the reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range data {
				reqOpts.EmitData = append(reqOpts.EmitData, d)
			}
			reply, err := realtime.Request(cmd.Context(), reqOpts)
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(reply)
			if err != nil {
				return fmt.Errorf("encode reply: %w", err)
			}
			fmt.Fprintln(outW, string(encoded))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&reqOpts.URL, "url", "http://127.0.0.1:8080/socket.io/", "URL of the socket.io endpoint.")
	f.StringVar(&reqOpts.Namespace, "namespace", "/", "Namespace to connect to.")
	f.StringVar(&reqOpts.EmitEvent, "event", realtime.EventPing, "Event to emit once connected.")
	f.StringVar(&reqOpts.OnEvent, "await", realtime.EventPong, "Event to wait for.")
	f.StringArrayVar(&data, "data", nil, "Argument sent with the event. Repeatable.")
	f.DurationVar(&reqOpts.Timeout, "timeout", 10*time.Second, "How long to wait for the reply.")
	f.BoolVar(&reqOpts.Polling, "polling", false, "Use HTTP long-polling instead of websocket.")
	f.BoolVar(&reqOpts.InsecureSkipVerify, "insecure", false, "Skip TLS certificate verification.")
	return cmd
}

func newVersionCommand(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gridkit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(outW, "gridkit version %s\n", Version)
		},
	}
}

// Execute runs the command tree with args and maps failures to an
// ExitError. A nil return means the process should exit with status 0.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Cobra reports unknown commands and bad arguments without a flag error.
	if strings.HasPrefix(err.Error(), "unknown command") || strings.Contains(err.Error(), "arg(s)") {
		return usageError("%v", err)
	}
	return &ExitError{Code: 1, Message: err.Error()}
}
