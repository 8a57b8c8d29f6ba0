package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	allowedOrigins string
	adminUser      string
	adminPass      string
	answerMode     string
	bind           string
	groups         int
	hubRole        string
	port           int
	prefix         string
	profile        bool
	submitterRole  string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.groups < 1 || c.groups > MaxGroups {
		return fmt.Errorf("invalid group count (must be between 1-%d inclusive): %d", MaxGroups, c.groups)
	}
	if !validRole(Role(c.hubRole)) {
		return fmt.Errorf("invalid hub role (must be one of %s): %q", roleAlphabet(), c.hubRole)
	}
	if !validRole(Role(c.submitterRole)) {
		return fmt.Errorf("invalid submitter role (must be one of %s): %q", roleAlphabet(), c.submitterRole)
	}
	if c.answerMode != answerModeTrust && c.answerMode != answerModeValidate {
		return fmt.Errorf("invalid answer mode (must be %q or %q): %q", answerModeTrust, answerModeValidate, c.answerMode)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SIGNALBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "signalbox",
		Short:         "A cooperative signaling game, where groups talk through a hub role to find the shared symbol.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.adminUser, "admin-user", "admin", "username for the group admin (env: SIGNALBOX_ADMIN_USER)")
	fs.StringVar(&cfg.adminPass, "admin-pass", "", "password for the group admin; empty disables admin login (env: SIGNALBOX_ADMIN_PASS)")
	fs.StringVar(&cfg.allowedOrigins, "allowed-origins", "", "comma-separated origins allowed to open websockets, or * for any (env: SIGNALBOX_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.answerMode, "answer-mode", answerModeTrust, "answer policy, either trust or validate (env: SIGNALBOX_ANSWER_MODE)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SIGNALBOX_BIND)")
	fs.IntVarP(&cfg.groups, "groups", "g", 1, "initial number of groups (env: SIGNALBOX_GROUPS)")
	fs.StringVar(&cfg.hubRole, "hub-role", "C", "role allowed to message every other role (env: SIGNALBOX_HUB_ROLE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SIGNALBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SIGNALBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SIGNALBOX_PROFILE)")
	fs.StringVar(&cfg.submitterRole, "submitter-role", "C", "role allowed to submit the group answer (env: SIGNALBOX_SUBMITTER_ROLE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SIGNALBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SIGNALBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SIGNALBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SIGNALBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("signalbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
