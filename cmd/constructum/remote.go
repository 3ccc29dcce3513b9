package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// RemotesConfig is the on-disk remotes.toml.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote describes one constructum server.
type Remote struct {
	URL         string `toml:"url"`
	GRPCAddr    string `toml:"grpc_addr,omitempty"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func (c *RemotesConfig) lookup(name string) (Remote, error) {
	r, ok := c.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return r, nil
}

func (c *RemotesConfig) names() []string {
	return slices.Sorted(maps.Keys(c.Remotes))
}

// remoteConfigPath honors XDG_STATE_HOME and falls back to ~/.local/state.
func remoteConfigPath() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "constructum")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	cfg := RemotesConfig{}
	path, err := remoteConfigPath()
	if err != nil {
		return cfg, err
	}
	_, err = toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return RemotesConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]Remote)
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// editRemotes loads remotes.toml, applies fn and saves the result. The
// message fn returns is printed on success.
func editRemotes(out io.Writer, fn func(*RemotesConfig) (string, error)) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	msg, err := fn(&cfg)
	if err != nil {
		return err
	}
	if err := saveRemotesConfig(cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}

// activeRemote is read once per process; a missing or broken file yields
// the zero Remote.
var activeRemote = sync.OnceValue(func() Remote {
	cfg, err := loadRemotesConfig()
	if err != nil || cfg.Active == "" {
		return Remote{}
	}
	return cfg.Remotes[cfg.Active]
})

// maskToken shows the first eight characters of tok. With an empty fill
// the rest becomes "..."; otherwise each hidden character becomes fill.
func maskToken(tok, fill string) string {
	const visible = 8
	if len(tok) <= visible {
		return tok
	}
	hidden := "..."
	if fill != "" {
		hidden = strings.Repeat(fill, len(tok)-visible)
	}
	return tok[:visible] + hidden
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named server remotes",
	GroupID: "system",
	// No client is needed to edit remotes.toml.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <http-url>",
	Short: "Add or replace a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		r := Remote{URL: args[1]}
		r.GRPCAddr, _ = flags.GetString("grpc")
		r.Token, _ = flags.GetString("token")
		r.NATSURL, _ = flags.GetString("nats")
		r.Description, _ = flags.GetString("description")
		return editRemotes(cmd.OutOrStdout(), func(cfg *RemotesConfig) (string, error) {
			cfg.Remotes[args[0]] = r
			return fmt.Sprintf("remote %q -> %s", args[0], r.URL), nil
		})
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return editRemotes(cmd.OutOrStdout(), func(cfg *RemotesConfig) (string, error) {
			if _, err := cfg.lookup(name); err != nil {
				return "", err
			}
			delete(cfg.Remotes, name)
			if cfg.Active == name {
				cfg.Active = ""
			}
			return fmt.Sprintf("remote %q removed", name), nil
		})
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Select the active remote; without a name, clear it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRemotes(cmd.OutOrStdout(), func(cfg *RemotesConfig) (string, error) {
			if len(args) == 0 {
				cfg.Active = ""
				return "no active remote", nil
			}
			if _, err := cfg.lookup(args[0]); err != nil {
				return "", err
			}
			cfg.Active = args[0]
			return fmt.Sprintf("using remote %q", args[0]), nil
		})
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List remotes, marking the active one",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(cfg.Remotes) == 0 {
			fmt.Fprintln(out, "no remotes configured")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tTOKEN\tDESCRIPTION")
		for _, name := range cfg.names() {
			r := cfg.Remotes[name]
			mark := " "
			if name == cfg.Active {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", mark, name, r.URL, maskToken(r.Token, ""), r.Description)
		}
		return w.Flush()
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one remote, the active one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		name := cfg.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return errors.New("no active remote; name one or run 'constructum remote use <name>'")
		}
		r, err := cfg.lookup(name)
		if err != nil {
			return err
		}
		if name == cfg.Active {
			name += " (active)"
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, row := range [][2]string{
			{"name", name},
			{"description", r.Description},
			{"url", r.URL},
			{"grpc_addr", r.GRPCAddr},
			{"token", maskToken(r.Token, "*")},
			{"nats_url", r.NATSURL},
		} {
			if row[1] != "" {
				fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
			}
		}
		return w.Flush()
	},
}

func init() {
	f := remoteAddCmd.Flags()
	f.String("grpc", "", "gRPC address used with --transport grpc")
	f.String("token", "", "bearer token sent with every request")
	f.String("nats", "", "NATS URL used by watch")
	f.String("description", "", "free-form note shown by list and show")

	remoteCmd.AddCommand(remoteAddCmd, remoteUseCmd, remoteListCmd, remoteShowCmd, remoteRemoveCmd)
}
