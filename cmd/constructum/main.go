package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
)

// Global flag values.
var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool
	actor      string
	token      string
)

// apiClient carries the full API over HTTP; sched serves the scheduling
// reads over whichever --transport was chosen.
var (
	apiClient client.Client
	sched     client.Scheduler
)

// firstSet returns the first non-empty value, evaluating lazily.
func firstSet(sources ...func() string) string {
	for _, src := range sources {
		if v := src(); v != "" {
			return v
		}
	}
	return ""
}

func env(key string) func() string { return func() string { return os.Getenv(key) } }

func literal(s string) func() string { return func() string { return s } }

func gitUserName() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// connect builds the clients for the chosen transport.
func connect() error {
	hc := client.NewHTTPClient(httpURL, token, actor)
	apiClient = hc
	switch transport {
	case "http":
		sched = hc
	case "grpc":
		gc, err := client.NewGRPCClient(serverAddr, token, actor)
		if err != nil {
			return fmt.Errorf("dial %s: %w", serverAddr, err)
		}
		sched = gc
	default:
		return fmt.Errorf("--transport must be http or grpc, got %q", transport)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "constructum <command>",
	Short:        "Plan and reschedule construction projects",
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return connect()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if sched != nil {
			sched.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&httpURL, "http-url",
		firstSet(env("CONSTRUCTUM_HTTP_URL"), func() string { return activeRemote().URL }, literal("http://localhost:8080")),
		"HTTP base URL of the server")
	pf.StringVar(&serverAddr, "server",
		firstSet(env("CONSTRUCTUM_SERVER"), func() string { return activeRemote().GRPCAddr }, literal("localhost:9090")),
		"gRPC address of the server")
	pf.StringVar(&transport, "transport", "http", "transport for schedule reads: http or grpc")
	pf.StringVar(&token, "token",
		firstSet(env("CONSTRUCTUM_TOKEN"), func() string { return activeRemote().Token }),
		"bearer token")
	pf.StringVar(&actor, "actor",
		firstSet(env("CONSTRUCTUM_ACTOR"), gitUserName, literal("unknown")),
		"name recorded on changes and saved views")
	pf.BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	groups := []struct {
		id, title string
		cmds      []*cobra.Command
	}{
		{"schedule", "Schedule:", []*cobra.Command{projectCmd, taskCmd, moveCmd, depCmd, reorderCmd, todoCmd}},
		{"views", "Views:", []*cobra.Command{ganttCmd, cascadeCmd, violationsCmd, viewCmd, eventsCmd, watchCmd}},
		{"system", "System:", []*cobra.Command{serveCmd, healthCmd, remoteCmd}},
	}
	for _, g := range groups {
		rootCmd.AddGroup(&cobra.Group{ID: g.id, Title: g.title})
		rootCmd.AddCommand(g.cmds...)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
