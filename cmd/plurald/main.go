package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"plurald/internal/api"
	"plurald/internal/app"
	"plurald/internal/config"
	"plurald/internal/model"
	"plurald/internal/proxy"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Proxy", "Switch").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts for a passphrase without echoing it. When confirm
// is true the passphrase is entered twice and must match.
func readPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if string(first) != string(second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}

	return string(first), nil
}

var rootCmd = &cobra.Command{
	Use:   "plurald",
	Short: "Message proxy and front tracker for plural systems",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return fmt.Errorf("--user is required (your platform user id)")
		}

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(userID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", cfg.UserID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Store:    %s\n", cfg.Store.Type)
		fmt.Printf("Webhook:  %s\n", cfg.Webhook.Type)
		fmt.Printf("Cache:    %s\n", cfg.Cache.Type)
		fmt.Printf("Media:    %s\n", cfg.Media.Type)
		return nil
	},
}

// system command
var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Manage your system",
}

var systemCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CreateSystem")
		if err != nil {
			return err
		}
		defer a.Close()

		sys, err := a.CreateSystem(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Created system %q (%s)\n", sys.Name, sys.ID)
		return nil
	},
}

var systemShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View your system",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowSystem")
		if err != nil {
			return err
		}
		defer a.Close()

		sys, err := a.ShowSystem()
		if err != nil {
			return err
		}

		fmt.Printf("Name:      %s\n", sys.Name)
		fmt.Printf("ID:        %s\n", sys.ID)
		fmt.Printf("Autoproxy: %s\n", sys.Proxy.Style)
		fmt.Printf("Layout:    %s\n", sys.Proxy.Layout)
		return nil
	},
}

var systemDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete your system and all its data",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")

		a, err := newApp("DeleteSystem")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteSystem(confirm); err != nil {
			return err
		}

		fmt.Println("System deleted.")
		return nil
	},
}

// member command
var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage system members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		tags, _ := cmd.Flags().GetStringArray("tag")

		a, err := newApp("AddMember")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.AddMember(kind, args[0], tags)
		if err != nil {
			return err
		}

		fmt.Printf("Added %s %q (%s)\n", p.Kind, p.Name, p.ID)
		return nil
	},
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListMembers")
		if err != nil {
			return err
		}
		defer a.Close()

		personas, err := a.ListMembers()
		if err != nil {
			return err
		}

		if len(personas) == 0 {
			fmt.Println("No members registered.")
			return nil
		}

		for _, p := range personas {
			patterns := make([]string, 0, len(p.Tags))
			for _, t := range p.Tags {
				patterns = append(patterns, t.String())
			}
			fmt.Printf("%-6s %-20s %s\n", p.Kind, p.Name, strings.Join(patterns, ", "))
		}
		return nil
	},
}

var memberUpdateCmd = &cobra.Command{
	Use:   "update NAME",
	Short: "Update a member's profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd proxy.PersonaUpdate
		flagString := func(name string, dst **string) {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				*dst = &v
			}
		}
		flagString("display-name", &upd.DisplayName)
		flagString("pronouns", &upd.Pronouns)
		flagString("caution", &upd.Caution)
		flagString("color", &upd.Color)
		if cmd.Flags().Changed("tag") {
			tags, _ := cmd.Flags().GetStringArray("tag")
			upd.Tags = &tags
		}
		if upd.DisplayName == nil && upd.Pronouns == nil && upd.Caution == nil &&
			upd.Color == nil && upd.Tags == nil {
			return fmt.Errorf("nothing to update; pass at least one flag")
		}

		a, err := newApp("UpdateMember")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.UpdateMember(args[0], upd)
		if err != nil {
			return err
		}

		fmt.Printf("Updated %q (shown as %q)\n", p.Name, p.Shown())
		return nil
	},
}

var memberAvatarCmd = &cobra.Command{
	Use:   "set-avatar NAME FILE",
	Short: "Upload a member's avatar image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetMemberAvatar")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.SetMemberAvatar(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Avatar for %q set to %s\n", args[0], url)
		return nil
	},
}

var memberRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveMember")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveMember(args[0]); err != nil {
			return err
		}

		fmt.Printf("Removed %q\n", args[0])
		return nil
	},
}

// proxy command
var proxyCmd = &cobra.Command{
	Use:   "proxy CHANNEL TEXT",
	Short: "Run a message through tag matching and autoproxy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		guild, _ := cmd.Flags().GetString("guild")

		a, err := newApp("Proxy")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Proxy(cmd.Context(), guild, args[0], args[1])
		if err != nil {
			return err
		}

		if !res.Proxied {
			fmt.Println("Not proxied (no tag match, autoproxy off or escaped).")
			return nil
		}

		fmt.Printf("Proxied as %s: %s\n", res.DisplayName, res.Content)
		fmt.Printf("Message ID: %s\n", res.ExternalID)
		return nil
	},
}

// switch command
var switchCmd = &cobra.Command{
	Use:   "switch NAME...",
	Short: "Record a front switch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Switch")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Switch(args)
		if err != nil {
			return err
		}

		printSwitchResult(res.Unknown, len(res.Opened), len(res.Closed))
		return nil
	},
}

var switchOutCmd = &cobra.Command{
	Use:   "out",
	Short: "Close the front entirely",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SwitchOut")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.SwitchOut()
		if err != nil {
			return err
		}

		fmt.Printf("Closed %d shift(s).\n", len(res.Closed))
		return nil
	},
}

var switchToggleCmd = &cobra.Command{
	Use:     "toggle NAME...",
	Aliases: []string{"copy"},
	Short:   "Flip front membership per member",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Toggle")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Toggle(args)
		if err != nil {
			return err
		}

		printSwitchResult(res.Unknown, len(res.Opened), len(res.Closed))
		return nil
	},
}

func printSwitchResult(unknown []string, opened, closed int) {
	fmt.Printf("Opened %d shift(s), closed %d.\n", opened, closed)
	if len(unknown) > 0 {
		fmt.Printf("Unknown member(s): %s\n", strings.Join(unknown, ", "))
	}
}

// front command
var frontCmd = &cobra.Command{
	Use:   "front",
	Short: "View and adjust the current front",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Fronters")
		if err != nil {
			return err
		}
		defer a.Close()

		fronters, err := a.Fronters()
		if err != nil {
			return err
		}

		if len(fronters) == 0 {
			fmt.Println("Nobody is fronting.")
			return nil
		}

		for _, f := range fronters {
			name := "Unknown"
			if f.Persona != nil {
				name = f.Persona.Name
			}
			fmt.Printf("%-20s since %s\n", name, f.Shift.StartTime.Format("2006-01-02 15:04:05"))
			for _, st := range f.Shift.Statuses {
				if st.EndTime == nil {
					fmt.Printf("  status: %s\n", st.Text)
				}
			}
		}
		return nil
	},
}

var frontAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a member to the front",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddFronter")
		if err != nil {
			return err
		}
		defer a.Close()

		sh, err := a.AddFronter(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s is now fronting (since %s).\n", args[0], sh.StartTime.Format("15:04:05"))
		return nil
	},
}

var frontRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a member from the front",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveFronter")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveFronter(args[0]); err != nil {
			return err
		}

		fmt.Printf("%s is no longer fronting.\n", args[0])
		return nil
	},
}

var frontStatusCmd = &cobra.Command{
	Use:   "status NAME TEXT",
	Short: "Attach a status note to a fronting member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hidden, _ := cmd.Flags().GetBool("hidden")

		a, err := newApp("SetStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.SetStatus(args[0], args[1], !hidden); err != nil {
			return err
		}

		fmt.Printf("Status set for %s.\n", args[0])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View switch history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		shifts, err := a.History()
		if err != nil {
			return err
		}

		if len(shifts) == 0 {
			fmt.Println("No switch history.")
			return nil
		}

		for _, sh := range shifts {
			end := "now"
			if sh.EndTime != nil {
				end = sh.EndTime.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-30s %s - %s\n",
				sh.Persona.Key(),
				sh.StartTime.Format("2006-01-02 15:04:05"),
				end,
			)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete {latest|all}",
	Short: "Delete switch history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")

		a, err := newApp("DeleteHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		switch args[0] {
		case "latest":
			err = a.DeleteLatestHistory(confirm)
		case "all":
			err = a.DeleteAllHistory(confirm)
		default:
			return fmt.Errorf("scope must be latest or all")
		}
		if err != nil {
			return err
		}

		fmt.Println("History deleted.")
		return nil
	},
}

// autoproxy command
var autoproxyCmd = &cobra.Command{
	Use:   "autoproxy STYLE",
	Short: "Set autoproxy style (off, front, latch, or a member name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetAutoproxy")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetAutoproxy(args[0]); err != nil {
			return err
		}

		fmt.Printf("Autoproxy set to %s.\n", args[0])
		return nil
	},
}

// layout command
var layoutCmd = &cobra.Command{
	Use:   "layout TEMPLATE",
	Short: "Set the display name layout (e.g. \"{name} | {sys-name}\")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetLayout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetLayout(args[0]); err != nil {
			return err
		}

		fmt.Println("Layout updated.")
		return nil
	},
}

// guild command
var guildCmd = &cobra.Command{
	Use:   "guild",
	Short: "View and adjust per-guild proxy settings",
}

var guildShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "View a guild's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowGuild")
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.GuildSettings(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Guild:       %s\n", g.ID)
		fmt.Printf("Proxying:    %v\n", g.ProxyEnabled)
		fmt.Printf("Log channel: %s\n", g.LogChannelID)
		return nil
	},
}

var guildSetCmd = &cobra.Command{
	Use:   "set ID",
	Short: "Update a guild's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		disable, _ := cmd.Flags().GetBool("disable-proxy")
		logChannel, _ := cmd.Flags().GetString("log-channel")

		a, err := newApp("SetGuild")
		if err != nil {
			return err
		}
		defer a.Close()

		g := &model.Guild{ID: args[0], ProxyEnabled: !disable, LogChannelID: logChannel}
		if err := a.SetGuildSettings(g); err != nil {
			return err
		}

		fmt.Printf("Updated guild %s.\n", args[0])
		return nil
	},
}

// msg command
var msgCmd = &cobra.Command{
	Use:   "msg",
	Short: "Edit, delete or re-attribute proxied messages",
}

var msgEditCmd = &cobra.Command{
	Use:   "edit CONTENT",
	Short: "Edit a proxied message (latest in channel unless --id)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		id, _ := cmd.Flags().GetString("id")

		a, err := newApp("EditMessage")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.EditMessage(cmd.Context(), channel, id, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Edited message %s.\n", rec.ExternalID)
		return nil
	},
}

var msgDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a proxied message (latest in channel unless --id)",
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		id, _ := cmd.Flags().GetString("id")

		a, err := newApp("DeleteMessage")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteMessage(cmd.Context(), channel, id); err != nil {
			return err
		}

		fmt.Println("Message deleted.")
		return nil
	},
}

var msgReproxyCmd = &cobra.Command{
	Use:   "reproxy NAME",
	Short: "Re-attribute a recent message to another member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		id, _ := cmd.Flags().GetString("id")

		a, err := newApp("Reproxy")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Reproxy(cmd.Context(), channel, id, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Message %s now attributed to %s.\n", rec.ExternalID, args[0])
		return nil
	},
}

var msgShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Look up who sent a proxied message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("LookupMessage")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, persona, err := a.LookupMessage(args[0])
		if err != nil {
			return err
		}

		name := "Unknown"
		if persona != nil {
			name = persona.Name
		}
		fmt.Printf("Persona:  %s\n", name)
		fmt.Printf("Author:   %s\n", rec.AuthorUserID)
		fmt.Printf("Channel:  %s\n", rec.ChannelID)
		fmt.Printf("Sent:     %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export your system to an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		passphrase := ""
		if encrypt {
			var err error
			passphrase, err = readPassphrase(true)
			if err != nil {
				return err
			}
		}

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating archive file: %w", err)
		}
		defer f.Close()

		if err := a.Export(f, passphrase); err != nil {
			return err
		}

		fmt.Printf("Exported to %s\n", args[0])
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Restore a system from an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypted, _ := cmd.Flags().GetBool("encrypted")

		passphrase := ""
		if encrypted {
			var err error
			passphrase, err = readPassphrase(false)
			if err != nil {
				return err
			}
		}

		a, err := newApp("Import")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening archive file: %w", err)
		}
		defer f.Close()

		sys, err := a.Import(f, passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("Imported system %q (%s)\n", sys.Name, sys.ID)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		if err := api.Serve(ctx, a.Config().API.Listen, a.Service(), a.Media(), a.Logger()); err != nil {
			return err
		}

		fmt.Printf("Server stopped after %s.\n", time.Since(start).Truncate(time.Second))
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("user", "", "Platform user ID that owns this install")

	// system subcommands
	systemCmd.AddCommand(systemCreateCmd)
	systemCmd.AddCommand(systemShowCmd)
	systemCmd.AddCommand(systemDeleteCmd)
	systemDeleteCmd.Flags().Bool("confirm", false, "Confirm permanent deletion")

	// member subcommands
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberListCmd)
	memberCmd.AddCommand(memberUpdateCmd)
	memberCmd.AddCommand(memberAvatarCmd)
	memberCmd.AddCommand(memberRemoveCmd)
	memberAddCmd.Flags().String("kind", "alter", "Member kind: alter, state or group")
	memberAddCmd.Flags().StringArray("tag", nil, "Proxy tag pattern, e.g. \"luna: text\" (repeatable)")
	memberUpdateCmd.Flags().String("display-name", "", "Name shown on proxied messages")
	memberUpdateCmd.Flags().String("pronouns", "", "Pronouns shown through the {pronouns} layout placeholder")
	memberUpdateCmd.Flags().String("caution", "", "Caution note shown through the {caution} layout placeholder")
	memberUpdateCmd.Flags().String("color", "", "Display color")
	memberUpdateCmd.Flags().StringArray("tag", nil, "Replacement proxy tag pattern (repeatable)")

	// switch subcommands
	switchCmd.AddCommand(switchOutCmd)
	switchCmd.AddCommand(switchToggleCmd)

	// front subcommands
	frontCmd.AddCommand(frontAddCmd)
	frontCmd.AddCommand(frontRemoveCmd)
	frontCmd.AddCommand(frontStatusCmd)
	frontStatusCmd.Flags().Bool("hidden", false, "Keep the status off public displays")

	// history subcommands
	historyCmd.AddCommand(historyDeleteCmd)
	historyDeleteCmd.Flags().Bool("confirm", false, "Confirm deletion")

	// proxy flags
	proxyCmd.Flags().String("guild", "", "Guild the channel belongs to, for per-guild settings")

	// guild subcommands
	guildCmd.AddCommand(guildShowCmd)
	guildCmd.AddCommand(guildSetCmd)
	guildSetCmd.Flags().Bool("disable-proxy", false, "Disable proxying in this guild")
	guildSetCmd.Flags().String("log-channel", "", "Channel that receives proxy log entries")

	// msg subcommands
	msgCmd.AddCommand(msgEditCmd)
	msgCmd.AddCommand(msgDeleteCmd)
	msgCmd.AddCommand(msgReproxyCmd)
	msgCmd.AddCommand(msgShowCmd)
	for _, c := range []*cobra.Command{msgEditCmd, msgDeleteCmd, msgReproxyCmd} {
		c.Flags().String("channel", "", "Channel the message was sent in")
		c.Flags().String("id", "", "Message ID (defaults to your latest proxied message)")
		c.MarkFlagRequired("channel")
	}

	// export/import flags
	exportCmd.Flags().Bool("encrypt", false, "Encrypt the archive with a passphrase")
	importCmd.Flags().Bool("encrypted", false, "Archive is passphrase-encrypted")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(systemCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(frontCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(autoproxyCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(guildCmd)
	rootCmd.AddCommand(msgCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}
