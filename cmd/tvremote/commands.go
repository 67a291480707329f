package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/tvremote/internal/config"
	"github.com/muurk/tvremote/internal/control"
	"github.com/muurk/tvremote/internal/discovery"
	"github.com/muurk/tvremote/internal/logging"
	"github.com/muurk/tvremote/internal/protocol"
	"github.com/muurk/tvremote/internal/tui"
)

// Global command flags
var (
	deviceAddr string
	devicePort int
	configPath string
	logLevel   string
)

// Scan flags
var (
	scanWorkers   int
	scanTimeoutMs int
)

// Browse flags
var browseTimeout int

// Shared state prepared by setup
var (
	store *config.Store
	opts  settings
)

func init() {
	// Common flags for device commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "TV IP address, optionally with :port (default: last connected TV)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", protocol.DefaultPort, "TV control API port")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the registry file (default: $"+config.ConfigPathEnvVar+" or the platform config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default: $"+logging.LogLevelEnvVar+" or silent")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(browseCmd)
}

// setup initializes logging, opens the registry and resolves settings
func setup(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	if configPath != "" {
		store = config.NewStore(configPath)
	} else {
		store = config.OpenDefault()
	}
	logging.Debug("Using registry", zap.String("path", store.Path()))

	opts = resolveSettings(flagValues{
		Port:      devicePort,
		Workers:   scanWorkers,
		TimeoutMs: scanTimeoutMs,
		Changed:   cmd.Flags().Changed,
	}, store.Preferences())
	return nil
}

// newClient creates a control client using the resolved timeouts
func newClient() *control.Client {
	client := control.NewClient()
	client.SetTimeouts(opts.CheckTimeout, opts.CommandTimeout)
	return client
}

// newCoordinator wires the enumerator, prober and registry into a scan coordinator
func newCoordinator() *discovery.Coordinator {
	coord := discovery.NewCoordinator(
		discovery.NewEnumerator(opts.Port),
		discovery.NewHTTPProber(opts.ProbeTimeout),
		store,
	)
	coord.SetWorkers(opts.Workers)
	return coord
}

// scanCmd probes the local subnet for televisions
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local network for televisions",
	Long: `Scan the local /24 subnet for televisions answering the control API.

Every address from .1 to .254 is probed concurrently. Progress is shown while
the scan runs; press Ctrl+C to stop early and keep the results found so far.`,
	Example: `  # Scan with defaults (64 concurrent probes, 1s per probe)
  tvremote scan

  # Slower network
  tvremote scan --timeout-ms 2500

  # Gentler scan
  tvremote scan --workers 16`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanWorkers, "workers", config.DefaultWorkers, "Number of concurrent probes")
	scanCmd.Flags().IntVar(&scanTimeoutMs, "timeout-ms", config.DefaultProbeTimeoutMs, "Per-probe timeout in milliseconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	coord := newCoordinator()
	events, err := coord.Start(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	showProgress := term.IsTerminal(int(os.Stderr.Fd()))
	fmt.Printf("Scanning for televisions (workers: %d, timeout: %s)...\n\n", opts.Workers, opts.ProbeTimeout)

	var snap discovery.Snapshot
	for ev := range events {
		switch e := ev.(type) {
		case discovery.ProgressEvent:
			if showProgress {
				fmt.Fprintf(os.Stderr, "\r  Probed %d/%d (%3.0f%%)", e.Probed, e.Total, e.Fraction()*100)
			}
		case discovery.DiscoveryEvent:
			reported := e.Result.ReportedName
			if reported == e.Result.Address.IP {
				reported = ""
			}
			store.RecordSeen(e.Result.Address.IP, reported)
		case discovery.CompleteEvent:
			snap = e.Snapshot
		}
	}
	if showProgress {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}

	if snap.Cancelled {
		fmt.Printf("Scan stopped after %d of %d addresses.\n\n", snap.Probed, snap.Total)
	}

	if len(snap.Results) == 0 {
		fmt.Println("No televisions found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the TV is switched on")
		fmt.Println("  - Verify this computer is on the same network as the TV")
		fmt.Println("  - Try increasing --timeout-ms for slower networks")
		fmt.Println("  - Try 'tvremote browse' for mDNS discovery")
		fmt.Println("  - Use --device to specify the IP manually")
		return nil
	}

	fmt.Printf("Found %d television(s):\n\n", len(snap.Results))
	for i, r := range snap.Results {
		fmt.Printf("%d. %s\n", i+1, r.DisplayName)
		fmt.Printf("   Address:  %s\n", r.Address)
		if r.ReportedName != "" && r.ReportedName != r.DisplayName {
			fmt.Printf("   Reported: %s\n", r.ReportedName)
		}
		fmt.Println()
	}

	fmt.Println("Use 'tvremote --device <ip>' to open the remote")
	fmt.Println("Use 'tvremote rename <ip> <name>' to name a television")

	return nil
}

// checkCmd verifies that a TV answers
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a television is reachable",
	Example: `  tvremote check --device 192.168.1.42`,
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	addr, err := resolveDevice(deviceAddr, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Checking %s...\n", addr)
	if err := newClient().CheckReachable(cmd.Context(), addr); err != nil {
		fmt.Printf("\n✗ %s\n\n%s\n\n", control.GetShortErrorMessage(err), control.GetTroubleshootingHint(err))
		return fmt.Errorf("device check failed: %w", err)
	}

	fmt.Printf("✓ %s is reachable\n", store.DisplayName(addr.IP, ""))
	return nil
}

// keyCmd sends key presses
var keyCmd = &cobra.Command{
	Use:   "key <key>...",
	Short: "Send remote-control key presses",
	Long: `Send one or more remote-control key presses, in order.

Keys are JointSpace key codes (case-insensitive) or short aliases.
Run 'tvremote keys' for the full list. Sending is best effort: the
TV does not confirm key presses.`,
	Example: `  tvremote key VolumeUp --device 192.168.1.42
  tvremote key home down down ok
  tvremote key 1 0 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKey,
}

func runKey(cmd *cobra.Command, args []string) error {
	keys := make([]protocol.Key, 0, len(args))
	for _, arg := range args {
		k, err := protocol.ParseKey(arg)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}

	addr, err := resolveDevice(deviceAddr, opts)
	if err != nil {
		return err
	}

	client := newClient()
	for _, k := range keys {
		client.SendKey(cmd.Context(), addr, k)
		fmt.Printf("Sent %s\n", k)
	}
	return nil
}

// textCmd types text on the TV
var textCmd = &cobra.Command{
	Use:   "text <text>...",
	Short: "Type text into the television's focused input field",
	Example: `  tvremote text "news at ten" --device 192.168.1.42`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runText,
}

func runText(cmd *cobra.Command, args []string) error {
	addr, err := resolveDevice(deviceAddr, opts)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	newClient().SendText(cmd.Context(), addr, text)
	fmt.Printf("Sent text %q\n", text)
	return nil
}

// renameCmd stores a custom name
var renameCmd = &cobra.Command{
	Use:   "rename <ip> [name...]",
	Short: "Set or clear a television's custom name",
	Long: `Store a custom display name for the television at <ip>.

The name replaces the one the TV reports in scan results and the remote.
Omitting the name clears it.`,
	Example: `  tvremote rename 192.168.1.42 Living room
  tvremote rename 192.168.1.42`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	addr, err := protocol.ParseAddress(args[0])
	if err != nil {
		return err
	}

	name := strings.TrimSpace(strings.Join(args[1:], " "))
	store.SetName(addr.IP, name)

	if name == "" {
		fmt.Printf("Cleared custom name for %s\n", addr.IP)
		return nil
	}
	fmt.Printf("%s is now %q\n", addr.IP, name)
	return nil
}

// devicesCmd lists the registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List remembered televisions",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	entries := store.Devices()
	if len(entries) == 0 {
		fmt.Println("No televisions remembered yet. Run 'tvremote scan' first.")
		return nil
	}

	fmt.Printf("Registry: %s\n\n", store.Path())
	for _, e := range entries {
		fmt.Printf("%s\n", config.ResolveDisplayName(e.Nickname, e.LastName, e.Address))
		fmt.Printf("   Address:   %s\n", e.Address)
		if e.LastName != "" {
			fmt.Printf("   Reported:  %s\n", e.LastName)
		}
		if !e.LastSeen.IsZero() {
			fmt.Printf("   Last seen: %s\n", e.LastSeen.Local().Format(time.DateTime))
		}
		fmt.Println()
	}
	return nil
}

// keysCmd prints the key vocabulary
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List remote-control keys",
	Long: `List the remote-control key vocabulary and aliases.

With --device, keys the television advertises in its settings structure
are marked with '*'.`,
	Args: cobra.NoArgs,
	RunE: runKeys,
}

func runKeys(cmd *cobra.Command, args []string) error {
	var supported map[protocol.Key]bool
	if cmd.Flags().Changed("device") {
		addr, err := resolveDevice(deviceAddr, opts)
		if err != nil {
			return err
		}
		found := newClient().SupportedKeys(cmd.Context(), addr, protocol.Keys)
		if found == nil {
			fmt.Fprintf(os.Stderr, "Could not read supported keys from %s\n", addr)
		}
		supported = make(map[protocol.Key]bool, len(found))
		for _, k := range found {
			supported[k] = true
		}
	}

	aliases := make(map[protocol.Key][]string)
	for alias, k := range protocol.KeyAliases {
		aliases[k] = append(aliases[k], alias)
	}

	for _, k := range protocol.Keys {
		mark := " "
		if supported[k] {
			mark = "*"
		}
		line := fmt.Sprintf("%s %-12s", mark, k)
		if a := aliases[k]; len(a) > 0 {
			sort.Strings(a)
			line += "  " + strings.Join(a, ", ")
		}
		fmt.Println(strings.TrimRight(line, " "))
	}
	return nil
}

// browseCmd lists mDNS advertisements
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Find televisions through mDNS advertisements",
	Long: `Listen for JointSpace mDNS advertisements on the local network.

Some televisions advertise themselves over mDNS/DNS-SD. This is independent
of 'scan' and can find TVs on a different subnet of the same link.`,
	Example: `  tvremote browse
  tvremote browse --timeout 10`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().IntVar(&browseTimeout, "timeout", int(discovery.DefaultBrowseTimeout/time.Second), "Browse timeout in seconds")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	fmt.Printf("Listening for advertisements (timeout: %ds)...\n\n", browseTimeout)

	ads, err := discovery.Browse(cmd.Context(), time.Duration(browseTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("browse failed: %w", err)
	}

	if len(ads) == 0 {
		fmt.Println("No advertisements found. Try 'tvremote scan' instead.")
		return nil
	}

	fmt.Printf("Found %d advertisement(s):\n\n", len(ads))
	for i, ad := range ads {
		fmt.Printf("%d. %s\n", i+1, store.DisplayName(ad.IP, ad.Instance))
		fmt.Printf("   Service: %s\n", ad.Service)
		fmt.Printf("   Host:    %s\n", ad.Host)
		fmt.Printf("   Address: %s\n", ad.Address())
		if len(ad.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", ad.Metadata)
		}
		fmt.Println()
	}
	return nil
}

// runTUI launches the interactive remote
func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the interactive remote needs a terminal; see 'tvremote --help' for commands")
	}

	deps := tui.Deps{
		Coordinator: newCoordinator(),
		Client:      newClient(),
		Store:       store,
		Port:        opts.Port,
	}

	var start *protocol.Address
	if cmd.Flags().Changed("device") {
		addr, err := resolveDevice(deviceAddr, opts)
		if err != nil {
			return err
		}
		start = &addr
	}

	model := tui.NewAppModel(deps, start)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		model.SetSize(w, h)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("remote error: %w", err)
	}
	return nil
}
