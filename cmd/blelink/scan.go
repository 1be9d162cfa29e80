package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/pkg/config"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const watchRedrawInterval = time.Second

type scanFlags struct {
	duration time.Duration
	format   string
	watch    bool
}

func newScanCmd() *cobra.Command {
	f := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for BLE devices",
		Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Devices are deduplicated by id and by advertised name. The watcher restarts
after every enumeration pass, so devices that stop advertising drop out of
watch mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, f)
		},
	}
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite in watch mode)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format (table, json); defaults to output_format from config")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Continuously scan and redraw the device table")
	return cmd
}

func outputFormat(cfg *config.Config, flag string) (string, error) {
	if flag == "" {
		return cfg.OutputFormat, nil
	}
	for _, f := range config.OutputFormats {
		if f == flag {
			return flag, nil
		}
	}
	return "", fmt.Errorf("invalid format '%s': must be one of %v", flag, config.OutputFormats)
}

func runScan(cmd *cobra.Command, f *scanFlags) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := outputFormat(cfg, f.format)
	if err != nil {
		return err
	}
	if f.duration <= 0 && !f.watch {
		return fmt.Errorf("duration must be positive unless --watch is set")
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	h, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.duration)
		defer cancel()
	}

	var progress *ProgressPrinter
	if !f.watch {
		progress = NewCountdownProgressPrinter(cmd.ErrOrStderr(), "Scanning for BLE devices", "Scanning", f.duration)
		progress.Start()
		defer progress.Stop()
	}

	if err := h.StartScan(ctx); err != nil {
		return err
	}
	defer func() { _ = h.StopScan() }()

	out := cmd.OutOrStdout()
	found := orderedmap.New[string, device.DiscoveredDevice]()
	events := h.ScanEvents()

	var redraw <-chan time.Time
	if f.watch {
		ticker := time.NewTicker(watchRedrawInterval)
		defer ticker.Stop()
		redraw = ticker.C
	}
	dirty := false

	for {
		select {
		case <-ctx.Done():
			if progress != nil {
				progress.Stop()
			}
			if f.watch {
				clearScreen(out)
			}
			return displayDevices(out, format, found)

		case ev := <-events:
			switch ev.Kind {
			case device.DeviceAdded:
				found.Set(ev.Device.ID, ev.Device)
				dirty = true
			case device.DeviceRemoved:
				if _, ok := found.Delete(ev.Device.ID); ok {
					dirty = true
				}
			}

		case <-redraw:
			if dirty {
				clearScreen(out)
				if err := displayDevices(out, format, found); err != nil {
					return err
				}
				dirty = false
			}
		}
	}
}

func displayDevices(w io.Writer, format string, found *orderedmap.OrderedMap[string, device.DiscoveredDevice]) error {
	devices := make([]device.DiscoveredDevice, 0, found.Len())
	for pair := found.Oldest(); pair != nil; pair = pair.Next() {
		devices = append(devices, pair.Value)
	}

	if format == "json" {
		return writeJSON(w, devices)
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices discovered")
		return nil
	}
	return displayDevicesTable(w, devices)
}

func displayDevicesTable(out io.Writer, devices []device.DiscoveredDevice) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tRSSI\tCONNECTABLE\tSERVICES\tLAST SEEN")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unknown)"
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		services := strings.Join(d.AdvertisedServices, ",")
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		connectable := "no"
		if d.Connectable || d.Connected {
			connectable = "yes"
		}

		lastSeen := time.Since(d.LastSeen).Truncate(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s\t%s ago\n",
			name, d.ID, d.RSSI, connectable, services, lastSeen)
	}
	return w.Flush()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func clearScreen(w io.Writer) {
	if isTerminal(w) {
		fmt.Fprint(w, "\033[2J\033[H")
	}
}
