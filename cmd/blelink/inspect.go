package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/gatt"
	"github.com/srg/blelink/internal/session"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// characteristicReport is one characteristic of an inspected session.
type characteristicReport struct {
	UUID       string   `json:"uuid"`
	Properties []string `json:"properties"`
	Buckets    []string `json:"buckets"`
	Default    bool     `json:"default,omitempty"`
}

// inspectReport is the JSON form of the inspect output.
type inspectReport struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name,omitempty"`
	DefaultChannel  string                 `json:"default_channel,omitempty"`
	Characteristics []characteristicReport `json:"characteristics"`
}

func newInspectCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <target>",
		Short: "Connect to a device and show how its characteristics are classified",
		Long: `Connects to a BLE device, enumerates its services and characteristics, subscribes
to every notifiable characteristic and prints the resulting buckets
(read, write, rw, notify) together with the default write channel.

` + targetHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (table, json); defaults to output_format from config")
	return cmd
}

func runInspect(cmd *cobra.Command, target, formatFlag string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := outputFormat(cfg, formatFlag)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	h, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := NewProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Inspecting %s", target), "Connecting")
	progress.Start()
	defer progress.Stop()

	// a listener makes the session subscribe, so the notify bucket is populated
	cancel := h.OnMessageReceived(func(session.Message) {})
	defer cancel()

	if err := connectTarget(ctx, h, target, cfg.ScanWindow); err != nil {
		return err
	}
	defer h.Disconnect()
	progress.Stop()

	report := buildInspectReport(h.ConnectedDevice(), h.Buckets(), h.DefaultWriteCharacteristic())
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return displayInspectTable(cmd.OutOrStdout(), report)
}

func buildInspectReport(p device.Peripheral, b gatt.Buckets, def device.Characteristic) inspectReport {
	report := inspectReport{Characteristics: []characteristicReport{}}
	if p != nil {
		report.ID = p.ID()
		report.Name = p.Name()
	}
	if def != nil {
		report.DefaultChannel = def.UUID()
	}

	chars := orderedmap.New[string, *characteristicReport]()
	add := func(bucket string, list []device.Characteristic) {
		for _, c := range list {
			uuid := device.NormalizeUUID(c.UUID())
			r, ok := chars.Get(uuid)
			if !ok {
				r = &characteristicReport{
					UUID:       uuid,
					Properties: c.Properties().Names(),
					Default:    def != nil && device.EqualUUID(def.UUID(), uuid),
				}
				chars.Set(uuid, r)
			}
			r.Buckets = append(r.Buckets, bucket)
		}
	}
	add("read", b.Readable)
	add("write", b.Writable)
	add("rw", b.ReadWrite)
	add("notify", b.Notifiable)

	for pair := chars.Oldest(); pair != nil; pair = pair.Next() {
		report.Characteristics = append(report.Characteristics, *pair.Value)
	}
	return report
}

func displayInspectTable(out io.Writer, r inspectReport) error {
	name := r.Name
	if name == "" {
		name = "(unknown)"
	}
	fmt.Fprintf(out, "Device: %s (%s)\n", name, r.ID)
	if r.DefaultChannel != "" {
		fmt.Fprintf(out, "Default channel: %s\n", r.DefaultChannel)
	} else {
		fmt.Fprintln(out, "Default channel: none")
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHARACTERISTIC\tPROPERTIES\tBUCKETS")
	for _, c := range r.Characteristics {
		uuid := c.UUID
		if c.Default {
			uuid += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", uuid, strings.Join(c.Properties, ","), strings.Join(c.Buckets, ","))
	}
	return w.Flush()
}
