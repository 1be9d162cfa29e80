package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/session"
	"github.com/srg/blelink/pkg/handler"
)

type sendFlags struct {
	hex    bool
	char   string
	listen time.Duration
}

func newSendCmd() *cobra.Command {
	f := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send <target> <data>",
		Short: "Send data over the device's serial channel",
		Long: `Connects to a BLE device and writes data to its default write channel: the
reserved serial characteristic 0000ffe1-0000-1000-8000-00805f9b34fb when the
device has it, otherwise the first writable characteristic.

Examples:
  # Send a string to a device by name
  blelink send Sensor1 "hello"

  # Send hex bytes to an explicit characteristic and print replies for 2s
  blelink send aa:bb:cc:dd:ee:ff 0d0a --hex --char ffe2 --listen 2s

` + targetHelp,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, args[0], args[1], f)
		},
	}
	cmd.Flags().BoolVar(&f.hex, "hex", false, "Parse data as hex (e.g. 'FF01'); raw bytes by default")
	cmd.Flags().StringVar(&f.char, "char", "", "Write to this characteristic instead of the default channel")
	cmd.Flags().DurationVar(&f.listen, "listen", 0, "Print notifications for this long after the write")
	return cmd
}

// parseSendData converts the data argument to bytes.
func parseSendData(s string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(s), nil
	}
	cleaned := strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "").Replace(s)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex data: %v", device.ErrInvalidArgument, err)
	}
	return data, nil
}

func runSend(cmd *cobra.Command, target, input string, f *sendFlags) error {
	data, err := parseSendData(input, f.hex)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: nothing to send", device.ErrInvalidArgument)
	}
	cfg, logger, err := loadConfig(cmd)
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

	out := cmd.OutOrStdout()
	if f.listen > 0 {
		cancel := h.OnMessageReceived(func(m session.Message) {
			fmt.Fprintln(out, formatMessage(m))
		})
		defer cancel()
	}

	lost := make(chan struct{})
	var lostOnce sync.Once
	cancelStatus := h.OnConnectionStatusChanged(func(connected bool) {
		if !connected {
			lostOnce.Do(func() { close(lost) })
		}
	})
	defer cancelStatus()

	progress := NewProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Sending %d bytes to %s", len(data), target), "Connecting")
	progress.Start()
	defer progress.Stop()

	if err := connectTarget(ctx, h, target, cfg.ScanWindow); err != nil {
		return err
	}
	defer h.Disconnect()
	progress.SetPhase("Writing")

	uuid, err := send(ctx, h, data, f.char)
	progress.Stop()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Sent %d bytes to %s\n", len(data), uuid)

	if f.listen <= 0 {
		return nil
	}
	timer := time.NewTimer(f.listen)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	case <-lost:
		return ErrConnectionLost
	}
}

// send writes data to char, or to the default channel when char is empty, and
// returns the UUID written to.
func send(ctx context.Context, h *handler.Handler, data []byte, char string) (string, error) {
	var (
		c   device.Characteristic
		ok  bool
		err error
	)
	if char != "" {
		c, err = h.FindCharacteristic(char)
		if err != nil {
			return "", err
		}
		ok, err = h.SendTo(ctx, data, c)
	} else {
		c = h.DefaultWriteCharacteristic()
		ok, err = h.Send(ctx, data)
	}
	if err != nil {
		return "", err
	}

	uuid := "default channel"
	if c != nil {
		uuid = c.UUID()
	}
	if !ok {
		return "", fmt.Errorf("write to %s was not acknowledged", uuid)
	}
	return uuid, nil
}

// formatMessage renders a notification as "<uuid>: <text>" when printable,
// hex otherwise.
func formatMessage(m session.Message) string {
	return fmt.Sprintf("%s: %s", m.UUID, printable(m.Data))
}

func printable(data []byte) string {
	s := string(data)
	for _, r := range s {
		if r == unicode.ReplacementChar || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
			return hex.EncodeToString(data)
		}
	}
	return s
}
