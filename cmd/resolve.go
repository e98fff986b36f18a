package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"firestige.xyz/enipaddr/internal/resolver"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <host>",
	Short: "Resolve a host into a SockAddr record",
	Long: `Resolve a host name or IPv4 literal and print the resulting SockAddr
record, its 16-byte wire form and whether it is valid and multicast.

Temporary resolver failures are retried with exponential backoff up to
resolver.retries times.

Examples:
  enipaddr resolve 192.168.1.10
  enipaddr resolve plc-7.plant.local -p 2222`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := resolver.New(cfg.Resolver)
		if err != nil {
			return err
		}
		return runResolve(cmd.Context(), r, args[0], resolvePort, cfg.Resolver.Retries, os.Stdout)
	},
}

var (
	resolvePort uint16

	// retryBase is the first backoff delay between resolution attempts.
	retryBase = 100 * time.Millisecond
)

func init() {
	resolveCmd.Flags().Uint16VarP(&resolvePort, "port", "p", 44818, "port in host order")
}

func runResolve(ctx context.Context, r sockaddr.HostResolver, host string, port uint16, retries int, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var sa sockaddr.SockAddr
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		sa, err = sockaddr.ResolveWith(ctx, r, host, port)

		var se *sockaddr.SocketError
		if errors.As(err, &se) && se.Temporary() {
			slog.Warn("temporary resolution failure", "host", host, "code", se.Code, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return err
	}

	printRecord(w, sa)
	return nil
}

// printRecord writes the fields of sa, one per line.
func printRecord(w io.Writer, sa sockaddr.SockAddr) {
	wire, _ := sa.MarshalBinary()
	fmt.Fprintf(w, "address:   %s\n", sa)
	fmt.Fprintf(w, "family:    %d\n", sa.Family())
	fmt.Fprintf(w, "port:      %d\n", sa.Port())
	fmt.Fprintf(w, "addr:      0x%08X\n", sa.Addr())
	fmt.Fprintf(w, "wire:      %s\n", hex.EncodeToString(wire))
	fmt.Fprintf(w, "valid:     %t\n", sa.IsValid())
	fmt.Fprintf(w, "multicast: %t\n", sa.IsMulticast())
}
