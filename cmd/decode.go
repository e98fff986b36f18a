package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/enipaddr/internal/cpf"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a SockAddr item body or encapsulation message",
	Long: `Decode hex input. Exactly 16 bytes are read as a SockAddr Info Item body;
anything longer is read as one or more encapsulation messages whose socket
addresses are listed. Spaces and colons in the input are ignored.

Examples:
  enipaddr decode 000208aeefc000010000000000000000
  enipaddr decode "6f 00 26 00 ..."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecode(strings.Join(args, ""), os.Stdout)
	},
}

func runDecode(input string, w io.Writer) error {
	data, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "", "\n", "").Replace(input))
	if err != nil {
		return fmt.Errorf("invalid hex input: %w", err)
	}

	if len(data) == sockaddr.Size {
		var sa sockaddr.SockAddr
		if err := sa.UnmarshalBinary(data); err != nil {
			return err
		}
		printRecord(w, sa)
		return nil
	}

	for len(data) > 0 {
		msg, n, err := cpf.DecodeMessage(data)
		if n == 0 {
			return err
		}
		data = data[n:]

		fmt.Fprintf(w, "%s session=0x%08X status=%d items=%d\n",
			msg.Command, msg.SessionHandle, msg.Status, len(msg.Items))
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}

		eps, err := msg.Endpoints()
		for _, ep := range eps {
			fmt.Fprintf(w, "  %-13s %-21s valid=%t multicast=%t\n",
				ep.Item, ep.Addr, ep.Addr.IsValid(), ep.Addr.IsMulticast())
		}
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
		}
	}
	return nil
}
