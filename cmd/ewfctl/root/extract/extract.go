// Package extract implements "ewfctl extract", copying a container's
// logical media stream out to a raw image file.
package extract

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcanefs/goewf"
	"github.com/arcanefs/goewf/internal/notify"
)

func NewExtractCmd() *cobra.Command {
	var wipeOnError bool

	cmd := &cobra.Command{
		Use:   "extract <first-segment> <output>",
		Short: "Decompress a container's media stream to a raw image file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ewf.Open(args[0])
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer h.Close()

			if err := h.SetWipeOnError(wipeOnError); err != nil {
				return err
			}

			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer out.Close()

			n, err := io.Copy(out, h)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			notify.Infof("wrote %d bytes", n)

			if bad := h.CRCErrorChunks(); len(bad) > 0 {
				notify.Warnf("%d chunk(s) failed CRC (wipe-on-error: %t)", len(bad), wipeOnError)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wipeOnError, "wipe-on-error", true, "serve zero-filled bytes for a CRC-mismatched chunk instead of its unverified bytes")
	return cmd
}
