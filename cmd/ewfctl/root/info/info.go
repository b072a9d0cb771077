// Package info implements "ewfctl info", printing a container's media
// parameters, header values, and recorded errors.
package info

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanefs/goewf"
)

func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <first-segment>",
		Short: "Print media parameters and case header values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ewf.Open(args[0])
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer h.Close()

			fmt.Printf("media size:        %d bytes\n", h.MediaSize())
			fmt.Printf("bytes per sector:  %d\n", h.BytesPerSector())
			fmt.Printf("sectors per chunk: %d\n", h.SectorsPerChunk())
			fmt.Printf("sector count:      %d\n", h.SectorCount())
			fmt.Printf("compression level: %d\n", h.CompressionLevel())

			if guid, ok := h.GUID(); ok {
				fmt.Printf("guid:              %x\n", guid)
			}

			fmt.Println("header values:")
			for i := 0; i < h.HeaderValueCount(); i++ {
				id, ok := h.HeaderValueIdentifierAt(i)
				if !ok {
					continue
				}
				v, _ := h.HeaderValue(id)
				fmt.Printf("  %-24s %s\n", id, v)
			}

			if n := len(h.AcquiryErrors()); n > 0 {
				fmt.Printf("acquiry errors:    %d\n", n)
			}

			return nil
		},
	}
	return cmd
}
