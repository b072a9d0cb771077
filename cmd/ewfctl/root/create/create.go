// Package create implements "ewfctl create", acquiring a raw image file
// into a fresh EWF container.
package create

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcanefs/goewf"
	"github.com/arcanefs/goewf/format"
	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/notify"
)

func NewCreateCmd() *cobra.Command {
	var (
		caseNumber      string
		examinerName    string
		compression     string
		segmentSizeMiB  int64
		sectorsPerChunk uint32
	)

	cmd := &cobra.Command{
		Use:   "create <input> <output-base>",
		Short: "Acquire a raw image file into a new EWF container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer in.Close()

			h, err := ewf.New(format.EnCase5, args[1])
			if err != nil {
				return fmt.Errorf("new container: %w", err)
			}

			level, err := parseLevel(compression)
			if err != nil {
				return err
			}
			if err := h.SetCompressionLevel(level); err != nil {
				return err
			}
			if err := h.SetSectorsPerChunk(sectorsPerChunk); err != nil {
				return err
			}
			if err := h.SetSegmentFileSizeLimit(segmentSizeMiB * 1024 * 1024); err != nil {
				return err
			}
			if caseNumber != "" {
				if err := h.SetHeaderValue("case_number", caseNumber); err != nil {
					return err
				}
			}
			if examinerName != "" {
				if err := h.SetHeaderValue("examiner_name", examinerName); err != nil {
					return err
				}
			}

			n, err := io.Copy(writerFunc(h.Write), in)
			if err != nil {
				return fmt.Errorf("acquire: %w", err)
			}
			if err := h.Finalize(); err != nil {
				return fmt.Errorf("finalize: %w", err)
			}
			if err := h.Close(); err != nil {
				return err
			}

			md5, _ := h.HashValue("md5")
			notify.Infof("acquired %d bytes, md5 %s", n, md5)
			return nil
		},
	}

	cmd.Flags().StringVar(&caseNumber, "case-number", "", "case_number header value")
	cmd.Flags().StringVar(&examinerName, "examiner", "", "examiner_name header value")
	cmd.Flags().StringVar(&compression, "compression", "fast", "compression level: none, fast, best")
	cmd.Flags().Int64Var(&segmentSizeMiB, "segment-size-mib", 2000, "segment file size limit in MiB")
	cmd.Flags().Uint32Var(&sectorsPerChunk, "sectors-per-chunk", 64, "sectors per chunk")

	return cmd
}

func parseLevel(s string) (int, error) {
	switch s {
	case "none":
		return chunk.LevelNone, nil
	case "fast":
		return chunk.LevelFast, nil
	case "best":
		return chunk.LevelBest, nil
	default:
		return 0, fmt.Errorf("unknown compression level %q", s)
	}
}

// writerFunc adapts a Write method value to io.Writer for io.Copy.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
