// Command ewfctl is a small operator CLI over the goewf library: inspect,
// extract, and create EWF (.E01) evidence containers.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arcanefs/goewf/cmd/ewfctl/root/create"
	"github.com/arcanefs/goewf/cmd/ewfctl/root/extract"
	"github.com/arcanefs/goewf/cmd/ewfctl/root/info"
	"github.com/arcanefs/goewf/internal/notify"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ewfctl",
		Short: "Inspect and convert Expert Witness Compression Format containers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				notify.Logger().SetLevel(log.DebugLevel)
			}
			if cfg := viper.GetString("config"); cfg != "" {
				viper.SetConfigFile(cfg)
				if err := viper.ReadInConfig(); err != nil {
					notify.Warnf("config: %v", err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file to read (none by default)")
	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.AddCommand(info.NewInfoCmd())
	cmd.AddCommand(extract.NewExtractCmd())
	cmd.AddCommand(create.NewCreateCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
