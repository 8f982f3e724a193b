package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/notargets/clmatvec/runner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDevicesCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the platforms and devices the configured backend can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drv, err := a.driver()
			if err != nil {
				return err
			}
			infos, err := runner.ListDevices(drv)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(infos)
			}
			if len(infos) == 0 {
				fmt.Fprintf(out, "no devices on backend %s\n", drv.Name())
				return nil
			}
			header := color.New(color.FgCyan, color.Bold)
			header.Fprintf(out, "%-24s %-32s %s\n", "PLATFORM", "DEVICE", "CLASS")
			for _, info := range infos {
				fmt.Fprintf(out, "%-24s %-32s %s\n", info.Platform, info.Device, info.Class)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the inventory as YAML")
	return cmd
}
