package main

import (
	"github.com/spf13/cobra"
)

func newPolicyCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := specFromViper(f.policy)
			if err != nil {
				return err
			}
			if err := spec.Validate(); err != nil {
				return err
			}
			b, err := spec.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
