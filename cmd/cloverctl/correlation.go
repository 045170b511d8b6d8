package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
)

func correlationCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "correlation",
		Aliases: []string{"corr"},
		Short:   "Inspect and reconcile correlation records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <element-guid>",
		Short: "List every correlation record of an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			records, err := c.ListCorrelations(cmd.Context(), args[0], models.RequestOptions{})
			if err != nil {
				return err
			}
			return opts.print(cmd, records)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <element-guid> <asset-manager-guid>",
		Short: "Show the record an asset manager holds for an element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			record, err := c.LookupCorrelation(cmd.Context(), args[0], args[1], models.RequestOptions{})
			if err != nil {
				return err
			}
			return opts.print(cmd, models.CorrelationLookupResponse{Record: record})
		},
	})
	cmd.AddCommand(correlationReconcileCmd(opts))
	return cmd
}

func correlationReconcileCmd(opts *globalOptions) *cobra.Command {
	var identifier models.ExternalIdentifier
	var keyPattern string
	cmd := &cobra.Command{
		Use:   "reconcile <element-guid> <asset-manager-guid> <identifier>",
		Short: "Overwrite the identifier an asset manager holds for an element",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			identifier.Identifier = args[2]
			identifier.KeyPattern = models.KeyPattern(keyPattern)
			record, err := c.ReconcileCorrelation(cmd.Context(), args[0], args[1], identifier, models.RequestOptions{})
			if err != nil {
				return err
			}
			return opts.print(cmd, record)
		},
	}
	cmd.Flags().StringVar(&identifier.Description, "description", "", "")
	cmd.Flags().StringVar(&identifier.Usage, "usage", "", "")
	cmd.Flags().StringVar(&identifier.Source, "source", "", "")
	cmd.Flags().StringVar(&keyPattern, "key-pattern", "", "")
	return cmd
}
