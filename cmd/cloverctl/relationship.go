package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
)

func relationshipCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationship",
		Aliases: []string{"rel"},
		Short:   "Link and unlink elements",
	}
	cmd.AddCommand(relationshipAttachCmd(opts))
	cmd.AddCommand(relationshipDetachCmd(opts))
	cmd.AddCommand(relationshipListCmd(opts))
	return cmd
}

func relationshipAttachCmd(opts *globalOptions) *cobra.Command {
	var (
		corr  correlationFlags
		props []string
	)
	cmd := &cobra.Command{
		Use:   "attach <type> <end-one-guid> <end-two-guid>",
		Short: "Link two elements",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			parsed, err := parseProperties(props)
			if err != nil {
				return err
			}
			var properties map[string]any
			if len(parsed) > 0 {
				properties = make(map[string]any, len(parsed))
				for k, v := range parsed {
					properties[k] = v
				}
			}
			guid, err := c.AttachRelationship(cmd.Context(), models.AttachRelationshipRequest{
				TypeName:    args[0],
				EndOneGUID:  args[1],
				EndTwoGUID:  args[2],
				Properties:  properties,
				Correlation: corr.request(),
			})
			if err != nil {
				return err
			}
			return opts.print(cmd, models.RelationshipGUIDResponse{GUID: guid})
		},
	}
	corr.add(cmd)
	cmd.Flags().StringArrayVar(&props, "property", nil, "relationship property as key=value, repeatable")
	return cmd
}

func relationshipDetachCmd(opts *globalOptions) *cobra.Command {
	var corr correlationFlags
	cmd := &cobra.Command{
		Use:   "detach <type> <end-one-guid> <end-two-guid>",
		Short: "Unlink two elements",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.DetachRelationship(cmd.Context(), models.DetachRelationshipRequest{
				TypeName:    args[0],
				EndOneGUID:  args[1],
				EndTwoGUID:  args[2],
				Correlation: corr.request(),
			})
		},
	}
	corr.add(cmd)
	return cmd
}

func relationshipListCmd(opts *globalOptions) *cobra.Command {
	var paging pagingFlags
	cmd := &cobra.Command{
		Use:   "list <element-guid>",
		Short: "List the relationships of an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			rels, err := c.ListRelationships(cmd.Context(), args[0], paging.paging(), models.RequestOptions{})
			if err != nil {
				return err
			}
			return opts.print(cmd, rels)
		},
	}
	paging.add(cmd)
	return cmd
}
