package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
)

func assetManagerCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset-manager",
		Aliases: []string{"am"},
		Short:   "Register and inspect asset managers",
	}
	cmd.AddCommand(assetManagerRegisterCmd(opts))
	cmd.AddCommand(assetManagerGetCmd(opts))
	cmd.AddCommand(assetManagerDeleteCmd(opts))
	cmd.AddCommand(assetManagerElementsCmd(opts))
	return cmd
}

func assetManagerRegisterCmd(opts *globalOptions) *cobra.Command {
	var req models.RegisterAssetManagerRequest
	cmd := &cobra.Command{
		Use:   "register <qualified-name>",
		Short: "Register an asset manager, or return the existing registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			req.QualifiedName = args[0]
			am, err := c.RegisterAssetManager(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.print(cmd, am)
		},
	}
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "")
	cmd.Flags().StringVar(&req.Description, "description", "", "")
	cmd.Flags().StringVar(&req.DeployedImplementationType, "implementation-type", "", "deployed implementation type")
	return cmd
}

func assetManagerGetCmd(opts *globalOptions) *cobra.Command {
	var byName bool
	cmd := &cobra.Command{
		Use:   "get <guid|qualified-name>",
		Short: "Show an asset manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			var am *models.AssetManager
			if byName {
				am, err = c.GetAssetManagerByName(cmd.Context(), args[0])
			} else {
				am, err = c.GetAssetManager(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return opts.print(cmd, am)
		},
	}
	cmd.Flags().BoolVar(&byName, "by-name", false, "look up by qualified name")
	return cmd
}

func assetManagerDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <guid>",
		Short: "Remove an asset manager and its correlation records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.DeleteAssetManager(cmd.Context(), args[0])
		},
	}
}

func assetManagerElementsCmd(opts *globalOptions) *cobra.Command {
	var paging pagingFlags
	cmd := &cobra.Command{
		Use:   "elements <guid> <identifier>",
		Short: "List the elements an asset manager knows by an identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			elements, err := c.FindByExternalIdentifier(cmd.Context(), args[0], args[1], paging.paging(), models.RequestOptions{})
			if err != nil {
				return err
			}
			return opts.print(cmd, elements)
		},
	}
	paging.add(cmd)
	return cmd
}
