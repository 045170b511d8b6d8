package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
)

func elementCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "element",
		Short: "Create, update, remove and find elements",
	}
	cmd.AddCommand(elementCreateCmd(opts))
	cmd.AddCommand(elementGetCmd(opts))
	cmd.AddCommand(elementUpdateCmd(opts))
	cmd.AddCommand(elementRemoveCmd(opts))
	cmd.AddCommand(elementFindCmd(opts))
	return cmd
}

type propertyFlags struct {
	qualifiedName string
	displayName   string
	description   string
	additional    []string
}

func (p *propertyFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.qualifiedName, "qualified-name", "", "")
	cmd.Flags().StringVar(&p.displayName, "display-name", "", "")
	cmd.Flags().StringVar(&p.description, "description", "", "")
	cmd.Flags().StringArrayVar(&p.additional, "property", nil, "additional property as key=value, repeatable")
}

func (p *propertyFlags) properties() (models.ElementProperties, error) {
	additional, err := parseProperties(p.additional)
	if err != nil {
		return models.ElementProperties{}, err
	}
	return models.ElementProperties{
		QualifiedName:        p.qualifiedName,
		DisplayName:          p.displayName,
		Description:          p.description,
		AdditionalProperties: additional,
	}, nil
}

func elementCreateCmd(opts *globalOptions) *cobra.Command {
	var (
		props    propertyFlags
		corr     correlationFlags
		template string
	)
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create an element, optionally correlated with an asset manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			properties, err := props.properties()
			if err != nil {
				return err
			}
			req := models.CreateElementRequest{Properties: properties, Correlation: corr.request()}

			var guid string
			if template != "" {
				guid, err = c.CreateFromTemplate(cmd.Context(), args[0], template, req)
			} else {
				guid, err = c.CreateElement(cmd.Context(), args[0], req)
			}
			if err != nil {
				return err
			}
			return opts.print(cmd, models.ElementGUIDResponse{GUID: guid})
		},
	}
	props.add(cmd)
	corr.add(cmd)
	cmd.Flags().StringVar(&template, "template", "", "GUID of an element to copy")
	return cmd
}

func elementGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <guid>",
		Short: "Show an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			element, err := c.GetElement(cmd.Context(), args[0], models.RequestOptions{})
			if err != nil {
				return err
			}
			return opts.print(cmd, element)
		},
	}
}

func elementUpdateCmd(opts *globalOptions) *cobra.Command {
	var (
		props   propertyFlags
		corr    correlationFlags
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "update <guid>",
		Short: "Merge, or with --replace overwrite, an element's properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			properties, err := props.properties()
			if err != nil {
				return err
			}
			return c.UpdateElement(cmd.Context(), args[0], !replace, models.UpdateElementRequest{
				Properties:  properties,
				Correlation: corr.request(),
			})
		},
	}
	props.add(cmd)
	corr.add(cmd)
	cmd.Flags().BoolVar(&replace, "replace", false, "replace all properties instead of merging")
	return cmd
}

func elementRemoveCmd(opts *globalOptions) *cobra.Command {
	var corr correlationFlags
	cmd := &cobra.Command{
		Use:   "remove <guid>",
		Short: "Remove an element, the elements anchored to it and their correlations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.RemoveElement(cmd.Context(), args[0], models.RemoveElementRequest{Correlation: corr.request()})
		},
	}
	corr.add(cmd)
	return cmd
}

func elementFindCmd(opts *globalOptions) *cobra.Command {
	var (
		criteria models.SearchCriteria
		paging   pagingFlags
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			elements, err := c.FindElements(cmd.Context(), models.FindElementsRequest{
				Criteria: criteria,
				Paging:   paging.paging(),
			})
			if err != nil {
				return err
			}
			return opts.print(cmd, elements)
		},
	}
	cmd.Flags().StringVar(&criteria.TypeName, "type", "", "element type")
	cmd.Flags().StringVar(&criteria.Name, "name", "", "exact qualified or display name")
	cmd.Flags().StringVar(&criteria.SearchString, "search", "", "case-insensitive substring")
	cmd.Flags().StringVar(&criteria.Filter, "filter", "", "JMESPath expression evaluated against each element")
	paging.add(cmd)
	return cmd
}
