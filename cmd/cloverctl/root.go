package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/clover/pkg/client"
	"github.com/Ramsey-B/clover/pkg/models"
)

type globalOptions struct {
	server       string
	token        string
	userID       string
	assetManager string
	timeout      time.Duration
	output       string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "cloverctl",
		Short: "Manage elements and their external identifier correlations",
		Long: `cloverctl talks to a clover server.

It registers asset managers, creates and updates elements with or without a
correlation to an asset manager's identifier, and inspects correlation records.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("CLOVER_SERVER", "http://localhost:3000"), "clover server URL")
	flags.StringVar(&opts.token, "token", os.Getenv("CLOVER_TOKEN"), "bearer token")
	flags.StringVar(&opts.userID, "user", os.Getenv("CLOVER_USER"), "user id sent as X-User-ID")
	flags.StringVar(&opts.assetManager, "as", "", "asset manager name sent as X-Asset-Manager")
	flags.DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "request timeout")
	flags.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")

	rootCmd.AddCommand(assetManagerCmd(opts))
	rootCmd.AddCommand(elementCmd(opts))
	rootCmd.AddCommand(correlationCmd(opts))
	rootCmd.AddCommand(relationshipCmd(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *globalOptions) client() (*client.Client, error) {
	cfg := client.DefaultConfig()
	cfg.BaseURL = o.server
	cfg.Token = o.token
	cfg.UserID = o.userID
	cfg.AssetManager = o.assetManager
	cfg.Timeout = o.timeout
	return client.NewClient(cfg, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func (o *globalOptions) print(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	switch o.output {
	case "yaml":
		// Round trip through JSON so the yaml keys follow the json tags.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
}

// correlationFlags describe the asset manager a mutating command acts for.
type correlationFlags struct {
	assetManagerGUID string
	assetManagerName string
	identifier       string
	keyPattern       string
	home             bool
}

func (f *correlationFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.assetManagerGUID, "asset-manager", "", "asset manager GUID to correlate with")
	cmd.Flags().StringVar(&f.assetManagerName, "asset-manager-name", "", "asset manager qualified name to correlate with")
	cmd.Flags().StringVar(&f.identifier, "identifier", "", "the asset manager's identifier for the element")
	cmd.Flags().StringVar(&f.keyPattern, "key-pattern", "", "identifier key pattern, LOCAL_KEY by default")
	cmd.Flags().BoolVar(&f.home, "home", false, "make the asset manager the element's home")
}

// request is nil when no asset manager was named.
func (f *correlationFlags) request() *models.CorrelationRequest {
	if f.assetManagerGUID == "" && f.assetManagerName == "" {
		return nil
	}
	req := &models.CorrelationRequest{
		AssetManagerGUID:   f.assetManagerGUID,
		AssetManagerName:   f.assetManagerName,
		AssetManagerIsHome: f.home,
	}
	if f.identifier != "" || f.keyPattern != "" {
		req.ExternalIdentifier = &models.ExternalIdentifier{
			Identifier: f.identifier,
			KeyPattern: models.KeyPattern(f.keyPattern),
		}
	}
	return req
}

// parseProperties turns key=value pairs into a map.
func parseProperties(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid property %q, expected key=value", pair)
		}
		props[strings.TrimSpace(key)] = value
	}
	return props, nil
}

type pagingFlags struct {
	startFrom int
	pageSize  int
}

func (p *pagingFlags) add(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.startFrom, "start-from", 0, "index of the first result")
	cmd.Flags().IntVar(&p.pageSize, "page-size", 0, "maximum results, 0 for the server maximum")
}

func (p *pagingFlags) paging() models.Paging {
	return models.Paging{StartFrom: p.startFrom, PageSize: p.pageSize}
}
