package commands

import (
	"fmt"

	"github.com/dyluth/gamedata/internal/filter"
	"github.com/dyluth/gamedata/internal/listing"
	"github.com/dyluth/gamedata/internal/printer"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/spf13/cobra"
)

var (
	inspectOutputFormat string
	inspectType         string
	inspectNamespace    string
	inspectName         string
	inspectTag          string
	inspectDataType     string
	inspectDefinedOnly  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [TYPE NAMESPACE]",
	Short: "Inspect store properties with filtering",
	Long: `Inspect the seeded store in list or get mode.

List Mode (no arguments):
  Displays properties matching filters as a table or JSONL stream.

Get Mode (TYPE NAMESPACE):
  Displays one namespace in its replication form as pretty-printed JSON.

Output Formats (list mode only):
  default - Human-readable table with type, namespace, name, data type, tags and value
  jsonl   - Line-delimited JSON, one property per line

Filters (list mode only):
  --type       - Property type (glob pattern: "tok*")
  --namespace  - Namespace (glob pattern)
  --name       - Property name (glob pattern)
  --data-type  - Exact data type (LONG, STRING, JSON_OBJECT, ...)
  --tag        - Property must carry this tag
  --defined    - Hide undefined placeholders

Examples:
  # List everything
  gamedata inspect

  # Numeric token stats as JSONL
  gamedata inspect --type=token --data-type=LONG -o jsonl

  # One namespace
  gamedata inspect token goblin1`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")

	inspectCmd.Flags().StringVar(&inspectType, "type", "", "Filter by property type (glob pattern)")
	inspectCmd.Flags().StringVar(&inspectNamespace, "namespace", "", "Filter by namespace (glob pattern)")
	inspectCmd.Flags().StringVar(&inspectName, "name", "", "Filter by property name (glob pattern)")
	inspectCmd.Flags().StringVar(&inspectTag, "tag", "", "Filter by tag (exact match)")
	inspectCmd.Flags().StringVar(&inspectDataType, "data-type", "", "Filter by data type (exact match)")
	inspectCmd.Flags().BoolVar(&inspectDefinedOnly, "defined", false, "Only show defined properties")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	isGetMode := len(args) > 0

	var criteria *filter.Criteria
	if !isGetMode {
		if err := listing.OutputFormat(inspectOutputFormat).Validate(); err != nil {
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", inspectOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}

		var err error
		criteria, err = buildCriteria()
		if err != nil {
			return err
		}
	}

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if isGetMode {
		propertyType, namespace := args[0], args[1]
		if err := listing.GetNamespace(ctx, env.store, propertyType, namespace, cmd.OutOrStdout()); err != nil {
			if listing.IsNotFound(err) {
				return printer.Error(
					"namespace not found",
					fmt.Sprintf("No namespace %s/%s in instance '%s'.", propertyType, namespace, env.config.Instance),
					[]string{"List namespaces:\n  gamedata inspect"},
				)
			}
			return printer.StoreError("failed to read namespace", err)
		}
		return nil
	}

	if err := listing.ListProperties(ctx, env.store, env.config.Instance, listing.OutputFormat(inspectOutputFormat), criteria, cmd.OutOrStdout()); err != nil {
		return printer.StoreError("failed to list properties", err)
	}
	return nil
}

func buildCriteria() (*filter.Criteria, error) {
	criteria := &filter.Criteria{
		TypeGlob:      inspectType,
		NamespaceGlob: inspectNamespace,
		NameGlob:      inspectName,
		Tag:           inspectTag,
		DefinedOnly:   inspectDefinedOnly,
	}

	if inspectDataType != "" {
		dt, err := datastore.ParseDataType(inspectDataType)
		if err != nil {
			names := make([]string, 0, len(datastore.AllDataTypes()))
			for _, t := range datastore.AllDataTypes() {
				names = append(names, t.String())
			}
			return nil, printer.Error(
				"invalid data type",
				err.Error(),
				[]string{fmt.Sprintf("Valid data types: %v", names)},
			)
		}
		criteria.DataType = &dt
	}

	return criteria, nil
}
