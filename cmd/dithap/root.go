package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dithap/dithap-explorer/internal/curves"
	"github.com/dithap/dithap-explorer/internal/dataset"
	"github.com/dithap/dithap-explorer/internal/stringdb"
)

const configName = ".dithap"

var (
	cfgFile string
	verbose bool
	format  string
	logger  = zap.NewNop()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dithap",
		Short: "Explore DIT-HAP fitness screen results",
		Long: `dithap resolves gene lists, runs ontology enrichment against configurable
backgrounds, and serves depletion curves and STRING enrichment for the
fission yeast DIT-HAP screen.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if format != "tab" && format != "json" {
				return usagef("unknown output format %q (want tab or json)", format)
			}
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dithap.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "tab", "output format: tab, json")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.AddCommand(
		newResolveCmd(),
		newGeneSetsCmd(),
		newGeneCmd(),
		newEnrichCmd(),
		newCurvesCmd(),
		newStringCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
	}

	viper.SetEnvPrefix("DITHAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault("string.base_url", stringdb.DefaultBaseURL)
	viper.SetDefault("string.species", stringdb.DefaultSpecies)
	viper.SetDefault("string.caller_identity", stringdb.DefaultCallerIdentity)
	viper.SetDefault("string.retries", stringdb.DefaultRetries)
	viper.SetDefault("string.retry_delay", stringdb.DefaultRetryDelay)
	viper.SetDefault("server.addr", ":8080")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadDataset builds the dataset from configuration.
func loadDataset() *dataset.Dataset {
	src := dataset.Sources{
		GeneInfo:     viper.GetString("data.gene_info"),
		ClusterFile:  viper.GetString("data.cluster_file"),
		CuratedFile:  viper.GetString("data.curated_file"),
		Essentiality: viper.GetString("data.essentiality"),
		Ontologies: []dataset.OntologySource{
			{Name: "GO", OBO: viper.GetString("ontologies.go.obo"), GAF: viper.GetString("ontologies.go.gaf")},
			{
				Name: "FYPO",
				OBO:  viper.GetString("ontologies.fypo.obo"),
				GAF:  viper.GetString("ontologies.fypo.gaf"),
				PHAF: viper.GetString("ontologies.fypo.phaf"),
			},
		},
	}
	d := dataset.New(src)
	d.SetLogger(logger)
	return d
}

// curveFiles returns the configured depletion-curve inputs.
func curveFiles() curves.Files {
	return curves.Files{
		GeneLFC:              viper.GetString("data.gene_lfc"),
		Timepoints:           viper.GetString("data.timepoints"),
		InsertionLFC:         viper.GetString("data.insertion_lfc"),
		InsertionAnnotations: viper.GetString("data.insertion_annotations"),
	}
}

// openCurves opens the depletion-curve store and loads the configured
// tables. It returns a nil store when no LFC table is configured.
func openCurves() (*curves.Store, curves.Files, error) {
	files := curveFiles()
	if files.GeneLFC == "" {
		return nil, files, nil
	}
	if files.Timepoints == "" {
		return nil, files, fmt.Errorf("data.timepoints: %w", dataset.ErrNotConfigured)
	}

	s, err := curves.Open(viper.GetString("data.curve_db"))
	if err != nil {
		return nil, files, err
	}
	s.SetLogger(logger)
	if _, err := s.Sync(files); err != nil {
		s.Close()
		return nil, files, err
	}
	return s, files, nil
}

func newStringClient() *stringdb.Client {
	c := stringdb.NewClient(stringdb.Options{
		BaseURL:        viper.GetString("string.base_url"),
		Species:        viper.GetInt("string.species"),
		CallerIdentity: viper.GetString("string.caller_identity"),
		Retries:        viper.GetInt("string.retries"),
		RetryDelay:     viper.GetDuration("string.retry_delay"),
	})
	c.SetLogger(logger)
	return c
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
