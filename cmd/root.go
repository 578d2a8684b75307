package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johannesne/govital/vital"
)

var cfgFile string
var debug bool

var (
	infoOnly bool
	outDir   string
	trkIDs   []int
	names    []string
	saveAll  bool
	gzipOut  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "govital [flags] <file.vital>",
	Short: "Decode .vital captures and export tracks to CSV",
	Long: `govital decodes .vital binary captures produced by the Vital Recorder
and exports individual tracks as two-column (timestamp, value) CSV files.

Output CSVs are named <input stem>_signal_<track name>_<device id>.csv[.gz].`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args[0])
	},
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.govital.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	RootCmd.Flags().BoolVarP(&infoOnly, "info", "I", false, "print file and track summary; do not export")
	RootCmd.Flags().StringVarP(&outDir, "outdir", "o", "", "directory for csv files (default ./converted)")
	RootCmd.Flags().IntSliceVarP(&trkIDs, "trkid", "t", nil, "id(s) of track(s) to export")
	RootCmd.Flags().StringSliceVarP(&names, "name", "n", nil, "name(s) of track(s) to export")
	RootCmd.Flags().BoolVar(&saveAll, "saveall", false, "export every track")
	RootCmd.Flags().BoolVar(&gzipOut, "gzip", false, "gzip the emitted csv files")

	viper.SetDefault("outdir", "converted")
	if err := viper.BindPFlag("outdir", RootCmd.Flags().Lookup("outdir")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("gzip", RootCmd.Flags().Lookup("gzip")); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".govital")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("govital")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.Debugf("using config file: %s", viper.ConfigFileUsed())
	}

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	vital.SetLogger(logrus.StandardLogger())
}
