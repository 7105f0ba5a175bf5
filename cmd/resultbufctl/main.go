package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.uber.org/zap"

	"github.com/kestrelql/kestrel/pkg/resultbuffer"
	"github.com/kestrelql/kestrel/pkg/session"
	"github.com/kestrelql/kestrel/pkg/sortorder"
	"github.com/kestrelql/kestrel/pkg/util"
	"github.com/kestrelql/kestrel/pkg/value"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initBenchCmd()
}

var bufCfg = &util.BufctlConfig{}
var explicitConfigPath string

var info = "resultbufctl"
var RootCmd = &cobra.Command{
	Use:          "resultbufctl",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use resultbufctl --help or -h")
	},
}

var benchInfo = "drive a synthetic workload through a ResultBuffer and report timings"
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: benchInfo,
	Long:  benchInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		if explicitConfigPath != "" {
			if _, err := toml.DecodeFile(explicitConfigPath, bufCfg); err != nil {
				return fmt.Errorf("decode %s: %w", explicitConfigPath, err)
			}
		} else {
			initBenchCfg()
		}
		return runBench(bufCfg)
	},
}

func initBenchCfg() {
	bufCfg.Debug.ShowRaw = viper.GetBool("debug.showRaw")
	bufCfg.Bench.Rows = viper.GetInt("bench.rows")
	bufCfg.Bench.Columns = viper.GetInt("bench.columns")
	bufCfg.Bench.Distinct = viper.GetBool("bench.distinct")
	bufCfg.Bench.Sort = viper.GetBool("bench.sort")
	bufCfg.Bench.Offset = viper.GetInt("bench.offset")
	bufCfg.Bench.Limit = viper.GetInt("bench.limit")
	bufCfg.Bench.FetchPercent = viper.GetBool("bench.fetchPercent")
	bufCfg.Bench.WithTies = viper.GetBool("bench.withTies")
	bufCfg.Bench.MaxMemoryRows = viper.GetInt("bench.maxMemoryRows")
	bufCfg.Bench.Backend = viper.GetString("bench.backend")
}

func initBenchCmd() {
	RootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&bufCfg.Bench.Rows, "rows", 100000, "rows to generate")
	benchCmd.Flags().IntVar(&bufCfg.Bench.Columns, "columns", 4, "columns per row")
	benchCmd.Flags().BoolVar(&bufCfg.Bench.Distinct, "distinct", false, "configure all-column distinct")
	benchCmd.Flags().BoolVar(&bufCfg.Bench.Sort, "sort", true, "sort by column 0 ascending")
	benchCmd.Flags().IntVar(&bufCfg.Bench.Offset, "offset", 0, "window offset")
	benchCmd.Flags().IntVar(&bufCfg.Bench.Limit, "limit", -1, "window limit, -1 for unbounded")
	benchCmd.Flags().BoolVar(&bufCfg.Bench.FetchPercent, "fetch_percent", false, "treat limit as a percentage")
	benchCmd.Flags().BoolVar(&bufCfg.Bench.WithTies, "with_ties", false, "extend the window to include ties")
	benchCmd.Flags().IntVar(&bufCfg.Bench.MaxMemoryRows, "max_memory_rows", -1, "spill threshold, -1 for unbounded")
	benchCmd.Flags().StringVar(&explicitConfigPath, "config", "", "decode bench settings from this TOML file directly, bypassing the search path")

	viper.BindPFlag("bench.rows", benchCmd.Flags().Lookup("rows"))
	viper.BindPFlag("bench.columns", benchCmd.Flags().Lookup("columns"))
	viper.BindPFlag("bench.distinct", benchCmd.Flags().Lookup("distinct"))
	viper.BindPFlag("bench.sort", benchCmd.Flags().Lookup("sort"))
	viper.BindPFlag("bench.offset", benchCmd.Flags().Lookup("offset"))
	viper.BindPFlag("bench.limit", benchCmd.Flags().Lookup("limit"))
	viper.BindPFlag("bench.fetchPercent", benchCmd.Flags().Lookup("fetch_percent"))
	viper.BindPFlag("bench.withTies", benchCmd.Flags().Lookup("with_ties"))
	viper.BindPFlag("bench.maxMemoryRows", benchCmd.Flags().Lookup("max_memory_rows"))
}

var defCfgFilePaths = []string{".", "etc/resultbufctl"}
var cfgFileName = "resultbufctl.toml"

// loadConfig follows the tester command's config-discovery loop: walk a
// fixed list of candidate directories for a TOML file and let viper parse
// whichever one is found first. Unlike tester, a missing config file is
// not fatal here — every setting also has a CLI-flag default.
func loadConfig() {
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			viper.SetConfigFile(fpath)
			if err := viper.ReadInConfig(); err != nil {
				util.Error("viper load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			return
		}
	}
}

func runBench(cfg *util.BufctlConfig) error {
	util.SetDebugLogging(cfg.Debug.ShowRaw)

	sess := session.New("bench", session.Policy{MaxMemoryRows: cfg.Bench.MaxMemoryRows})
	columns := make([]resultbuffer.ColumnMeta, cfg.Bench.Columns)
	for i := range columns {
		columns[i] = resultbuffer.ColumnMeta{ColumnName: fmt.Sprintf("c%d", i), Type: value.LType{Id: value.LTID_BIGINT}}
	}

	rb := resultbuffer.New(sess, columns, cfg.Bench.Columns)
	rb.SetMaxMemoryRows(cfg.Bench.MaxMemoryRows)
	if cfg.Bench.Distinct {
		if err := rb.ConfigureDistinct(); err != nil {
			return err
		}
	}
	if cfg.Bench.Sort {
		rb.SetSort(sortorder.New(sortorder.Key{ColIdx: 0, Type: sortorder.OT_ASC}))
	}
	rb.SetOffset(cfg.Bench.Offset)
	rb.SetLimit(cfg.Bench.Limit)
	rb.SetFetchPercent(cfg.Bench.FetchPercent)
	rb.SetWithTies(cfg.Bench.WithTies)

	start := time.Now()
	for i := 0; i < cfg.Bench.Rows; i++ {
		row := make(value.Row, cfg.Bench.Columns)
		for c := range row {
			row[c] = value.NewBigInt(int64((i*31 + c*7) % cfg.Bench.Rows))
		}
		if err := rb.AddRow(row); err != nil {
			return err
		}
	}
	loadElapsed := time.Since(start)

	start = time.Now()
	if err := rb.Done(); err != nil {
		return err
	}
	doneElapsed := time.Since(start)

	n := 0
	for {
		ok, err := rb.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		n++
	}

	util.Info("bench complete",
		zap.Int("rowsIn", cfg.Bench.Rows),
		zap.Int("rowsOut", n),
		zap.Duration("load", loadElapsed),
		zap.Duration("done", doneElapsed))

	return rb.Close()
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
