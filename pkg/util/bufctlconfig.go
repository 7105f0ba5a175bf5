package util

// BufctlBench carries the synthetic benchmark parameters for the
// resultbufctl bench subcommand: how many rows to generate, whether to
// configure distinctness, and which window to apply.
type BufctlBench struct {
	Rows         int    `tag:"rows"`
	Columns      int    `tag:"columns"`
	Distinct     bool   `tag:"distinct"`
	Sort         bool   `tag:"sort"`
	Offset       int    `tag:"offset"`
	Limit        int    `tag:"limit"`
	FetchPercent bool   `tag:"fetchPercent"`
	WithTies     bool   `tag:"withTies"`
	MaxMemoryRows int   `tag:"maxMemoryRows"`
	Backend      string `tag:"backend"`
}

// DebugOptions toggles resultbufctl's development-mode logging.
type DebugOptions struct {
	ShowRaw bool `tag:"showRaw"`
}

type BufctlConfig struct {
	Bench BufctlBench  `tag:"bench"`
	Debug DebugOptions `tag:"debug"`
}
