package contracts

// BuildSummary is the dataset-build command's machine-readable stdout
// object: every counter and written path from the run.
type BuildSummary struct {
	RunID   string `json:"run_id"`
	RunDate string `json:"run_date"`
	DryRun  bool   `json:"dry_run,omitempty"`

	Normalize NormalizeCounters `json:"normalize"`

	RowsExtracted  int `json:"rows_extracted"`
	SkippedNoLabel int `json:"skipped_no_label"`
	SkippedNoPL    int `json:"skipped_no_pl"`
	SkippedMode    int `json:"skipped_mode"`
	SkippedMinQty  int `json:"skipped_min_qty"`

	BehaviorPath       string            `json:"behavior_path,omitempty"`
	BehaviorLatestPath string            `json:"behavior_latest_path,omitempty"`
	PartitionPaths     map[string]string `json:"partition_paths,omitempty"`
	DatasetPath        string            `json:"dataset_path,omitempty"`
	Format             string            `json:"format,omitempty"`
}
