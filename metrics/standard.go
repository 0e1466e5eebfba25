package metrics

// Pipeline metrics. All live in DefaultRegistry. Timings are in
// microseconds; GridRows and GridCols hold the shape of the last
// unextended grid.

var (
	// ---- Encoding ----

	BlocksEncoded  = DefaultRegistry.Counter("das.blocks_encoded")
	EncodeFailures = DefaultRegistry.Counter("das.encode_failures")
	ExtrinsicBytes = DefaultRegistry.Counter("das.extrinsic_bytes")
	CellsEncoded   = DefaultRegistry.Counter("das.cells_encoded")
	GridRows       = DefaultRegistry.Gauge("das.grid_rows")
	GridCols       = DefaultRegistry.Gauge("das.grid_cols")

	BuildTime  = DefaultRegistry.Histogram("das.build_us")
	ExtendTime = DefaultRegistry.Histogram("das.extend_us")
	CommitTime = DefaultRegistry.Histogram("das.commit_us")

	// ---- Sampling and verification ----

	CellsSampled  = DefaultRegistry.Counter("das.cells_sampled")
	CellsVerified = DefaultRegistry.Counter("das.cells_verified")
	CellsRejected = DefaultRegistry.Counter("das.cells_rejected")

	// ---- Recovery ----

	RowsRecovered    = DefaultRegistry.Counter("recovery.rows_recovered")
	RowsInsufficient = DefaultRegistry.Counter("recovery.rows_insufficient")
	RowsInconsistent = DefaultRegistry.Counter("recovery.rows_inconsistent")
	ReconstructTime  = DefaultRegistry.Histogram("recovery.reconstruct_us")

	// ---- Blob export ----

	BlobsExported = DefaultRegistry.Counter("blobs.exported")
)
