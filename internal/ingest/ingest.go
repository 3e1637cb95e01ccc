// Package ingest holds the pure, storage-independent computations used by
// the ingestion pipeline (component C): time bucketing and the argument
// digest stored in parsed_commands.args_hash. The transactional
// orchestration that calls these lives in internal/store, where the
// single mutex-guarded connection is owned.
package ingest

// TimeBucket quantizes a unix-second timestamp into one of 24 hourly
// buckets of the UTC day, (ts mod 86400) / 3600. The value is stored in
// history.time_bucket; the ranker does not read it.
func TimeBucket(unixSeconds int64) int {
	return int((unixSeconds % 86400) / 3600)
}

// ArgsDigest summarizes a command's learnable arguments into a short,
// stable string stored in parsed_commands.args_hash. Per the spec's
// Open Question (b), the digest is simply the first 50 characters of the
// joined argument list rather than a cryptographic hash: it only needs to
// be stable and short, not collision-resistant, since it's a descriptive
// field rather than a lookup key.
func ArgsDigest(args []string) string {
	joined := ""
	for i, a := range args {
		if i > 0 {
			joined += " "
		}
		joined += a
	}
	if len(joined) > 50 {
		return joined[:50]
	}
	return joined
}
