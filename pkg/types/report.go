package types

import "time"

// FileStatus describes the outcome of indexing one file within a reindex run.
type FileStatus struct {
	Path           string
	Parsed         bool
	BlocksFound    int
	BlocksEmbedded int
	ParseError     *ParseFailure
	EmbedErrors    []EmbeddingFailure
}

// Failed reports whether the file contributed nothing to the index.
func (fs *FileStatus) Failed() bool {
	return !fs.Parsed
}

// IndexReport enumerates per-file success/failure for one reindex run.
// Per-item failures are recorded here instead of aborting the batch.
type IndexReport struct {
	RunID   string // UUID of the indexing run
	Project string

	Files []FileStatus

	BlocksIndexed  int
	BlocksEmbedded int
	FilesFailed    int

	StartedAt time.Time
	Duration  time.Duration
}

// AddFile appends a per-file status and folds its counts into the totals.
func (r *IndexReport) AddFile(fs FileStatus) {
	r.Files = append(r.Files, fs)
	r.BlocksIndexed += fs.BlocksFound
	r.BlocksEmbedded += fs.BlocksEmbedded
	if fs.Failed() {
		r.FilesFailed++
	}
}

// Errors collects every per-item failure in the report.
func (r *IndexReport) Errors() []string {
	var msgs []string
	for i := range r.Files {
		f := &r.Files[i]
		if f.ParseError != nil {
			msgs = append(msgs, f.ParseError.Error())
		}
		for j := range f.EmbedErrors {
			msgs = append(msgs, f.EmbedErrors[j].Error())
		}
	}
	return msgs
}
