package autoupdate

import (
	"fmt"
)

// Stage names a step of the per-package pipeline
type Stage string

const (
	StageCheckout     Stage = "checkout"
	StageReadVersion  Stage = "read-version"
	StageResolve      Stage = "resolve"
	StageUpstream     Stage = "upstream"
	StageCompare      Stage = "compare"
	StageSpecUpdate   Stage = "spec-update"
	StageFetchSources Stage = "fetch-sources"
	StageMockBuild    Stage = "mock-build"
	StageUpload       Stage = "upload"
	StageCommit       Stage = "commit"
	StagePush         Stage = "push"
	StageBuild        Stage = "build"

	// Stages used only when adding a version-check configuration
	StageDownload Stage = "download"
	StageValidate Stage = "validate"
	StageAdd      Stage = "add"
)

// StageError records the stage at which a package failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind classifies an Outcome
type Kind int

const (
	// Updated means the package was bumped, pushed and a build was triggered
	Updated Kind = iota
	// UpToDate means the packaged version matches upstream
	UpToDate
	// Skipped means the package was intentionally left alone
	Skipped
	// Failed means a stage failed and the package was abandoned
	Failed
	// Added means a version-check configuration was committed to the package
	Added
)

func (k Kind) String() string {
	switch k {
	case Updated:
		return "updated"
	case UpToDate:
		return "up-to-date"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Added:
		return "added"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the terminal result of processing one package
type Outcome struct {
	Package string
	Kind    Kind
	// From is the packaged version, To the upstream one. For UpToDate both hold the same version.
	From string
	To   string
	// Reason explains a Skipped outcome
	Reason string
	// Source is the configuration URL committed by an Added outcome
	Source string
	Stage  Stage
	Err    error
}

// Message renders the outcome as a single log line without timestamp
func (o Outcome) Message() string {
	switch o.Kind {
	case Updated:
		return fmt.Sprintf("%s upgraded [%s] to [%s]", o.Package, o.From, o.To)
	case UpToDate:
		return fmt.Sprintf("%s is up to date [%s]", o.Package, o.From)
	case Skipped:
		return fmt.Sprintf("%s skipped: %s", o.Package, o.Reason)
	case Failed:
		return fmt.Sprintf("%s failed at %s: %v", o.Package, o.Stage, o.Err)
	case Added:
		return fmt.Sprintf("%s added .nvchecker.toml from %s", o.Package, o.Source)
	}
	return fmt.Sprintf("%s: %s", o.Package, o.Kind)
}

func updated(pkg, from, to string) Outcome {
	return Outcome{Package: pkg, Kind: Updated, From: from, To: to}
}

func upToDate(pkg, version string) Outcome {
	return Outcome{Package: pkg, Kind: UpToDate, From: version, To: version}
}

func skipped(pkg, format string, args ...any) Outcome {
	return Outcome{Package: pkg, Kind: Skipped, Reason: fmt.Sprintf(format, args...)}
}

func failed(pkg string, stage Stage, err error) Outcome {
	return Outcome{Package: pkg, Kind: Failed, Stage: stage, Err: err}
}

// Summary counts outcomes per kind
type Summary struct {
	Updated  int
	UpToDate int
	Skipped  int
	Failed   int
	Added    int
}

// Summarize counts outcomes per kind
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Kind {
		case Updated:
			s.Updated++
		case UpToDate:
			s.UpToDate++
		case Skipped:
			s.Skipped++
		case Failed:
			s.Failed++
		case Added:
			s.Added++
		}
	}
	return s
}
