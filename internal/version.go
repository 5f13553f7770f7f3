package internal

// Build-time variables injected via ldflags:
//
//	-X github.com/altuslabsxyz/checklist-migrator/internal.Version={{.Version}}
//	-X github.com/altuslabsxyz/checklist-migrator/internal.GitCommit={{.FullCommit}}
//	-X github.com/altuslabsxyz/checklist-migrator/internal.BuildDate={{.Date}}
var (
	// Version is the semantic version of the application.
	Version = "0.1.0-dev"

	// GitCommit is the git commit hash of the build.
	GitCommit = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)
