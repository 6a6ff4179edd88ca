package constants

// On-disk artifact locations, all relative to the project root.
const (
	// ProjectDirName is the per-project metadata directory.
	ProjectDirName = ".ixado"

	// LockFileName is the single-writer execution lock file.
	LockFileName = "execution-run.lock.json"

	// AuditLogFileName is the append-only authorization audit log.
	AuditLogFileName = "audit.log"

	// StateFileName holds the persisted project state.
	StateFileName = "state.json"

	// ConfigFileName is the project configuration file.
	ConfigFileName = "config.yaml"

	// PolicyFileName is the authorization policy file.
	PolicyFileName = "policy.yaml"

	// LogFileName is the rotating engine log.
	LogFileName = "ixado.log"
)
