package authz

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
)

// AuditEntry is one line of the append-only audit log.
type AuditEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Actor       string    `json:"actor"`
	Role        string    `json:"role"`
	Action      string    `json:"action"`
	Target      string    `json:"target,omitempty"`
	Decision    string    `json:"decision"`
	Reason      string    `json:"reason,omitempty"`
	CommandHash string    `json:"commandHash,omitempty"`
}

// Auditor records authorization decisions and recovery milestones.
type Auditor interface {
	Record(entry AuditEntry)
}

// FileAuditor appends JSON lines to .ixado/audit.log under the project root.
// Write failures are logged and swallowed; auditing must never block the
// engine.
type FileAuditor struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewFileAuditor creates an auditor writing under projectRoot.
func NewFileAuditor(projectRoot string, logger zerolog.Logger) *FileAuditor {
	return &FileAuditor{
		path:   filepath.Join(projectRoot, constants.ProjectDirName, constants.AuditLogFileName),
		logger: logger,
	}
}

// Record appends one entry. The timestamp is filled in when zero.
func (a *FileAuditor) Record(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o750); err != nil {
		a.logger.Warn().Err(err).Msg("audit log directory unavailable")
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		a.logger.Warn().Err(err).Msg("audit entry marshal failed")
		return
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		a.logger.Warn().Err(err).Msg("audit log open failed")
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, string(data)); err != nil {
		a.logger.Warn().Err(err).Msg("audit log write failed")
	}
}

// NopAuditor discards all entries. Used in tests.
type NopAuditor struct{}

// Record discards the entry.
func (NopAuditor) Record(AuditEntry) {}

// HashCommand produces the short digest recorded alongside privileged actions.
func HashCommand(command string) string {
	if command == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(command))
	return hex.EncodeToString(sum[:])[:12]
}

// DecisionEntry builds an audit entry from an authorization decision. The
// entry is stamped here so every Auditor receives the complete shape.
func DecisionEntry(actor string, role domain.Role, action, target, command string, decision Decision) AuditEntry {
	entry := AuditEntry{
		Timestamp:   time.Now().UTC(),
		Actor:       actor,
		Role:        role.String(),
		Action:      action,
		Target:      target,
		Decision:    "deny",
		Reason:      string(decision.Reason),
		CommandHash: HashCommand(command),
	}
	if decision.Allowed {
		entry.Decision = "allow"
		entry.Reason = ""
	}
	return entry
}
