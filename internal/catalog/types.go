// Package catalog implements the durable, transactional store over the
// drive/file/duplicate-group/plan/step/audit schema. All enum values below
// preserve the exact lowercase spellings required at the catalog boundary.
package catalog

// Drive role values.
const (
	RoleSource  = "source"
	RoleTarget  = "target"
	RoleBackup  = "backup"
	RoleOffload = "offload"
)

// Drive backend values.
const (
	BackendLocal  = "local"
	BackendRclone = "rclone"
)

// File status values.
const (
	FileStatusIndexed        = "indexed"
	FileStatusClassified     = "classified"
	FileStatusPlanned        = "planned"
	FileStatusMigrating      = "migrating"
	FileStatusVerified       = "verified"
	FileStatusSourceRemoved  = "source_removed"
)

// File priority values.
const (
	PriorityCritical = "critical"
	PriorityNormal   = "normal"
	PriorityLow      = "low"
	PriorityTrash    = "trash"
)

// Plan status values.
const (
	PlanStatusDraft      = "draft"
	PlanStatusApproved   = "approved"
	PlanStatusInProgress = "in_progress"
	PlanStatusCompleted  = "completed"
	PlanStatusAborted    = "aborted"
)

// Step action values — a closed five-variant sum type.
const (
	ActionMove     = "move"
	ActionCopy     = "copy"
	ActionDelete   = "delete"
	ActionHardlink = "hardlink"
	ActionSymlink  = "symlink"
)

// Step status values.
const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
	StepStatusFailed     = "failed"
	StepStatusRolledBack = "rolled_back"
)

// Audit agent-mode values.
const (
	AgentModeManual    = "manual"
	AgentModeAutomated = "automated"
)

// Drive represents one registered storage volume.
type Drive struct {
	ID           int64
	Label        string
	DeviceID     *string
	DevicePath   *string
	UUID         *string
	MountPath    *string
	FSType       *string
	TotalBytes   *int64
	Role         string
	IsOnline     bool
	IsReadonly   bool
	Backend      string
	RcloneRemote *string
	ScannedAt    *string
	AddedAt      string
}

// File is one catalog entry for a single path on a single drive.
type File struct {
	ID              int64
	DriveID         int64
	Path            string
	AbsPath         string
	Filename        string
	Extension       *string
	SizeBytes       int64
	MD5Hash         *string
	Blake3Hash      *string
	CreatedAt       *string
	ModifiedAt      *string
	Inode           *int64
	DeviceNum       *int64
	Nlinks          *int64
	MimeType        *string
	IsSymlink       bool
	SymlinkTarget   *string
	Category        *string
	Subcategory     *string
	TargetPath      *string
	TargetDriveID   *int64
	Priority        string
	DuplicateGroup  *int64
	IsOriginal      bool
	RmlintType      *string
	Status          string
	MigratedTo      *string
	MigratedToDrive *int64
	MigratedAt      *string
	VerifiedHash    *string
	Error           *string
	IndexedAt       string
}

// DuplicateGroup is a content-equivalence class keyed by canonical hash.
type DuplicateGroup struct {
	GroupID         int64
	Hash            string
	FileCount       int64
	TotalWasteBytes int64
	OriginalID      *int64
	DrivesInvolved  []int64
	CrossDrive      bool
	Resolution      *string
}

// Plan is a named batch of migration steps.
type Plan struct {
	ID             int64
	CreatedAt      string
	Description    *string
	SourceDriveID  *int64
	TargetDriveID  *int64
	Status         string
	TotalFiles     int64
	TotalBytes     int64
	CompletedFiles int64
	CompletedBytes int64
}

// Step is one atomic operation within a plan.
type Step struct {
	ID            int64
	PlanID        int64
	FileID        int64
	Action        string
	SourcePath    string
	SourceDriveID *int64
	DestPath      *string
	DestDriveID   *int64
	Status        string
	PreHash       *string
	PostHash      *string
	ExecutedAt    *string
	Error         *string
	StepOrder     int64
}

// AuditEntry is an append-only record of one plan/step/rollback event.
type AuditEntry struct {
	ID        int64
	Timestamp string
	Action    string
	FileID    *int64
	PlanID    *int64
	DriveID   *int64
	Details   *string
	AgentMode *string
}
