package model

import "strings"

// AccountRecord represents one row of the backing account table. Each
// field corresponds to a column of the `accounts` table. A record is
// identified by its row position in the table, which stays stable for the
// table's lifetime; the username doubles as a correlation key when a
// holder reports an outcome, because the holder only remembers the
// username, not the row position.
//
// Fields:
//  Username     – login name of the shared account.
//  Password     – password for the account (opaque string).
//  MailAddress  – mailbox tied to the account.
//  MailPassword – password for that mailbox.
//  State        – lifecycle state cell (see the State* constants).
//  Assignee     – identity of the current holder; empty when unassigned.
//  Region       – free-form region value; "LATAM" is reserved and makes the
//                 row ineligible for allocation.
type AccountRecord struct {
	Username     string // accounts.username
	Password     string // accounts.password
	MailAddress  string // accounts.mail_address
	MailPassword string // accounts.mail_password
	State        string // accounts.state
	Assignee     string // accounts.assignee
	Region       string // accounts.region
}

// Lifecycle states of an account row. FREE rows are eligible for a claim;
// ASSIGNED rows are checked out to exactly one requester; the remaining
// three are terminal for the allocation engine (re-entry to FREE requires
// an external reset of the table).
const (
	StateFree          = "FREE"
	StateAssigned      = "ASSIGNED"
	StateWorking       = "WORKING"
	StateBroken        = "BROKEN"
	StateRegionFlagged = "REGION_FLAGGED"
)

// RegionLATAM is the reserved region value. Rows carrying it are skipped by
// the claim scan, and a REGION_MISMATCH report stamps it onto the row.
const RegionLATAM = "LATAM"

// Field names a writable cell of an account row. The store adapter maps a
// Field to whatever column addressing its backend uses.
type Field string

// Writable cells. Credential cells are owned by whoever maintains the
// table and are never written by this service.
const (
	FieldState    Field = "state"
	FieldAssignee Field = "assignee"
	FieldRegion   Field = "region"
)

// RowMarker is the visual annotation applied to a whole row, mirroring the
// background color the table's human operators see. Marker writes are
// best-effort only; a failed marker write never aborts a state transition.
type RowMarker string

const (
	MarkerNeutral       RowMarker = "NEUTRAL"
	MarkerClaimed       RowMarker = "CLAIMED"
	MarkerBroken        RowMarker = "BROKEN"
	MarkerRegionFlagged RowMarker = "REGION_FLAGGED"
)

// Outcome is the holder's verdict on an assigned account.
type Outcome string

const (
	OutcomeWorks          Outcome = "WORKS"
	OutcomeBroken         Outcome = "BROKEN"
	OutcomeRegionMismatch Outcome = "REGION_MISMATCH"
)

// ParseOutcome normalizes a wire-level outcome string. It accepts the
// canonical names case-insensitively and reports whether the value was
// recognized.
func ParseOutcome(s string) (Outcome, bool) {
	switch Outcome(strings.ToUpper(strings.TrimSpace(s))) {
	case OutcomeWorks:
		return OutcomeWorks, true
	case OutcomeBroken:
		return OutcomeBroken, true
	case OutcomeRegionMismatch:
		return OutcomeRegionMismatch, true
	}
	return "", false
}

// HasState compares the row's state cell against want, trimming whitespace
// and ignoring case. Table cells are edited by humans, so " free " and
// "FREE" both count.
func (r AccountRecord) HasState(want string) bool {
	return strings.EqualFold(strings.TrimSpace(r.State), want)
}

// IsLATAM reports whether the row's region cell carries the reserved LATAM
// value, compared case-insensitively after trimming.
func (r AccountRecord) IsLATAM() bool {
	return strings.ToUpper(strings.TrimSpace(r.Region)) == RegionLATAM
}

// Claimable reports whether the claim scan may select this row: the state
// cell must read FREE and the region must not be LATAM.
func (r AccountRecord) Claimable() bool {
	return r.HasState(StateFree) && !r.IsLATAM()
}
