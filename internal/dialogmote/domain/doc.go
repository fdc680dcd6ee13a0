// Package domain implements the dialogue-meeting lifecycle: the status
// state machine, per-participant notification creation, practitioner
// message threading, the single-response rule and the minutes
// draft/finalize/amend workflow. Persistence and delivery are behind
// the Store and collaborator interfaces; every accepted transition is
// committed as one atomic change.
package domain
