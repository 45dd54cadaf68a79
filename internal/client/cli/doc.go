// Package cli provides the interactive Tables command-line client.
//
// It drives a coordinator.Coordinator from a read-eval-print loop: account
// commands (register, login, logout, profile, search), table commands
// (tables, create, share, unshare, archive, unarchive, delete, leave, remind,
// nudge, watch), card commands (cards, card, discuss, comments, comment) and
// reflection commands (reflections, reflect, edit-reflection,
// delete-reflection, share-reflection, seed).
//
// Tables and reflections are addressed by their position in the last listing
// ("2") or by an id prefix. Destructive commands ask for confirmation.
// Reminders fired while the REPL runs are printed with their deep link.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
