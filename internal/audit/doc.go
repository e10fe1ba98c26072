// Package audit keeps a local history of synapse runs in the run_history
// table.
//
// Recorder plugs into kalliope.WithRecorder so every start request is
// written, including failed ones:
//
//	repo := audit.NewSQLiteRepository(db.DB)
//	client := kalliope.New(kalliope.WithRecorder(audit.NewRecorder(repo, log)))
//
// Entries are listed most recent first with optional filters.
package audit
