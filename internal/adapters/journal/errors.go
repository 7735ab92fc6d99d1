package journal

import "errors"

// Sentinel kinds for journal errors.
var (
	ErrOpenJournal  = errors.New("open journal failed")
	ErrCloseJournal = errors.New("close journal failed")
	ErrJournalRead  = errors.New("journal read failed")
	ErrJournalWrite = errors.New("journal write failed")
)
