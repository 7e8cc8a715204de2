package domain

// EntryObserver receives store change notifications. Callbacks run on engine
// goroutines; consumers marshal to their own threads.
type EntryObserver interface {
	OnEntryAdded(entry *LogEntry)
	OnEntriesAdded(entries []*LogEntry)
	OnCleared()
}

// AlertObserver receives rule-firing notifications.
type AlertObserver interface {
	OnAlertFired(alert *LogAlert)
}
