package store

import "time"

func SetClock(s *DocumentStore, now func() time.Time) { s.now = now }
