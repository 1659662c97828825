package scheduler

// ExportedPrune exposes the private prune job for external tests.
func (s *Scheduler) ExportedPrune() {
	s.prune()
}
