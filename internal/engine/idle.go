package engine

import "context"

// Defer queues task for the next idle turn. Safe from any goroutine.
// Tasks deferred after Stop or Destroy are dropped.
func (s *Store) Defer(task func() error) {
	if task == nil {
		return
	}
	if !s.idle.Push(task) {
		s.logger.Debug("deferred task dropped: store stopped")
	}
}

// Enqueue defers a dispatch of action. Returns false once the store has
// stopped.
func (s *Store) Enqueue(action any) bool {
	return s.idle.Push(func() error {
		_, err := s.Dispatch(action)
		return err
	})
}

// Flush runs deferred tasks on the caller until none are left, including
// tasks deferred while flushing. It stops at and returns the first error.
func (s *Store) Flush() error {
	for {
		task, ok := s.idle.TryPop()
		if !ok {
			return nil
		}
		if err := task(); err != nil {
			return err
		}
	}
}

// PendingTasks returns the number of deferred tasks waiting to run.
func (s *Store) PendingTasks() int {
	return s.idle.Len()
}

// Run is the idle loop. It runs deferred tasks as they arrive and blocks
// in between.
//
// Returns ctx.Err() on cancellation, nil after Stop once the queue is
// drained, or the first task error. Must be called from one goroutine;
// other goroutines hand work to it with Enqueue or Defer.
func (s *Store) Run(ctx context.Context) error {
	s.logger.Info("idle loop starting")

	for {
		if task, ok := s.idle.TryPop(); ok {
			if err := task(); err != nil {
				s.logger.Error("idle task failed", "error", err)
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("idle loop stopping: context cancelled")
			return ctx.Err()

		case <-s.idle.Wait():
			// The signal channel closes with the queue.
			if s.idle.Closed() && s.idle.Len() == 0 {
				s.logger.Info("idle loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the idle queue. Run returns once it has drained.
func (s *Store) Stop() {
	s.idle.Close()
}
