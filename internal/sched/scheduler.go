// SPDX-License-Identifier: MIT
// Package sched drives the per-frame analysis loop: once per tick it polls
// every live analyzer for a snapshot, assembles the aggregated frame, and
// hands it to the single registered consumer.
package sched

import (
	"sync"
	"time"

	"stemscope/internal/analyzer"
	applog "stemscope/internal/log"
)

// AnalyzerSource provides the scheduler's read-only view of the live
// analyzers. The graph manager implements it.
type AnalyzerSource interface {
	Analyzers() map[analyzer.Role]*analyzer.Analyzer
}

// Consumer receives one aggregated snapshot per tick, synchronously on the
// scheduler goroutine (and on the caller's goroutine for the first tick).
// It must not block.
type Consumer func(analyzer.AggregatedSnapshot)

// Scheduler runs the cooperative frame loop. One consumer, one goroutine,
// no per-analyzer fan-out machinery.
type Scheduler struct {
	source   AnalyzerSource
	interval time.Duration

	mu       sync.Mutex
	doneChan chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
	running  bool
}

// New creates a scheduler polling at the given frame rate (ticks/second).
// Rates <= 0 fall back to 60 Hz.
func New(source AnalyzerSource, frameRate int) *Scheduler {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Scheduler{
		source:   source,
		interval: time.Second / time.Duration(frameRate),
	}
}

// Start begins delivering snapshots to consumer. The first tick fires
// synchronously before Start returns; subsequent ticks come from the frame
// loop. Returns false if the scheduler is already running.
func (s *Scheduler) Start(consumer Consumer) bool {
	if consumer == nil {
		return false
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.doneChan = make(chan struct{})
	s.stopOnce = &sync.Once{}
	done := s.doneChan
	s.mu.Unlock()

	// First frame is delivered before the loop spins up, so consumers see
	// data immediately rather than one interval later.
	s.tick(consumer)

	s.wg.Add(1)
	go s.run(consumer, done)

	applog.Infof("Scheduler: started at %v per frame", s.interval)
	return true
}

func (s *Scheduler) run(consumer Consumer, done chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.tick(consumer)
		}
	}
}

// tick polls every analyzer once and delivers the aggregated frame.
// Sampling order across sources is map order and deliberately unspecified.
func (s *Scheduler) tick(consumer Consumer) {
	analyzers := s.source.Analyzers()
	frame := make(analyzer.AggregatedSnapshot, len(analyzers))
	for role, a := range analyzers {
		frame[role] = a.Snapshot()
	}
	consumer(frame)
}

// Cancel stops the loop and waits for the in-flight tick to finish, so no
// tick can observe resources released after Cancel returns. Safe to call
// repeatedly and before Start.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	once := s.stopOnce
	done := s.doneChan
	s.mu.Unlock()

	if once == nil {
		return
	}
	once.Do(func() {
		close(done)
		s.wg.Wait()

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		applog.Infof("Scheduler: stopped")
	})
}

// Running reports whether the frame loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
