package core

import "sync"

// Dispatcher runs fn on the goroutine that owns the UI. The fyne front end
// passes fyne.Do; tests usually pass Immediate.
type Dispatcher func(fn func())

// Immediate runs fn on the calling goroutine.
func Immediate(fn func()) { fn() }

// Loop is a single goroutine draining queued functions in FIFO order.
// Headless front ends use it as their UI thread.
type Loop struct {
	fns  chan func()
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func NewLoop(buffer int) *Loop {
	l := &Loop{
		fns:  make(chan func(), buffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.fns:
			fn()
		case <-l.quit:
			l.drain()
			return
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.fns:
			fn()
		default:
			return
		}
	}
}

// Do queues fn. It blocks only while the queue is full. Functions queued
// after Close are dropped.
func (l *Loop) Do(fn func()) {
	select {
	case <-l.quit:
	case l.fns <- fn:
	}
}

// Close stops accepting work and waits for queued functions to finish.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.done
}
