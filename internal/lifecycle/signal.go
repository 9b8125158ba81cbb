package lifecycle

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var _ Observer = (*SignalObserver)(nil)

// SignalObserver maps process signals onto foreground transitions.
// SIGCONT arrives when a stopped daemon resumes, SIGUSR1 gives operators
// an explicit "sync now" lever.
type SignalObserver struct {
	subs *subscribers
	ch   chan os.Signal
	stop chan struct{}
}

func NewSignalObserver() *SignalObserver {
	o := &SignalObserver{
		subs: newSubscribers(),
		ch:   make(chan os.Signal, 1),
		stop: make(chan struct{}),
	}
	signal.Notify(o.ch, syscall.SIGUSR1, syscall.SIGCONT)
	go o.run()
	return o
}

func (o *SignalObserver) OnForeground(fn func()) func() {
	return o.subs.add(fn)
}

func (o *SignalObserver) Close() {
	signal.Stop(o.ch)
	close(o.stop)
}

func (o *SignalObserver) run() {
	for {
		select {
		case sig := <-o.ch:
			zap.S().Named("lifecycle").Debugw("received foreground signal", "signal", sig)
			o.subs.notify()
		case <-o.stop:
			return
		}
	}
}
