package meshgate

import "testing"

type recordingWatcher struct {
	events []WatchEvent
}

func (w *recordingWatcher) Watch(ev WatchEvent) {
	w.events = append(w.events, ev)
}

func TestTraceInjectionAndEjection(t *testing.T) {
	w := &recordingWatcher{}
	f := &Flit{PacketID: 5, Src: 1, Dst: 2, Hops: 3, FLOVHops: 1, InjTime: 10}

	TraceInjection(w, 10, 1, f)
	TraceEjection(w, 20, 2, f)

	if len(w.events) != 2 {
		t.Fatalf("got %d events, want 2", len(w.events))
	}
	if w.events[0].Kind != "inject" {
		t.Fatalf("first event kind = %q, want inject", w.events[0].Kind)
	}
	if w.events[1].Kind != "eject" {
		t.Fatalf("second event kind = %q, want eject", w.events[1].Kind)
	}
}

func TestTraceFunctionsToleratesNilWatcher(t *testing.T) {
	// Must not panic when no watcher is attached.
	TraceInjection(nil, 0, 0, &Flit{})
	TraceEjection(nil, 0, 0, &Flit{})
	TracePowerTransition(nil, 0, 0, PowerOn, PowerDraining)
}

func TestLogWatcherFormatsAnEvent(t *testing.T) {
	rec := &recordingLogger{}
	w := &LogWatcher{Log: rec}
	w.Watch(WatchEvent{Cycle: 3, Router: 1, Port: 2, Kind: "switch", Detail: "x"})
	if len(rec.infof) != 1 {
		t.Fatalf("expected exactly one Infof call, got %d", len(rec.infof))
	}
}

type recordingLogger struct {
	infof []string
}

func (l *recordingLogger) Debug(string)          {}
func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Info(string)           {}
func (l *recordingLogger) Infof(f string, v ...any) {
	l.infof = append(l.infof, f)
}
func (l *recordingLogger) Warn(string)          {}
func (l *recordingLogger) Warnf(string, ...any) {}
