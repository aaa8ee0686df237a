package device

import (
	"sync"
	"testing"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState(Options{})

	if s.DeviceName() != "lednode" {
		t.Fatalf("expected default name, got %q", s.DeviceName())
	}
	if s.ActuatorOn() {
		t.Fatal("actuator must start off")
	}
	if s.Version() != 0 {
		t.Fatalf("version must start at 0, got %d", s.Version())
	}
}

func TestSetActuatorBumpsVersion(t *testing.T) {
	s := NewState(Options{})

	s.SetActuator(true)
	s.SetActuator(true)
	s.SetActuator(false)

	if s.Version() != 3 {
		t.Fatalf("expected version 3, got %d", s.Version())
	}
	if s.ActuatorOn() {
		t.Fatal("expected actuator off")
	}
}

func TestSnapshotDerivedFields(t *testing.T) {
	s := NewState(Options{
		DeviceName: "node-1",
		LinkInfo:   func() LinkStatus { return LinkStatus{IP: "10.0.0.2", SSID: "lab", RSSI: -55} },
		FreeMemory: func() uint64 { return 4096 },
		Sessions:   func() int { return 2 },
	})
	s.SetActuator(true)

	snap := s.Snapshot()
	if snap.Device != "node-1" || snap.IP != "10.0.0.2" || snap.SSID != "lab" || snap.RSSI != -55 {
		t.Fatalf("link fields not derived: %+v", snap)
	}
	if !snap.LED || snap.Version != 1 {
		t.Fatalf("actuator fields not derived: %+v", snap)
	}
	if snap.Heap != 4096 || snap.WSClients != 2 {
		t.Fatalf("provider fields not derived: %+v", snap)
	}
}

func TestSnapshotWithoutProviders(t *testing.T) {
	s := NewState(Options{DeviceName: "bare"})

	snap := s.Snapshot()
	if snap.IP != "" || snap.Heap != 0 || snap.WSClients != 0 {
		t.Fatalf("missing providers must yield zero values: %+v", snap)
	}
}

func TestSnapshotConcurrentWithMutation(t *testing.T) {
	s := NewState(Options{})

	const mutations = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Transports snapshot from their own goroutines while the
		// dispatcher mutates.
		for range mutations {
			snap := s.Snapshot()
			if snap.Version > mutations {
				t.Errorf("impossible version %d", snap.Version)
				return
			}
		}
	}()

	for i := range mutations {
		s.SetActuator(i%2 == 0)
	}
	wg.Wait()

	if s.Version() != mutations {
		t.Fatalf("expected version %d, got %d", mutations, s.Version())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewState(Options{})

	before := s.Snapshot()
	s.SetActuator(true)

	if before.LED {
		t.Fatal("snapshot must not observe later mutations")
	}
}
