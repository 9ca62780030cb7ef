package main

import (
	"context"
	"testing"
	"time"
)

func TestHubConnectionCaps(t *testing.T) {
	h := NewHub(2, 3)

	h.TrackConnect("1.1.1.1")
	h.TrackConnect("1.1.1.1")
	if h.CanAccept("1.1.1.1") {
		t.Error("per-IP cap should refuse a third connection")
	}
	if !h.CanAccept("2.2.2.2") {
		t.Error("other IPs should still be accepted")
	}

	h.TrackConnect("2.2.2.2")
	if h.CanAccept("3.3.3.3") {
		t.Error("total cap should refuse everyone")
	}

	h.TrackDisconnect("1.1.1.1")
	if !h.CanAccept("1.1.1.1") {
		t.Error("slot should free up after disconnect")
	}
	if h.TotalConns() != 2 {
		t.Errorf("expected 2 tracked, got %d", h.TotalConns())
	}
}

func TestHubDefaults(t *testing.T) {
	h := NewHub(0, -1)
	if h.maxConnsPerIP != defaultMaxConnsPerIP || h.maxTotalConns != defaultMaxTotalConns {
		t.Errorf("unexpected caps %d/%d", h.maxConnsPerIP, h.maxTotalConns)
	}
}

func TestHubShutdownReleasesClients(t *testing.T) {
	h := NewHub(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := &Client{send: make(chan []byte, 1)}
	if !h.Register(c) {
		t.Fatal("register refused while running")
	}
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ClientCount() != 1 {
		t.Fatal("client was not registered")
	}

	cancel()
	<-stopped

	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed on shutdown")
	}
	if h.Register(&Client{send: make(chan []byte, 1)}) {
		t.Error("register should be refused after shutdown")
	}

	// Fill the queue past its buffer; none of these may block.
	unregistered := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Unregister(c)
		}
		close(unregistered)
	}()
	select {
	case <-unregistered:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after shutdown")
	}
	c.closeSend()
}
