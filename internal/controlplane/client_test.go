package controlplane

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptOnceAndClose accepts exactly one connection, replies OK to
// event-receive, then closes — simulating the server going away so the
// client's reconnect loop kicks in. A second listener on the same path
// lets the client's retry succeed.
func acceptOnceAndClose(t *testing.T, l net.Listener) {
	t.Helper()
	conn, err := l.Accept()
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	line, _ := r.ReadString('}')
	_ = line
	_, _ = conn.Write([]byte(`{"code":0,"id":"1"}`))
	conn.Close()
}

// Property 8 / S4-ish: given a mock server that closes after registering
// events, the client emits wayvnc-shutdown, retries connect, and upon
// success emits wayvnc-startup.
func TestClientReconnectLoopScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayvncctl")

	l1, err := net.Listen("unix", path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptOnceAndClose(t, l1)
		l1.Close()
	}()

	client, err := Dial(path)
	require.NoError(t, err)
	require.NoError(t, client.Register())
	wg.Wait()

	var mu sync.Mutex
	var events []string
	done := make(chan struct{})

	// Second listener takes over the path once the first is closed, so
	// the client's reconnect retry succeeds against it.
	go func() {
		time.Sleep(30 * time.Millisecond)
		l2, err := net.Listen("unix", path)
		if err != nil {
			return
		}
		defer l2.Close()
		conn, err := l2.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		_, _ = r.ReadString('}')
		_, _ = conn.Write([]byte(`{"code":0,"id":"2"}`))
		<-done
	}()

	go func() {
		_ = client.Run(func(method string, params json.RawMessage) {
			mu.Lock()
			events = append(events, method)
			mu.Unlock()
			if method == SyntheticStartupEvent {
				client.Stop()
				close(done)
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reconnect cycle")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, SyntheticShutdownEvent)
	assert.Contains(t, events, SyntheticStartupEvent)
}

func TestWaitForSocketFailsFastWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")
	err := WaitForSocket(path, WaitNone)
	assert.Error(t, err)
}

func TestWaitForSocketSucceedsOnceCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayvncctl")
	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, WaitForSocket(path, 2*time.Second))
}
