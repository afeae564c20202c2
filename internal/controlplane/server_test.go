package controlplane

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	versionData json.RawMessage
}

func (d *fakeDispatcher) Dispatch(c *Client, method string, params json.RawMessage) (json.RawMessage, *RPCError) {
	if method == MethodVersion {
		return d.versionData, nil
	}
	return nil, &RPCError{Code: CodeEINVAL, Message: "unhandled in test"}
}

// S4: server accepts one client that sends {"method":"version","id":7};
// server replies {"code":0,"id":7,"data":{...}}. Then the client sends
// {"method":"nope","id":8}; server replies
// {"code":ENOENT,"id":8,"data":{"error":"...","commands":[...]}}.
func TestServerScenarioS4(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayvncctl")
	versionData, _ := json.Marshal(VersionData{Wayvnc: "0.1.0"})
	srv, err := New(path, &fakeDispatcher{versionData: versionData})
	require.NoError(t, err)
	defer srv.Close()

	go srv.Serve()
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"method":"version","id":7}`))
	require.NoError(t, err)

	dec := json.NewDecoder(conn)
	var resp Response
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, CodeOK, resp.Code)
	assert.Equal(t, float64(7), resp.ID)

	_, err = conn.Write([]byte(`{"method":"nope","id":8}`))
	require.NoError(t, err)

	var resp2 Response
	require.NoError(t, dec.Decode(&resp2))
	assert.Equal(t, CodeENOENT, resp2.Code)
	assert.Equal(t, float64(8), resp2.ID)

	var data struct {
		Error    string   `json:"error"`
		Commands []string `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(resp2.Data, &data))
	assert.NotEmpty(t, data.Commands)
}

// Property 7 / scenario: starting a server when the socket path exists
// but connect fails unlinks the path and binds successfully.
func TestServerStaleSocketRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayvncctl")

	stale, err := net.Listen("unix", path)
	require.NoError(t, err)
	// Close the listener without removing the file: simulates a crashed
	// prior instance leaving a stale socket inode behind.
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, stale.Close())

	srv, err := New(path, &fakeDispatcher{})
	require.NoError(t, err)
	defer srv.Close()
}

func TestServerRefusesNonSocketPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayvncctl")
	require.NoError(t, os.WriteFile(path, []byte("not a socket"), 0o600))

	_, err := New(path, &fakeDispatcher{})
	assert.Error(t, err)
}

func TestServerRefusesWhenAnotherInstanceIsLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayvncctl")
	srv, err := New(path, &fakeDispatcher{})
	require.NoError(t, err)
	defer srv.Close()
	go srv.Serve()
	time.Sleep(20 * time.Millisecond)

	_, err = New(path, &fakeDispatcher{})
	assert.Error(t, err)
}
