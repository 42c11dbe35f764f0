package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchwatch/internal/matchlog"
	"matchwatch/internal/storage"
)

const openMatchPage = `<html><body><section class="league-match-logs"><table>
<tr><th>User</th><th>Action</th><th>Details</th><th>Date</th></tr>
<tr><td>Alice</td><td>scheduling_suggest</td><td>Sun, 19.11.2023 18:00</td><td><span class="itime" data-time="1700000100"></span></td></tr>
</table></section></body></html>`

const playedMatchPage = `<html><body><section class="league-match-logs"><table>
<tr><td>Admin</td><td>played</td><td>1:0</td></tr>
</table></section></body></html>`

// runCLI executes the root command with isolated env and returns stdout
func runCLI(t *testing.T, stateDir string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"GROUP_URL", "TEAM", "MATCH_URLS", "STATE_DRIVER", "DISCORD_WEBHOOK", "NOTIFY_WS_URL", "LOG_LEVEL", "LOG_PRETTY"} {
		t.Setenv(k, "")
	}
	t.Setenv("STATE_DIR", stateDir)
	// keep the test tree free of a stray .env
	t.Chdir(t.TempDir())

	color.NoColor = true

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func leagueServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/matches/1234-alpha-vs-beta", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openMatchPage))
	})
	mux.HandleFunc("/matches/1300-gamma-vs-alpha", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(playedMatchPage))
	})
	mux.HandleFunc("/group", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/matches/1234-alpha-vs-beta">1</a><a href="/matches/1300-gamma-vs-alpha">2</a><a href="/matches/1400-gamma-vs-delta">3</a>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCheck_RecordsBaselineThenSeesNoChange(t *testing.T) {
	server := leagueServer(t)
	dir := t.TempDir()
	url := server.URL + "/matches/1234-alpha-vs-beta"

	out, err := runCLI(t, dir, "check", url)
	require.NoError(t, err)
	assert.Contains(t, out, "1234-alpha-vs-beta: baseline saved")

	out, err = runCLI(t, dir, "check", url)
	require.NoError(t, err)
	assert.Contains(t, out, "no new events")

	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	st, err := fs.Load(context.Background(), "1234-alpha-vs-beta")
	require.NoError(t, err)
	require.Len(t, st.Logs, 1)
	assert.Equal(t, "scheduling_suggest", st.Logs[0].Action)
}

func TestCheck_CompletedMatch(t *testing.T) {
	server := leagueServer(t)

	out, err := runCLI(t, t.TempDir(), "check", server.URL+"/matches/1300-gamma-vs-alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "match completed")
}

func TestCheck_FailureSetsError(t *testing.T) {
	server := leagueServer(t)

	out, err := runCLI(t, t.TempDir(), "check", server.URL+"/matches/404-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 matches failed")
	assert.Contains(t, out, "FAIL")
}

func TestDiscover(t *testing.T) {
	server := leagueServer(t)

	out, err := runCLI(t, t.TempDir(), "discover", "--group", server.URL+"/group", "--team", "alpha")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/matches/1234-alpha-vs-beta\n"+server.URL+"/matches/1300-gamma-vs-alpha\n", out)
}

func TestDiscover_RequiresGroupAndTeam(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "discover")
	assert.Error(t, err)
}

func TestWatch_Once(t *testing.T) {
	server := leagueServer(t)
	dir := t.TempDir()

	out, err := runCLI(t, dir, "watch", "--once", "--group", server.URL+"/group", "--team", "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "watching 2 matches, state "+dir+", notify log")
	assert.Contains(t, out, "checked 2")
	assert.Contains(t, out, "removed 1")
	assert.Contains(t, out, "watching 1")

	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	keys, err := fs.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1234-alpha-vs-beta"}, keys, "completed match leaves no record")
}

func TestWatch_NothingToWatch(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to watch")
}

func TestState_ListShowClear(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	_, err = fs.Save(context.Background(), "1234-alpha-vs-beta", &matchlog.State{
		URL:  "https://www.primeleague.gg/leagues/matches/1234-alpha-vs-beta",
		Logs: []matchlog.LogEntry{{Player: "Alice", Action: "scheduling_suggest", Details: "x", Time: "2023-11-14 22:15:00"}},
	})
	require.NoError(t, err)

	out, err := runCLI(t, dir, "state", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "MATCH")
	assert.Contains(t, out, "1234-alpha-vs-beta")

	out, err = runCLI(t, dir, "state", "show", "https://www.primeleague.gg/leagues/matches/1234-alpha-vs-beta")
	require.NoError(t, err)
	assert.Contains(t, out, "2023-11-14 22:15:00 , Alice , scheduling_suggest , x , https://www.primeleague.gg/leagues/matches/1234-alpha-vs-beta")

	out, err = runCLI(t, dir, "state", "clear", "1234-alpha-vs-beta", "9-unknown")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1234-alpha-vs-beta")
	assert.Contains(t, out, "absent  9-unknown")

	_, err = runCLI(t, dir, "state", "show", "1234-alpha-vs-beta")
	assert.Error(t, err)

	exists, err := fs.Exists(context.Background(), "1234-alpha-vs-beta")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestState_ClearNeedsTarget(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "state"), "state", "clear")
	assert.Error(t, err)
}
