package lcu

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/engine"
)

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   engine.Credentials
		wantOK bool
	}{
		{
			name:   "split args",
			args:   []string{"LeagueClientUx.exe", "--riotclient-app-port=1", "--app-port=54321", "--remoting-auth-token=abcDEF"},
			want:   engine.Credentials{Port: "54321", Token: "abcDEF"},
			wantOK: true,
		},
		{
			name:   "quoted values",
			args:   []string{`"--app-port=54321"`, `--remoting-auth-token="abcDEF"`},
			want:   engine.Credentials{Port: "54321", Token: "abcDEF"},
			wantOK: true,
		},
		{
			name:   "single unsplit line",
			args:   []string{`"C:/Riot Games/LeagueClientUx.exe" "--remoting-auth-token=tok" "--app-port=1234"`},
			want:   engine.Credentials{Port: "1234", Token: "tok"},
			wantOK: true,
		},
		{
			name: "token missing",
			args: []string{"--app-port=1234"},
			want: engine.Credentials{Port: "1234"},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommandLine(tt.args)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubLister struct {
	calls      atomic.Int32
	candidates []Candidate
	err        error
	gate       chan struct{}
}

func (s *stubLister) List(ctx context.Context) ([]Candidate, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.candidates, s.err
}

func TestDiscoverFindsClient(t *testing.T) {
	lister := &stubLister{candidates: []Candidate{
		{PID: 1, Name: "LeagueClient.exe", Args: []string{"--app-port=1"}},
		{PID: 2, Name: "LeagueClientUx.exe", Args: []string{"--app-port=2"}},
		{PID: 3, Name: "LeagueClientUx.exe", Args: []string{"--app-port=3", "--remoting-auth-token=t3"}},
	}}
	d := NewDiscoverer(lister, zap.NewNop())

	creds, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.Credentials{Port: "3", Token: "t3"}, creds)
}

func TestDiscoverNotFound(t *testing.T) {
	d := NewDiscoverer(&stubLister{}, nil)
	_, err := d.Discover(context.Background())
	assert.ErrorIs(t, err, ErrClientNotFound)

	d = NewDiscoverer(&stubLister{err: errors.New("permission denied")}, nil)
	_, err = d.Discover(context.Background())
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestDiscoverSharesConcurrentScans(t *testing.T) {
	lister := &stubLister{
		candidates: []Candidate{{Name: "LeagueClientUx", Args: []string{"--app-port=9", "--remoting-auth-token=x"}}},
		gate:       make(chan struct{}),
	}
	d := NewDiscoverer(lister, nil)

	const callers = 4
	var wg sync.WaitGroup
	results := make(chan engine.Credentials, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			creds, err := d.Discover(context.Background())
			if err == nil {
				results <- creds
			}
		}()
	}

	// Hold the first scan open so later callers can join it.
	for lister.calls.Load() == 0 {
		runtime.Gosched()
	}
	close(lister.gate)
	wg.Wait()
	close(results)

	got := 0
	for creds := range results {
		assert.Equal(t, "9", creds.Port)
		got++
	}
	assert.Equal(t, callers, got)
	assert.LessOrEqual(t, lister.calls.Load(), int32(callers))
}

func TestCheckPrivilegesMessage(t *testing.T) {
	p := CheckPrivileges()
	assert.NotEmpty(t, p.Message)
}

func TestDiscoverCallerCancelStaysPrivate(t *testing.T) {
	lister := &stubLister{
		candidates: []Candidate{{Name: "LeagueClientUx", Args: []string{"--app-port=9", "--remoting-auth-token=x"}}},
		gate:       make(chan struct{}),
	}
	d := NewDiscoverer(lister, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.Discover(ctx)
		firstErr <- err
	}()
	for lister.calls.Load() == 0 {
		runtime.Gosched()
	}

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrClientNotFound)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the scan")
	}

	// The scan is still in flight; a live caller joins it and gets its result.
	second := make(chan engine.Credentials, 1)
	go func() {
		creds, err := d.Discover(context.Background())
		assert.NoError(t, err)
		second <- creds
	}()
	close(lister.gate)

	select {
	case creds := <-second:
		assert.Equal(t, engine.Credentials{Port: "9", Token: "x"}, creds)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for discovery")
	}
	assert.LessOrEqual(t, lister.calls.Load(), int32(2))
}
