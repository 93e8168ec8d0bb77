package lcu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mirakyux/micept/internal/engine"
)

const (
	clientProcessName = "LeagueClientUx"
	argAppPort        = "--app-port="
	argAuthToken      = "--remoting-auth-token="

	scanTimeout = 5 * time.Second
)

// Candidate is a running process as seen by the scanner.
type Candidate struct {
	PID  int32
	Name string
	Args []string
}

// ProcessLister enumerates running processes.
type ProcessLister interface {
	List(ctx context.Context) ([]Candidate, error)
}

// Discoverer finds the running client's credentials from its command line.
// Concurrent calls share one scan. The scan is bounded by scanTimeout and
// not by any caller's context; a caller that gives up only stops waiting.
type Discoverer struct {
	lister ProcessLister
	logger *zap.Logger
	group  singleflight.Group
}

// NewDiscoverer scans real processes when lister is nil.
func NewDiscoverer(lister ProcessLister, logger *zap.Logger) *Discoverer {
	if lister == nil {
		lister = SystemProcesses{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{lister: lister, logger: logger}
}

// Discover returns ErrClientNotFound when no client process carries both
// a port and a token.
func (d *Discoverer) Discover(ctx context.Context) (engine.Credentials, error) {
	ch := d.group.DoChan("discover", func() (any, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), scanTimeout)
		defer cancel()
		return d.scan(scanCtx)
	})
	select {
	case <-ctx.Done():
		return engine.Credentials{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return engine.Credentials{}, res.Err
		}
		if res.Shared {
			d.logger.Debug("discovery result shared")
		}
		return res.Val.(engine.Credentials), nil
	}
}

func (d *Discoverer) scan(ctx context.Context) (engine.Credentials, error) {
	candidates, err := d.lister.List(ctx)
	if err != nil {
		return engine.Credentials{}, fmt.Errorf("%w: listing processes: %w", ErrClientNotFound, err)
	}
	for _, c := range candidates {
		if !strings.Contains(c.Name, clientProcessName) {
			continue
		}
		creds, ok := ParseCommandLine(c.Args)
		if !ok {
			d.logger.Debug("client process without credentials", zap.Int32("pid", c.PID))
			continue
		}
		d.logger.Info("client discovered",
			zap.Int32("pid", c.PID),
			zap.String("port", creds.Port),
			zap.String("token", creds.MaskedToken()),
		)
		return creds, nil
	}
	return engine.Credentials{}, ErrClientNotFound
}

// ParseCommandLine extracts the port and token from a client command line.
// Values may be wrapped in double quotes. An argument list holding one
// unsplit command line is handled too.
func ParseCommandLine(args []string) (engine.Credentials, bool) {
	var creds engine.Credentials
	for _, arg := range args {
		for _, field := range strings.Fields(arg) {
			field = strings.Trim(field, `"`)
			switch {
			case strings.HasPrefix(field, argAppPort):
				creds.Port = strings.Trim(strings.TrimPrefix(field, argAppPort), `"`)
			case strings.HasPrefix(field, argAuthToken):
				creds.Token = strings.Trim(strings.TrimPrefix(field, argAuthToken), `"`)
			}
		}
	}
	return creds, creds.Valid()
}

// SystemProcesses lists processes through gopsutil. Processes that vanish
// or deny access mid-scan are skipped.
type SystemProcesses struct{}

func (SystemProcesses) List(ctx context.Context) ([]Candidate, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, 4)
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !strings.Contains(name, clientProcessName) {
			continue
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, Candidate{PID: p.Pid, Name: name, Args: args})
	}
	return out, nil
}
