package launcher

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spark/patch"
	"spark/process"
	"spark/profile"
)

type fakeProcess struct {
	pid        process.ProcessID
	disposed   int
	resumed    bool
	terminated bool
	disposeErr error
}

func (p *fakeProcess) GetPID() process.ProcessID { return p.pid }

func (p *fakeProcess) Terminate(uint32) error {
	p.terminated = true
	return nil
}

func (p *fakeProcess) Dispose(resume bool) error {
	p.disposed++
	p.resumed = resume
	return p.disposeErr
}

type fakeWriter struct {
	pos     process.ProcessMemoryAddress
	writes  []patch.Write
	failAt  process.ProcessMemoryAddress
	panicAt process.ProcessMemoryAddress
	closed  bool
}

func (w *fakeWriter) Seek(addr process.ProcessMemoryAddress) { w.pos = addr }

func (w *fakeWriter) Write(data []byte) (int, error) {
	if w.panicAt != 0 && w.pos == w.panicAt {
		panic("writer fault")
	}
	if w.failAt != 0 && w.pos == w.failAt {
		return 0, &process.MemoryWriteError{Address: w.pos, Err: errors.New("page is not writable")}
	}
	w.writes = append(w.writes, patch.Write{Address: w.pos, Bytes: append([]byte(nil), data...)})
	w.pos += process.ProcessMemoryAddress(len(data))
	return len(data), nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeResolver struct {
	ip    net.IP
	err   error
	calls int
}

func (r *fakeResolver) LookupIPv4(context.Context, string) (net.IP, error) {
	r.calls++
	return r.ip, r.err
}

// harness is a launcher over doubles plus a client executable on disk
type harness struct {
	proc     *fakeProcess
	writer   *fakeWriter
	resolver *fakeResolver
	started  int
	args     []string
	startErr error
	openErr  error
	exePath  string
	profile  *profile.Profile
	launcher *Launcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	data := []byte("MZ pretend client build 741")
	path := filepath.Join(t.TempDir(), "Darkages.exe")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write executable: %v", err)
	}
	sum := md5.Sum(data)

	h := &harness{
		proc:     &fakeProcess{pid: 4242},
		writer:   &fakeWriter{},
		resolver: &fakeResolver{ip: net.IPv4(52, 88, 55, 94)},
		exePath:  path,
		profile: profile.MustNew("US Dark Ages 7.41", 741, hex.EncodeToString(sum[:]), profile.Addresses{
			Redirect:          0x4333C2,
			Port:              0x4333E4,
			SkipIntro:         0x42E61F,
			MultipleInstances: 0x57A7CE,
			HideWalls:         0x5FD874,
		}),
	}

	h.launcher = New(
		WithStarter(func(_ string, args []string) (Process, error) {
			h.started++
			h.args = args
			if h.startErr != nil {
				return nil, h.startErr
			}
			return h.proc, nil
		}),
		WithWriterOpener(func(process.ProcessID) (Writer, error) {
			if h.openErr != nil {
				return nil, h.openErr
			}
			return h.writer, nil
		}),
		WithResolver(h.resolver),
	)

	return h
}

func (h *harness) request() LaunchRequest {
	other := profile.MustNew("CA Legends 7.18", 718, "36f4689b09a4a91c74555b3c3603b196", profile.Addresses{Redirect: 0x4341FA})
	return LaunchRequest{
		ExecutablePath: h.exePath,
		Profiles:       []*profile.Profile{other, h.profile},
		AutoDetect:     true,
		Hostname:       "da0.kru.com",
		Port:           2610,
		Toggles: patch.Toggles{
			Redirect:               patch.Redirect{Enabled: true},
			SkipIntro:              true,
			AllowMultipleInstances: true,
		},
	}
}

func TestLaunchSuccess(t *testing.T) {
	h := newHarness(t)

	o := h.launcher.Launch(context.Background(), h.request())
	if o.Kind != Success {
		t.Fatalf("Launch = %v", o)
	}
	if o.PID != 4242 || o.Profile != h.profile {
		t.Errorf("pid=%d profile=%v", o.PID, o.Profile)
	}
	if o.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("run id not set")
	}

	wantAddrs := []process.ProcessMemoryAddress{0x4333C2, 0x4333E4, 0x42E61F, 0x57A7CE}
	if len(h.writer.writes) != len(wantAddrs) {
		t.Fatalf("got %d writes, want %d", len(h.writer.writes), len(wantAddrs))
	}
	for i, addr := range wantAddrs {
		if h.writer.writes[i].Address != addr {
			t.Errorf("write %d at %s, want %s", i, h.writer.writes[i].Address, addr)
		}
	}
	if got := h.writer.writes[1].Bytes; got[0] != 0x32 || got[1] != 0x0A {
		t.Errorf("port bytes % X", got)
	}
	if !h.writer.closed {
		t.Error("writer not closed")
	}
	if h.proc.disposed != 1 || !h.proc.resumed {
		t.Errorf("disposed=%d resumed=%v, want 1 and true", h.proc.disposed, h.proc.resumed)
	}
}

func TestLaunchByName(t *testing.T) {
	h := newHarness(t)
	req := h.request()
	req.AutoDetect = false
	req.VersionName = "us dark ages 7.41"

	if o := h.launcher.Launch(context.Background(), req); o.Kind != Success || o.Profile != h.profile {
		t.Fatalf("Launch = %v", o)
	}
}

func TestLaunchFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness, req *LaunchRequest)
		kind    Kind
		title   string
		started bool
	}{
		{
			name:  "missing executable",
			setup: func(h *harness, req *LaunchRequest) { req.ExecutablePath += ".missing" },
			kind:  ExecutableNotFound,
			title: "File Not Found",
		},
		{
			name:  "directory instead of executable",
			setup: func(h *harness, req *LaunchRequest) { req.ExecutablePath = filepath.Dir(h.exePath) },
			kind:  ExecutableNotFound,
			title: "File Not Found",
		},
		{
			name:  "fingerprint unknown",
			setup: func(h *harness, req *LaunchRequest) { req.Profiles = req.Profiles[:1] },
			kind:  VersionUndetected,
			title: "Unknown Client Version",
		},
		{
			name: "name unknown",
			setup: func(h *harness, req *LaunchRequest) {
				req.AutoDetect = false
				req.VersionName = "US Dark Ages 9.99"
			},
			kind:  VersionUndetected,
			title: "Unknown Client Version",
		},
		{
			name:  "no ipv4 address",
			setup: func(h *harness, req *LaunchRequest) { h.resolver.err = ErrNoIPv4Address },
			kind:  HostnameUnresolved,
			title: "Unable to Resolve Hostname",
		},
		{
			name:  "resolver broken",
			setup: func(h *harness, req *LaunchRequest) { h.resolver.err = ErrResolveFailed },
			kind:  HostnameUnresolved,
			title: "Unable to Resolve Hostname",
		},
		{
			name:  "zero port",
			setup: func(h *harness, req *LaunchRequest) { req.Port = 0 },
			kind:  PatchFailed,
			title: "Failed to Patch",
		},
		{
			name:  "image check on a non PE file",
			setup: func(h *harness, req *LaunchRequest) { req.VerifyImage = true },
			kind:  PatchFailed,
			title: "Failed to Patch",
		},
		{
			name:    "process creation",
			setup:   func(h *harness, req *LaunchRequest) { h.startErr = process.ErrProcessCreationFailed },
			kind:    LaunchFailed,
			title:   "Failed to Launch",
			started: true,
		},
		{
			name:    "writer open denied",
			setup:   func(h *harness, req *LaunchRequest) { h.openErr = process.ErrAccessDenied },
			kind:    PatchFailed,
			title:   "Failed to Patch",
			started: true,
		},
		{
			name:    "resume failure",
			setup:   func(h *harness, req *LaunchRequest) { h.proc.disposeErr = process.ErrResumeFailed },
			kind:    LaunchFailed,
			title:   "Failed to Launch",
			started: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := h.request()
			tt.setup(h, &req)

			o := h.launcher.Launch(context.Background(), req)
			if o.Kind != tt.kind {
				t.Fatalf("Kind = %s, want %s (%v)", o.Kind, tt.kind, o)
			}
			if o.Title != tt.title || o.Message == "" || o.Detail == "" {
				t.Errorf("outcome text incomplete: %q / %q / %q", o.Title, o.Message, o.Detail)
			}
			if (h.started > 0) != tt.started {
				t.Errorf("process started = %v, want %v", h.started > 0, tt.started)
			}
		})
	}
}

func TestLaunchHostnameMessages(t *testing.T) {
	h := newHarness(t)
	req := h.request()

	h.resolver.err = ErrNoIPv4Address
	noIPv4 := h.launcher.Launch(context.Background(), req)

	h.resolver.err = ErrResolveFailed
	broken := h.launcher.Launch(context.Background(), req)

	if noIPv4.Message == broken.Message {
		t.Errorf("missing address and lookup failure share the message %q", noIPv4.Message)
	}
	if !strings.Contains(noIPv4.Message, "IPv4") {
		t.Errorf("message %q does not mention IPv4", noIPv4.Message)
	}
}

func TestLaunchWithoutRedirectSkipsResolver(t *testing.T) {
	h := newHarness(t)
	req := h.request()
	req.Toggles.Redirect.Enabled = false
	req.Port = 0

	if o := h.launcher.Launch(context.Background(), req); o.Kind != Success {
		t.Fatalf("Launch = %v", o)
	}
	if h.resolver.calls != 0 {
		t.Errorf("resolver called %d times", h.resolver.calls)
	}
	if len(h.writer.writes) != 2 {
		t.Errorf("got %d writes, want 2", len(h.writer.writes))
	}
}

func TestLaunchPatchFailureResumes(t *testing.T) {
	h := newHarness(t)
	h.writer.failAt = 0x42E61F

	o := h.launcher.Launch(context.Background(), h.request())
	if o.Kind != PatchFailed {
		t.Fatalf("Kind = %s, want PatchFailed", o.Kind)
	}

	var perr *patch.Error
	if !errors.As(o.Err, &perr) || perr.Toggle != patch.ToggleSkipIntro {
		t.Errorf("cause = %v", o.Err)
	}
	if !strings.Contains(o.Detail, "0x42E61F") {
		t.Errorf("detail %q does not name the address", o.Detail)
	}

	// earlier writes stay, the process is still let go
	if len(o.Applied) != 2 || len(h.writer.writes) != 2 {
		t.Errorf("applied=%d written=%d, want 2", len(o.Applied), len(h.writer.writes))
	}
	if h.proc.terminated || !h.proc.resumed || h.proc.disposed != 1 {
		t.Errorf("terminated=%v resumed=%v disposed=%d", h.proc.terminated, h.proc.resumed, h.proc.disposed)
	}
}

func TestLaunchPatchFailureSuppressed(t *testing.T) {
	h := newHarness(t)
	h.writer.failAt = 0x4333C2
	req := h.request()
	req.SuppressResumeOnFailure = true

	o := h.launcher.Launch(context.Background(), req)
	if o.Kind != PatchFailed {
		t.Fatalf("Kind = %s, want PatchFailed", o.Kind)
	}
	if !h.proc.terminated || h.proc.resumed || h.proc.disposed != 1 {
		t.Errorf("terminated=%v resumed=%v disposed=%d", h.proc.terminated, h.proc.resumed, h.proc.disposed)
	}
}

func TestLaunchPanicReleasesProcess(t *testing.T) {
	h := newHarness(t)
	h.writer.panicAt = 0x42E61F

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the writer panic to propagate")
			}
		}()
		h.launcher.Launch(context.Background(), h.request())
	}()

	if h.proc.disposed != 1 || !h.proc.resumed {
		t.Errorf("disposed=%d resumed=%v, want 1 true", h.proc.disposed, h.proc.resumed)
	}
	if !h.writer.closed {
		t.Error("writer not closed")
	}
}

func TestLaunchCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := h.launcher.Launch(ctx, h.request())
	if o.Kind != LaunchFailed || !errors.Is(o.Err, context.Canceled) {
		t.Fatalf("Launch = %v", o)
	}
	if h.started != 0 {
		t.Error("process started after cancellation")
	}
}

func TestNetResolverNonexistentHost(t *testing.T) {
	h := newHarness(t)
	l := New(
		WithStarter(func(string, []string) (Process, error) { return h.proc, nil }),
		WithWriterOpener(func(process.ProcessID) (Writer, error) { return h.writer, nil }),
		WithResolver(NetResolver{}),
	)

	req := h.request()
	req.Hostname = "nonexistent.invalid"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if o := l.Launch(ctx, req); o.Kind != HostnameUnresolved {
		t.Fatalf("Kind = %s, want HostnameUnresolved (%v)", o.Kind, o)
	}
}

func TestNetResolverLiterals(t *testing.T) {
	ip, err := NetResolver{}.LookupIPv4(context.Background(), "10.1.2.3")
	if err != nil || !ip.Equal(net.IPv4(10, 1, 2, 3)) {
		t.Errorf("LookupIPv4(10.1.2.3) = %v, %v", ip, err)
	}

	if _, err := (NetResolver{}).LookupIPv4(context.Background(), "::1"); !errors.Is(err, ErrNoIPv4Address) {
		t.Errorf("expected ErrNoIPv4Address for an IPv6 literal, got %v", err)
	}
}

func TestKindString(t *testing.T) {
	for k := Success; k <= VersionRejectedByServer; k++ {
		if strings.HasPrefix(k.String(), "Kind(") {
			t.Errorf("kind %d has no name", int(k))
		}
	}
	if Kind(99).String() != "Kind(99)" {
		t.Errorf("unexpected name for unknown kind: %s", Kind(99))
	}
}

func TestLaunchPassesArgs(t *testing.T) {
	h := newHarness(t)
	req := h.request()
	req.Args = []string{"-window", "Profile Two"}

	o := h.launcher.Launch(context.Background(), req)
	if !o.OK() {
		t.Fatalf("Launch = %v", o)
	}
	if len(h.args) != 2 || h.args[0] != "-window" || h.args[1] != "Profile Two" {
		t.Errorf("args = %q", h.args)
	}
}
