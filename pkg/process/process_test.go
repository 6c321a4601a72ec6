package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestBinariesCommandLines(t *testing.T) {
	b := DefaultBinaries()

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"port mapper", b.PortMapper(), "/sbin/rpcbind -w"},
		{"port mapper info", b.PortMapperInfo(), "/sbin/rpcinfo"},
		{"kernel server", b.KernelServer(), "/usr/sbin/rpc.nfsd --debug 8 --no-udp --no-nfs-version 2 --no-nfs-version 3"},
		{"drain", b.DrainKernelServer(), "/usr/sbin/rpc.nfsd 0"},
		{"reexport", b.Reexport(), "/usr/sbin/exportfs -rv"},
		{"list", b.ListExports(), "/usr/sbin/exportfs"},
		{"unexport", b.UnexportAll(), "/usr/sbin/exportfs -uav"},
		{"mount daemon", b.MountDaemon(), "/usr/sbin/rpc.mountd --debug all --no-udp --no-nfs-version 2 --no-nfs-version 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestBinariesDoNotShareArgs(t *testing.T) {
	b := DefaultBinaries()
	nfsd := b.KernelServer()
	mountd := b.MountDaemon()

	nfsd.Args[len(nfsd.Args)-1] = "4"
	assert.Equal(t, "3", mountd.Args[len(mountd.Args)-1])
	assert.Equal(t, "3", b.KernelServer().Args[len(nfsd.Args)-1])
}

func TestProcessName(t *testing.T) {
	b := DefaultBinaries()

	assert.Equal(t, NamePortMapper, b.PortMapper().ProcessName())
	assert.Equal(t, NameKernelServer, b.KernelServer().ProcessName())
	assert.Equal(t, NameMountDaemon, b.MountDaemon().ProcessName())
}

func TestParsePIDs(t *testing.T) {
	pids, err := parsePIDs("123 45\n")
	require.NoError(t, err)
	assert.Equal(t, []int{123, 45}, pids)

	pids, err = parsePIDs("")
	require.NoError(t, err)
	assert.Empty(t, pids)

	_, err = parsePIDs("12 abc")
	assert.Error(t, err)
}

func shellExit(code string) func(ctx context.Context, path, name string) ([]byte, error) {
	return func(ctx context.Context, path, name string) ([]byte, error) {
		return exec.CommandContext(ctx, "sh", "-c", "exit "+code).Output()
	}
}

func TestPidofProbe_NotFoundIsNotAnError(t *testing.T) {
	p := &PidofProbe{Path: "pidof", run: shellExit("1")}

	alive, err := p.IsAlive(context.Background(), NameMountDaemon)
	require.NoError(t, err)
	assert.False(t, alive)

	pids, err := p.PIDs(context.Background(), NameMountDaemon)
	require.NoError(t, err)
	assert.Empty(t, pids)
}

func TestPidofProbe_OtherExitCodesFail(t *testing.T) {
	p := &PidofProbe{Path: "pidof", run: shellExit("2")}

	alive, err := p.IsAlive(context.Background(), NameMountDaemon)
	assert.Error(t, err)
	assert.False(t, alive)
}

func TestPidofProbe_Found(t *testing.T) {
	var gotPath, gotName string
	p := &PidofProbe{Path: "/bin/pidof", run: func(_ context.Context, path, name string) ([]byte, error) {
		gotPath, gotName = path, name
		return []byte("812 44\n"), nil
	}}

	alive, err := p.IsAlive(context.Background(), NameMountDaemon)
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, "/bin/pidof", gotPath)
	assert.Equal(t, NameMountDaemon, gotName)

	pids, err := p.PIDs(context.Background(), NameMountDaemon)
	require.NoError(t, err)
	assert.Equal(t, []int{812, 44}, pids)
}

func TestProcfsProbe(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs is only available on linux")
	}

	p, err := NewProcfsProbe("/proc")
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)

	pids, err := p.PIDs(context.Background(), filepath.Base(exe))
	require.NoError(t, err)
	assert.Contains(t, pids, os.Getpid())

	alive, err := p.IsAlive(context.Background(), "no-such-daemon-for-tests")
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestNewProcfsProbe_BadMount(t *testing.T) {
	_, err := NewProcfsProbe(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSignalKiller_SkipsVanishedProcesses(t *testing.T) {
	var sent []int
	k := &SignalKiller{kill: func(pid int, sig syscall.Signal) error {
		sent = append(sent, pid)
		switch pid {
		case 2:
			return unix.ESRCH
		case 3:
			return unix.EPERM
		}
		return nil
	}}

	err := k.Signal([]int{1, 2, 3, 4}, syscall.SIGTERM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kill 3")
	assert.NotContains(t, err.Error(), "kill 2")
	assert.Equal(t, []int{1, 2, 3, 4}, sent)
}

func TestSignalKiller_NoPIDs(t *testing.T) {
	assert.NoError(t, NewSignalKiller().Signal(nil, syscall.SIGTERM))
}

func TestSignalKiller_Self(t *testing.T) {
	// Signal 0 only checks that the process exists.
	assert.NoError(t, NewSignalKiller().Signal([]int{os.Getpid()}, syscall.Signal(0)))
}

func TestExecRunner(t *testing.T) {
	r := NewExecRunner()
	r.Env = []string{"NFS_TEST_VALUE=exported"}

	out, err := r.Output(context.Background(), Command{Path: "sh", Args: []string{"-c", "echo $NFS_TEST_VALUE"}})
	require.NoError(t, err)
	assert.Equal(t, "exported\n", string(out))

	out, err = r.Output(context.Background(), Command{Path: "sh", Args: []string{"-c", "echo bad export; exit 1"}})
	require.Error(t, err)
	assert.Equal(t, "bad export\n", string(out))

	assert.NoError(t, r.Launch(context.Background(), Command{Path: "true"}))
	assert.Error(t, r.Launch(context.Background(), Command{Path: "false"}))
}
