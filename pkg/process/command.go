// Package process launches and inspects the external NFS server daemons.
//
// The daemons (rpcbind, rpc.nfsd, rpc.mountd) and the export table loader
// (exportfs) are opaque OS processes. This package only knows how to invoke
// them with fixed command lines, how to ask the OS whether one of them is
// alive, and how to signal them.
package process

import (
	"path/filepath"
	"strings"
)

// Logical names of the managed daemons. They double as the executable names
// looked up in the process table.
const (
	NamePortMapper   = "rpcbind"
	NameKernelServer = "rpc.nfsd"
	NameMountDaemon  = "rpc.mountd"
)

// Command is a fully specified invocation of an external binary.
type Command struct {
	// Path is the binary to execute
	Path string

	// Args are the arguments passed after the binary name
	Args []string
}

// ProcessName returns the executable name the command shows up as in the
// process table.
func (c Command) ProcessName() string {
	return filepath.Base(c.Path)
}

// String renders the command line for logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Binaries holds the locations of the NFS server stack executables.
//
// The command builders below encode the exact invocations the stack is
// started and stopped with. Only NFSv4 over TCP is served.
type Binaries struct {
	// RPCBind is the port mapper daemon
	RPCBind string `mapstructure:"rpcbind" yaml:"rpcbind" validate:"required"`

	// RPCInfo queries the port mapper, used as readiness check
	RPCInfo string `mapstructure:"rpcinfo" yaml:"rpcinfo" validate:"required"`

	// NFSd starts and drains the kernel NFS server
	NFSd string `mapstructure:"nfsd" yaml:"nfsd" validate:"required"`

	// Mountd is the mount daemon
	Mountd string `mapstructure:"mountd" yaml:"mountd" validate:"required"`

	// ExportFS loads and unloads the kernel export table
	ExportFS string `mapstructure:"exportfs" yaml:"exportfs" validate:"required"`
}

// DefaultBinaries returns the Alpine locations of the nfs-utils binaries.
func DefaultBinaries() Binaries {
	return Binaries{
		RPCBind:  "/sbin/rpcbind",
		RPCInfo:  "/sbin/rpcinfo",
		NFSd:     "/usr/sbin/rpc.nfsd",
		Mountd:   "/usr/sbin/rpc.mountd",
		ExportFS: "/usr/sbin/exportfs",
	}
}

var v4OnlyTCP = []string{"--no-udp", "--no-nfs-version", "2", "--no-nfs-version", "3"}

func withV4OnlyTCP(args ...string) []string {
	return append(args, v4OnlyTCP...)
}

// PortMapper starts rpcbind with the wait-for-ready flag.
func (b Binaries) PortMapper() Command {
	return Command{Path: b.RPCBind, Args: []string{"-w"}}
}

// PortMapperInfo lists the registered RPC programs; it succeeds once
// rpcbind answers.
func (b Binaries) PortMapperInfo() Command {
	return Command{Path: b.RPCInfo}
}

// KernelServer starts the kernel NFS server.
func (b Binaries) KernelServer() Command {
	return Command{Path: b.NFSd, Args: withV4OnlyTCP("--debug", "8")}
}

// DrainKernelServer sets the kernel server thread count to zero.
func (b Binaries) DrainKernelServer() Command {
	return Command{Path: b.NFSd, Args: []string{"0"}}
}

// Reexport validates and (re)loads the export table, verbosely.
func (b Binaries) Reexport() Command {
	return Command{Path: b.ExportFS, Args: []string{"-rv"}}
}

// ListExports prints the currently loaded export table.
func (b Binaries) ListExports() Command {
	return Command{Path: b.ExportFS}
}

// UnexportAll removes every export from the kernel table, verbosely.
func (b Binaries) UnexportAll() Command {
	return Command{Path: b.ExportFS, Args: []string{"-uav"}}
}

// MountDaemon starts rpc.mountd with full debugging.
func (b Binaries) MountDaemon() Command {
	return Command{Path: b.Mountd, Args: withV4OnlyTCP("--debug", "all")}
}
