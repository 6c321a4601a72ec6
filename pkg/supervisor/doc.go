/*
Package supervisor starts the kernel NFS server stack inside a container and
keeps watching it for the container's lifetime.

# Lifecycle

	Configuring ──configured──▶ StartingUp ──mount daemon alive──▶ Running
	     │                        │   ▲                               │
	config failed          export │   │ attempt failed       mount daemon
	     │                 failed │   └───────┘                    died
	     ▼                        ▼                                   ▼
	   Failed ◀───────────────────┴───────────────────────────────────┘

	any non-final state ──signal──▶ ShuttingDown ──shutdown complete──▶ Terminated

Startup launches rpcbind, rpc.nfsd, loads the export table and launches
rpc.mountd, in that order, then checks that rpc.mountd is alive. A failed
attempt is retried after a fixed delay, forever: a misconfigured container
keeps trying until an operator fixes it. Only a rejected export table is
fatal during startup, since retrying cannot fix it.

Once running, the mount daemon is polled at a fixed interval. When it
disappears the supervisor fails instead of restarting it in place; the
container orchestrator owns the restart policy.

# Signals

Termination signals arrive as cancellation of the context passed to Run.
Every loop checks the context on each iteration and around each sleep, and
sleeps select on the context, so a signal is acted upon promptly in any
state. Shutdown is best-effort: each step logs its failure and moves on.

# Exit status

Run returns nil after a graceful shutdown and an error wrapping one of
ErrConfiguration, ErrExportFailed or ErrMountDaemonDied otherwise. ExitCode
maps that to the process exit status.
*/
package supervisor
