// Package hosts renders the TCP wrapper access-control files consulted by
// rpcbind and the NFS daemons.
//
// hosts.deny denies everything; hosts.allow lets the configured RPC services
// through for localhost, the configured networks and, optionally, every IPv4
// subnet the container is attached to.
package hosts

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/spf13/afero"
)

const (
	localhost = "127.0.0.1"
	denyAll   = "ALL: ALL\n"
)

// Config describes the access-control files.
type Config struct {
	// AllowFile is the hosts.allow location
	AllowFile string `mapstructure:"allow_file" yaml:"allow_file" validate:"required"`

	// DenyFile is the hosts.deny location
	DenyFile string `mapstructure:"deny_file" yaml:"deny_file" validate:"required"`

	// Allowed lists extra client patterns (address, network/netmask, ...)
	Allowed []string `mapstructure:"allowed" yaml:"allowed"`

	// AutoDetect adds the subnets of all up, non-loopback interfaces
	AutoDetect bool `mapstructure:"auto_detect" yaml:"auto_detect"`

	// Services are the daemon names the allow rule applies to
	Services []string `mapstructure:"services" yaml:"services" validate:"min=1"`
}

// DefaultServices are the RPC daemons covered by the allow rule.
func DefaultServices() []string {
	return []string{"rpcbind", "mountd", "nfsd", "statd", "lockd", "rquotad"}
}

// SubnetSource returns the networks the host is attached to.
type SubnetSource func() ([]*net.IPNet, error)

// InterfaceSubnets lists the IPv4 networks of every interface that is up and
// not a loopback.
func InterfaceSubnets() ([]*net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	var nets []*net.IPNet
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			logger.Warn("Skipping interface %s: %v", iface.Name, err)
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				nets = append(nets, ipNet)
			}
		}
	}
	return nets, nil
}

// FormatSubnet renders an IPv4 network in the network/netmask form TCP
// wrappers understand. It returns false for non-IPv4 networks.
func FormatSubnet(n *net.IPNet) (string, bool) {
	ip := n.IP.To4()
	if ip == nil || len(n.Mask) != net.IPv4len && len(n.Mask) != net.IPv6len {
		return "", false
	}
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	return fmt.Sprintf("%s/%s", ip.Mask(mask), net.IP(mask)), true
}

// Clients returns localhost, the configured patterns and the detected
// subnets, without duplicates and in that order.
func Clients(cfg Config, detect SubnetSource) ([]string, error) {
	clients := []string{localhost}
	seen := map[string]bool{localhost: true}

	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		clients = append(clients, c)
	}

	for _, c := range cfg.Allowed {
		add(strings.TrimSpace(c))
	}

	if cfg.AutoDetect && detect != nil {
		nets, err := detect()
		if err != nil {
			return nil, err
		}
		for _, n := range nets {
			if s, ok := FormatSubnet(n); ok {
				add(s)
			}
		}
	}

	return clients, nil
}

// RenderAllow returns the hosts.allow content.
func RenderAllow(cfg Config, detect SubnetSource) ([]byte, error) {
	clients, err := Clients(cfg, detect)
	if err != nil {
		return nil, err
	}
	line := fmt.Sprintf("%s : %s\n", strings.Join(cfg.Services, " "), strings.Join(clients, " "))
	return []byte(line), nil
}

// RenderDeny returns the hosts.deny content.
func RenderDeny() []byte {
	return []byte(denyAll)
}

// Generator writes both access-control files.
type Generator struct {
	fs     afero.Fs
	cfg    Config
	detect SubnetSource
}

// NewGenerator creates a Generator writing through fsys. detect is consulted
// only when auto detection is enabled; nil uses InterfaceSubnets.
func NewGenerator(fsys afero.Fs, cfg Config, detect SubnetSource) *Generator {
	if detect == nil {
		detect = InterfaceSubnets
	}
	return &Generator{fs: fsys, cfg: cfg, detect: detect}
}

// Paths returns the allow and deny file locations.
func (g *Generator) Paths() []string {
	return []string{g.cfg.AllowFile, g.cfg.DenyFile}
}

// Generate renders and writes hosts.allow and hosts.deny.
func (g *Generator) Generate() error {
	allow, err := RenderAllow(g.cfg, g.detect)
	if err != nil {
		return err
	}

	if err := g.write(g.cfg.AllowFile, allow); err != nil {
		return err
	}
	if err := g.write(g.cfg.DenyFile, RenderDeny()); err != nil {
		return err
	}

	logger.Info("Wrote access control files %s and %s", g.cfg.AllowFile, g.cfg.DenyFile)
	return nil
}

func (g *Generator) write(path string, data []byte) error {
	if err := g.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(g.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
