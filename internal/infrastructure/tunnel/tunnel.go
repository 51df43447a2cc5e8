// Package tunnel forwards a local TCP port to a database behind an SSH bastion.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"NewsScanner/internal/domain"
)

// Config describes the bastion and the forwarded address.
type Config struct {
	Host           string
	User           string
	Password       string
	KeyFile        string
	KnownHostsFile string
	// RemoteAddr is dialled from the bastion, e.g. "10.0.0.5:27017".
	RemoteAddr string
	// LocalAddr defaults to 127.0.0.1:0.
	LocalAddr string
	Timeout   time.Duration
}

// Tunnel is an open local port forward.
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
	remote   string
	logger   *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open dials the bastion and starts forwarding connections accepted on LocalAddr.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Tunnel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" || cfg.User == "" || cfg.RemoteAddr == "" {
		return nil, fmt.Errorf("%w: tunnel needs host, user and remote address", domain.ErrConfig)
	}

	clientCfg, err := clientConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("dial bastion %s: %w", cfg.Host, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, cfg.Host, clientCfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", cfg.Host, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	local := cfg.LocalAddr
	if local == "" {
		local = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", local)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("listen %s: %w", local, err)
	}

	t := &Tunnel{client: client, listener: listener, remote: cfg.RemoteAddr, logger: logger}
	t.wg.Add(1)
	go t.acceptLoop()

	logger.Info("ssh tunnel open", "bastion", cfg.Host, "local", listener.Addr().String(), "remote", cfg.RemoteAddr)
	return t, nil
}

func clientConfig(cfg Config, logger *slog.Logger) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read ssh key: %v", domain.ErrConfig, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: parse ssh key: %v", domain.ErrConfig, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	var hostKey ssh.HostKeyCallback
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: known_hosts: %v", domain.ErrConfig, err)
		}
		hostKey = cb
	} else {
		logger.Warn("ssh host key verification disabled; set tunnel.known_hosts")
		hostKey = ssh.InsecureIgnoreHostKey()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

// LocalAddr is the address clients should connect to instead of the remote.
func (t *Tunnel) LocalAddr() string {
	return t.listener.Addr().String()
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				t.logger.Error("tunnel accept failed", "error", err)
			}
			return
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.client.Dial("tcp", t.remote)
	if err != nil {
		t.logger.Error("tunnel dial remote failed", "remote", t.remote, "error", err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	pipe := func(dst, src net.Conn) {
		_, _ = io.Copy(dst, src)
		done <- struct{}{}
	}
	go pipe(remote, local)
	go pipe(local, remote)
	<-done
}

// Close stops accepting, closes the SSH client and waits for forwarders to exit.
func (t *Tunnel) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = errors.Join(t.listener.Close(), t.client.Close())
		t.wg.Wait()
	})
	return err
}
