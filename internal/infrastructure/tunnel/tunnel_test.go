package tunnel

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"NewsScanner/internal/domain"
)

// startEchoServer answers each line with the same line.
func startEchoServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()
	return ln.Addr().String()
}

// startBastion runs a minimal SSH server that only honours direct-tcpip channels.
func startBastion(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == "crawler" && string(pass) == "secret" {
				return nil, nil
			}
			return nil, assert.AnError
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(conn, cfg)
		}
	}()
	return ln.Addr().String()
}

func serveSSH(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "direct-tcpip" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		var payload struct {
			DestAddr string
			DestPort uint32
			OrigAddr string
			OrigPort uint32
		}
		if err := ssh.Unmarshal(newCh.ExtraData(), &payload); err != nil {
			_ = newCh.Reject(ssh.ConnectionFailed, "bad payload")
			continue
		}
		target, err := net.Dial("tcp", net.JoinHostPort(payload.DestAddr, strconv.FormatUint(uint64(payload.DestPort), 10)))
		if err != nil {
			_ = newCh.Reject(ssh.ConnectionFailed, err.Error())
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			_ = target.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)
		go func() {
			defer ch.Close()
			defer target.Close()
			go func() { _, _ = io.Copy(target, ch) }()
			_, _ = io.Copy(ch, target)
		}()
	}
}

func TestTunnel_ForwardsTraffic(t *testing.T) {
	echo := startEchoServer(t)
	bastion := startBastion(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tun, err := Open(ctx, Config{
		Host:       bastion,
		User:       "crawler",
		Password:   "secret",
		RemoteAddr: echo,
	}, nil)
	require.NoError(t, err)
	defer tun.Close()

	conn, err := net.Dial("tcp", tun.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte("ping\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ping\n", line)
}

func TestTunnel_BadPassword(t *testing.T) {
	bastion := startBastion(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Open(ctx, Config{Host: bastion, User: "crawler", Password: "wrong", RemoteAddr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}

func TestTunnel_ConfigValidation(t *testing.T) {
	_, err := Open(context.Background(), Config{Host: "127.0.0.1:22"}, nil)
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = Open(context.Background(), Config{
		Host:       "127.0.0.1:22",
		User:       "crawler",
		RemoteAddr: "127.0.0.1:5432",
		KeyFile:    "/does/not/exist",
	}, nil)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestTunnel_CloseIsIdempotent(t *testing.T) {
	bastion := startBastion(t)

	tun, err := Open(context.Background(), Config{
		Host:       bastion,
		User:       "crawler",
		Password:   "secret",
		RemoteAddr: startEchoServer(t),
	}, nil)
	require.NoError(t, err)

	require.NoError(t, tun.Close())
	_ = tun.Close()
}
