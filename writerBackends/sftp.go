package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"path"
	"time"

	"layercast/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sftpTarget is where and how a finished video is uploaded over SFTP.
type sftpTarget struct {
	addr       string
	user       string
	remotePath string
	auth       ssh.AuthMethod
	hostKey    ssh.HostKeyCallback
}

// parseSFTPTarget reads accessInfo. Required: host, user, and either
// remotePath or remoteDir (joined with folder and filename). Optional: port
// (default 22), privateKey (base64 or raw PEM) or password, hostKey
// (authorized_keys line; without it the host key is not checked).
func parseSFTPTarget(accessInfo map[string]string) (*sftpTarget, error) {
	host, user := accessInfo["host"], accessInfo["user"]
	remotePath := accessInfo["remotePath"]
	if remotePath == "" && accessInfo["remoteDir"] != "" {
		remotePath = path.Join(accessInfo["remoteDir"], accessInfo["folder"], accessInfo["filename"])
	}
	if host == "" || user == "" || remotePath == "" {
		return nil, fmt.Errorf("missing required accessInfo keys: host, user, remotePath or remoteDir")
	}
	if path.Base(remotePath) == "." || path.Base(remotePath) == "/" {
		return nil, fmt.Errorf("remote path %q names no file", remotePath)
	}

	port := accessInfo["port"]
	if port == "" {
		port = "22"
	}
	t := &sftpTarget{
		addr:       net.JoinHostPort(host, port),
		user:       user,
		remotePath: remotePath,
		hostKey:    ssh.InsecureIgnoreHostKey(),
	}

	if hk := accessInfo["hostKey"]; hk != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(hk))
		if err != nil {
			return nil, fmt.Errorf("parse host key: %w", err)
		}
		t.hostKey = ssh.FixedHostKey(pub)
	}

	switch {
	case accessInfo["privateKey"] != "":
		key := []byte(accessInfo["privateKey"])
		if raw, err := base64.StdEncoding.DecodeString(accessInfo["privateKey"]); err == nil {
			key = raw
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		t.auth = ssh.PublicKeys(signer)
	case accessInfo["password"] != "":
		t.auth = ssh.Password(accessInfo["password"])
	default:
		return nil, fmt.Errorf("no auth method provided; set password or privateKey in accessInfo")
	}
	return t, nil
}

// partialPath is the temporary remote name a video is written under before
// it is renamed into place.
func (t *sftpTarget) partialPath() string {
	dir, base := path.Split(t.remotePath)
	return path.Join(dir, "."+base+".partial")
}

func (t *sftpTarget) dial(ctx context.Context) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", t.addr, err)
	}
	cfg := &ssh.ClientConfig{
		User:            t.user,
		Auth:            []ssh.AuthMethod{t.auth},
		HostKeyCallback: t.hostKey,
		Timeout:         10 * time.Second,
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, t.addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", t.addr, err)
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

// UploadToSFTPWithCreds uploads a video over SFTP. The file is written to a
// hidden partial name and renamed once complete, so readers on the remote
// side never see a truncated video.
func UploadToSFTPWithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	t, err := parseSFTPTarget(accessInfo)
	if err != nil {
		return err
	}

	sshClient, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer client.Close()

	if dir := path.Dir(t.remotePath); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("ensure remote dir %s: %w", dir, err)
		}
	}

	partial := t.partialPath()
	f, err := client.Create(partial)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", partial, err)
	}
	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: reader})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		client.Remove(partial)
		return fmt.Errorf("copy to remote file %s: %w", partial, err)
	}

	if err := client.PosixRename(partial, t.remotePath); err != nil {
		// servers without the posix-rename extension
		client.Remove(t.remotePath)
		if err := client.Rename(partial, t.remotePath); err != nil {
			client.Remove(partial)
			return fmt.Errorf("rename %s to %s: %w", partial, t.remotePath, err)
		}
	}

	logger.Infof("Uploaded %d bytes to sftp://%s%s", n, t.addr, t.remotePath)
	return nil
}
