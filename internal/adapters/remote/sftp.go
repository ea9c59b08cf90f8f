package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"remote-file-manager/internal/domain"
)

// SFTPDialer открывает сессии к SFTP серверу.
type SFTPDialer struct {
	Addr           string
	User           string
	Password       string
	Timeout        time.Duration
	KnownHostsFile string
}

func NewSFTPDialer(host string, port int, user, password string, timeout time.Duration, knownHostsFile string) *SFTPDialer {
	return &SFTPDialer{
		Addr:           net.JoinHostPort(host, strconv.Itoa(port)),
		User:           user,
		Password:       password,
		Timeout:        timeout,
		KnownHostsFile: knownHostsFile,
	}
}

func (d *SFTPDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.KnownHostsFile == "" {
		logrus.Warn("remote.known_hosts_file is not set, SFTP host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return knownhosts.New(d.KnownHostsFile)
}

func (d *SFTPDialer) Dial(ctx context.Context) (domain.RemoteSession, error) {
	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	dialer := net.Dialer{Timeout: d.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, d.Addr, &ssh.ClientConfig{
		User:            d.User,
		Auth:            []ssh.AuthMethod{ssh.Password(d.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.Timeout,
	})
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", d.Addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("start sftp subsystem on %s: %w", d.Addr, err)
	}

	return &sftpSession{client: client, ssh: sshClient}, nil
}

type sftpSession struct {
	client *sftp.Client
	ssh    *ssh.Client
}

func (s *sftpSession) List(_ context.Context, dir string) ([]domain.FileEntry, error) {
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	return convertFileInfos(infos), nil
}

func convertFileInfos(infos []os.FileInfo) []domain.FileEntry {
	files := make([]domain.FileEntry, 0, len(infos))
	for _, fi := range infos {
		if fi.Name() == domain.PathCurrent || fi.Name() == domain.PathParent {
			continue
		}
		kind := domain.KindFile
		if fi.IsDir() {
			kind = domain.KindDirectory
		}
		files = append(files, domain.FileEntry{Name: fi.Name(), Kind: kind})
	}
	return files
}

func (s *sftpSession) Size(_ context.Context, p string) (int64, error) {
	info, err := s.client.Stat(p)
	if err != nil {
		return 0, mapSFTPError(err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory: %w", p, domain.ErrPathNotFound)
	}
	return info.Size(), nil
}

func (s *sftpSession) Retrieve(_ context.Context, p string, w io.Writer) error {
	f, err := s.client.Open(p)
	if err != nil {
		return mapSFTPError(err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logrus.Warnf("Failed to close remote file %s: %v", p, closeErr)
		}
	}()

	_, err = io.Copy(w, f)
	return err
}

func (s *sftpSession) Store(_ context.Context, p string, r io.Reader) error {
	f, err := s.client.Create(p)
	if err != nil {
		return mapSFTPError(err)
	}

	if _, copyErr := io.Copy(f, r); copyErr != nil {
		_ = f.Close()
		return copyErr
	}
	return f.Close()
}

func (s *sftpSession) MakeDir(_ context.Context, p string) error {
	return mapSFTPError(s.client.MkdirAll(p))
}

func (s *sftpSession) Rename(_ context.Context, from, to string) error {
	return mapSFTPError(s.client.Rename(from, to))
}

func (s *sftpSession) RemoveFile(_ context.Context, p string) error {
	return mapSFTPError(s.client.Remove(p))
}

func (s *sftpSession) RemoveDir(_ context.Context, p string) error {
	return mapSFTPError(s.client.RemoveDirectory(p))
}

func (s *sftpSession) Ping(_ context.Context) error {
	_, err := s.client.Getwd()
	return err
}

func (s *sftpSession) Close() error {
	return errors.Join(s.client.Close(), s.ssh.Close())
}

func mapSFTPError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", domain.ErrPathNotFound, err)
	}
	return err
}
