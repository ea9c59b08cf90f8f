package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/domain"
)

// FTPDialer открывает сессии к FTP серверу.
type FTPDialer struct {
	Addr        string
	User        string
	Password    string
	Timeout     time.Duration
	ExplicitTLS bool
	ServerName  string
}

func NewFTPDialer(host string, port int, user, password string, timeout time.Duration, explicitTLS bool) *FTPDialer {
	return &FTPDialer{
		Addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		User:        user,
		Password:    password,
		Timeout:     timeout,
		ExplicitTLS: explicitTLS,
		ServerName:  host,
	}
}

func (d *FTPDialer) Dial(ctx context.Context) (domain.RemoteSession, error) {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(d.Timeout),
	}
	if d.ExplicitTLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName: d.ServerName,
			MinVersion: tls.VersionTLS12,
		}))
	}

	conn, err := ftp.Dial(d.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Addr, err)
	}

	if loginErr := conn.Login(d.User, d.Password); loginErr != nil {
		if quitErr := conn.Quit(); quitErr != nil {
			logrus.Warnf("Failed to close FTP connection after login error: %v", quitErr)
		}
		return nil, fmt.Errorf("login to %s as %s: %w", d.Addr, d.User, loginErr)
	}

	return &ftpSession{conn: conn}, nil
}

type ftpSession struct {
	conn *ftp.ServerConn
}

func (s *ftpSession) List(_ context.Context, dir string) ([]domain.FileEntry, error) {
	if err := checkCommandArg(dir); err != nil {
		return nil, err
	}
	entries, err := s.conn.List(dir)
	if err != nil {
		return nil, mapFTPError(err)
	}
	return convertFTPEntries(entries), nil
}

// convertFTPEntries отбрасывает . и .., ссылки считаются файлами.
func convertFTPEntries(entries []*ftp.Entry) []domain.FileEntry {
	files := make([]domain.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == domain.PathCurrent || e.Name == domain.PathParent || e.Name == domain.PathEmpty {
			continue
		}
		kind := domain.KindFile
		if e.Type == ftp.EntryTypeFolder {
			kind = domain.KindDirectory
		}
		files = append(files, domain.FileEntry{Name: e.Name, Kind: kind})
	}
	return files
}

func (s *ftpSession) Size(_ context.Context, p string) (int64, error) {
	if err := checkCommandArg(p); err != nil {
		return 0, err
	}
	size, err := s.conn.FileSize(p)
	if err != nil {
		return 0, mapFTPError(err)
	}
	return size, nil
}

func (s *ftpSession) Retrieve(_ context.Context, p string, w io.Writer) error {
	if err := checkCommandArg(p); err != nil {
		return err
	}
	resp, err := s.conn.Retr(p)
	if err != nil {
		return mapFTPError(err)
	}
	defer func() {
		if closeErr := resp.Close(); closeErr != nil {
			logrus.Warnf("Failed to close FTP data connection for %s: %v", p, closeErr)
		}
	}()

	_, err = io.Copy(w, resp)
	return err
}

func (s *ftpSession) Store(_ context.Context, p string, r io.Reader) error {
	if err := checkCommandArg(p); err != nil {
		return err
	}
	return mapFTPError(s.conn.Stor(p, r))
}

// MakeDir создаёт каталог вместе с недостающими родителями. Уже существующие
// каталоги ошибкой не считаются.
func (s *ftpSession) MakeDir(_ context.Context, p string) error {
	if err := checkCommandArg(p); err != nil {
		return err
	}
	current := domain.PathRoot
	for _, part := range strings.Split(strings.Trim(p, domain.PathSeparator), domain.PathSeparator) {
		if part == domain.PathEmpty {
			continue
		}
		current = path.Join(current, part)
		if err := s.conn.MakeDir(current); err != nil {
			if cdErr := s.conn.ChangeDir(current); cdErr != nil {
				return mapFTPError(err)
			}
		}
	}
	return mapFTPError(s.conn.ChangeDir(domain.PathRoot))
}

func (s *ftpSession) Rename(_ context.Context, from, to string) error {
	if err := errors.Join(checkCommandArg(from), checkCommandArg(to)); err != nil {
		return err
	}
	return mapFTPError(s.conn.Rename(from, to))
}

func (s *ftpSession) RemoveFile(_ context.Context, p string) error {
	if err := checkCommandArg(p); err != nil {
		return err
	}
	return mapFTPError(s.conn.Delete(p))
}

func (s *ftpSession) RemoveDir(_ context.Context, p string) error {
	if err := checkCommandArg(p); err != nil {
		return err
	}
	return mapFTPError(s.conn.RemoveDir(p))
}

func (s *ftpSession) Ping(_ context.Context) error {
	return s.conn.NoOp()
}

func (s *ftpSession) Close() error {
	return s.conn.Quit()
}

// checkCommandArg путь уходит в управляющее соединение как есть, поэтому
// CR, LF и NUL в нём недопустимы.
func checkCommandArg(p string) error {
	if strings.ContainsAny(p, "\r\n\x00") {
		return fmt.Errorf("ftp argument %q contains line breaks: %w", p, domain.ErrPathTraversal)
	}
	return nil
}

// mapFTPError 550 означает, что файл или каталог недоступен.
func mapFTPError(err error) error {
	if err == nil {
		return nil
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable {
		return fmt.Errorf("%w: %w", domain.ErrPathNotFound, err)
	}
	return err
}
