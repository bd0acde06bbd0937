package app

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// BackupDatabase exports the store tables as CSV files into a timestamped
// directory under the backup dir and returns the directory path. When SFTP
// backup is enabled the dump is also uploaded to the configured server.
func (a *Application) BackupDatabase() (string, error) {
	backupDir := filepath.Join(a.appConfig.GetBackupDir(), "webstore-"+time.Now().Format("20060102T150405"))
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup dir")
	}

	if err := a.exportStoreTables(backupDir); err != nil {
		return "", err
	}

	if a.GetSettingsBoolValue("backup", "enabled") {
		if err := a.uploadBackup(backupDir); err != nil {
			return backupDir, errors.Wrap(err, "sftp upload")
		}
	}

	zap.L().Info("database backup completed", zap.String("dir", backupDir))
	return backupDir, nil
}

func (a *Application) exportStoreTables(dir string) error {
	var products []domain.Product
	if err := a.gormDB.Find(&products).Error; err != nil {
		return errors.Wrap(err, "load products")
	}
	if err := writeCsvFile(filepath.Join(dir, "products.csv"), &products); err != nil {
		return err
	}

	var customers []domain.Customer
	if err := a.gormDB.Find(&customers).Error; err != nil {
		return errors.Wrap(err, "load customers")
	}
	if err := writeCsvFile(filepath.Join(dir, "customers.csv"), &customers); err != nil {
		return err
	}

	var orders []domain.Order
	if err := a.gormDB.Find(&orders).Error; err != nil {
		return errors.Wrap(err, "load orders")
	}
	if err := writeCsvFile(filepath.Join(dir, "orders.csv"), &orders); err != nil {
		return err
	}

	var items []domain.OrderItem
	if err := a.gormDB.Find(&items).Error; err != nil {
		return errors.Wrap(err, "load order items")
	}
	if err := writeCsvFile(filepath.Join(dir, "order_items.csv"), &items); err != nil {
		return err
	}

	var payments []domain.Payment
	if err := a.gormDB.Find(&payments).Error; err != nil {
		return errors.Wrap(err, "load payments")
	}
	return writeCsvFile(filepath.Join(dir, "payments.csv"), &payments)
}

func writeCsvFile(name string, rows interface{}) error {
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

// uploadBackup copies every file in dir to the configured SFTP server.
func (a *Application) uploadBackup(dir string) error {
	host := a.GetSettingsStringValue("backup", "sftp_host")
	port := a.GetSettingsInt64Value("backup", "sftp_port")
	username := a.GetSettingsStringValue("backup", "sftp_username")
	password := a.GetSettingsStringValue("backup", "sftp_password")
	remoteBase := a.GetSettingsStringValue("backup", "sftp_path")

	if host == "" || username == "" {
		return errors.New("sftp target not configured")
	}
	if port == 0 {
		port = 22
	}

	sshConfig := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", host, port), sshConfig)
	if err != nil {
		return errors.Wrap(err, "ssh dial")
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return errors.Wrap(err, "sftp client")
	}
	defer client.Close()

	remoteDir := path.Join(remoteBase, filepath.Base(dir))
	if err := client.MkdirAll(remoteDir); err != nil {
		return errors.Wrapf(err, "mkdir %s", remoteDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "read backup dir")
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := uploadFile(client, filepath.Join(dir, entry.Name()), path.Join(remoteDir, entry.Name())); err != nil {
			return err
		}
	}

	zap.L().Info("backup uploaded",
		zap.String("host", host),
		zap.String("remote_dir", remoteDir))
	return nil
}

func uploadFile(client *sftp.Client, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", localPath)
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "create remote %s", remotePath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "upload %s", remotePath)
	}
	return nil
}
