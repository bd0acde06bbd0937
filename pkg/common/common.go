package common

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
	NA       = "N/A"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// UUIDint64 generates a snowflake int64 identifier.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID generates a standard v4 UUID string.
func UUID() string {
	return uuid.New().String()
}

// UUIDHex returns the first n characters of an uppercase, dash-free v4 UUID.
// n <= 0 or n > 32 returns the full 32 characters.
func UUIDHex(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	if n > 0 && n < len(s) {
		return s[:n]
	}
	return s
}

func Sha256HashWithSalt(value, salt string) string {
	h := sha256.New()
	h.Write([]byte(value + salt))
	return hex.EncodeToString(h.Sum(nil))
}

func GetSecretSalt() string {
	if v := os.Getenv("WEBSTORE_SECRET_SALT"); v != "" {
		return v
	}
	return "webstore-default-salt"
}

func IsEmptyOrNA(v string) bool {
	return v == "" || v == NA
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
