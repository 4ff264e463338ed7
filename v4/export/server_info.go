// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/mysqlbackup4go/backup4go/v4/log"
	"go.uber.org/zap"
)

// ServerType represents the type of database server
type ServerType int8

const (
	// ServerTypeUnknown represents unknown server type
	ServerTypeUnknown ServerType = iota
	// ServerTypeMySQL represents MySQL server type
	ServerTypeMySQL
	// ServerTypeMariaDB represents MariaDB server type
	ServerTypeMariaDB
	// ServerTypeTiDB represents TiDB server type
	ServerTypeTiDB
)

var serverTypeString = []string{
	ServerTypeUnknown: "Unknown",
	ServerTypeMySQL:   "MySQL",
	ServerTypeMariaDB: "MariaDB",
	ServerTypeTiDB:    "TiDB",
}

func (s ServerType) String() string {
	if s < 0 || int(s) >= len(serverTypeString) {
		return serverTypeString[ServerTypeUnknown]
	}
	return serverTypeString[s]
}

// ServerInfo is the combination of ServerType and ServerVersion
type ServerInfo struct {
	ServerType    ServerType
	ServerVersion *semver.Version
	VersionString string
}

// String renders the info for the script header.
func (info ServerInfo) String() string {
	if info.ServerVersion == nil {
		return info.ServerType.String()
	}
	return info.ServerType.String() + " " + info.ServerVersion.String()
}

// ServerInfoUnknown is the server info used when detection fails
var ServerInfoUnknown = ServerInfo{
	ServerType:    ServerTypeUnknown,
	ServerVersion: nil,
}

var (
	versionRegex     = regexp.MustCompile(`^\d+\.\d+\.\d+([0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?`)
	tidbVersionRegex = regexp.MustCompile(`-[v]?\d+\.\d+\.\d+([0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?`)
)

// ParseServerInfo parses the result of SELECT version().
func ParseServerInfo(src string) ServerInfo {
	lowerCase := strings.ToLower(src)
	serverInfo := ServerInfo{VersionString: src}
	switch {
	case strings.Contains(lowerCase, "tidb"):
		serverInfo.ServerType = ServerTypeTiDB
	case strings.Contains(lowerCase, "mariadb"):
		serverInfo.ServerType = ServerTypeMariaDB
	case versionRegex.MatchString(lowerCase):
		serverInfo.ServerType = ServerTypeMySQL
	default:
		serverInfo.ServerType = ServerTypeUnknown
	}

	var versionStr string
	if serverInfo.ServerType == ServerTypeTiDB {
		versionStr = strings.TrimPrefix(strings.TrimPrefix(tidbVersionRegex.FindString(src), "-"), "v")
	} else {
		versionStr = versionRegex.FindString(src)
	}

	var err error
	serverInfo.ServerVersion, err = semver.NewVersion(versionStr)
	if err != nil {
		log.Warn("fail to parse version",
			zap.String("version", versionStr))
		serverInfo.ServerVersion = nil
	}
	return serverInfo
}

func detectServerInfo(ctx context.Context, db Querier) (ServerInfo, error) {
	versionStr, err := SelectVersion(ctx, db)
	if err != nil {
		return ServerInfoUnknown, err
	}
	return ParseServerInfo(versionStr), nil
}
