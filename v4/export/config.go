// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mysqlbackup4go/backup4go/v4/archive"
	"github.com/mysqlbackup4go/backup4go/v4/notify"
	"github.com/mysqlbackup4go/backup4go/v4/storage"
	tf "github.com/pingcap/tidb-tools/pkg/table-filter"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Recognised option keys.
const (
	OptionDBName                   = "DB_NAME"
	OptionDBUsername               = "DB_USERNAME"
	OptionDBPassword               = "DB_PASSWORD"
	OptionDBHost                   = "DB_HOST"
	OptionDBPort                   = "DB_PORT"
	OptionJDBCConnectionString     = "JDBC_CONNECTION_STRING"
	OptionJDBCDriverName           = "JDBC_DRIVER_NAME"
	OptionTempDir                  = "TEMP_DIR"
	OptionSQLFileName              = "SQL_FILE_NAME"
	OptionAddIfNotExists           = "ADD_IF_NOT_EXISTS"
	OptionDropTables               = "DROP_TABLES"
	OptionDeleteExistingData       = "DELETE_EXISTING_DATA"
	OptionPreserveGeneratedZip     = "PRESERVE_GENERATED_ZIP"
	OptionPreserveGeneratedSQLFile = "PRESERVE_GENERATED_SQL_FILE"
	OptionArchiveFormat            = "ARCHIVE_FORMAT"
	OptionEscapeBackslash          = "ESCAPE_BACKSLASH"
	OptionTableFilter              = "TABLE_FILTER"

	OptionEmailHost     = "EMAIL_HOST"
	OptionEmailPort     = "EMAIL_PORT"
	OptionEmailUsername = "EMAIL_USERNAME"
	OptionEmailPassword = "EMAIL_PASSWORD"
	OptionEmailFrom     = "EMAIL_FROM"
	OptionEmailTo       = "EMAIL_TO"
	OptionEmailSubject  = "EMAIL_SUBJECT"
	OptionEmailMessage  = "EMAIL_MESSAGE"

	OptionS3Bucket         = "S3_BUCKET"
	OptionS3Region         = "S3_REGION"
	OptionS3Prefix         = "S3_PREFIX"
	OptionS3Endpoint       = "S3_ENDPOINT"
	OptionS3AccessKey      = "S3_ACCESS_KEY"
	OptionS3SecretKey      = "S3_SECRET_KEY"
	OptionS3ForcePathStyle = "S3_FORCE_PATH_STYLE"
)

const (
	defaultHost       = "localhost"
	defaultPort       = 3306
	defaultDriverName = "mysql"
	defaultTempDir    = "backup4go-temp"
	defaultEmailPort  = 25
)

// Config is the validated, read-only configuration of one export or import run.
type Config struct {
	Database         string
	User             string
	Password         string
	Host             string
	Port             int
	ConnectionString string
	DriverName       string

	TempDir     string
	SQLFileName string

	AddIfNotExists           bool
	DropTables               bool
	DeleteExistingData       bool
	PreserveGeneratedZip     bool
	PreserveGeneratedSQLFile bool
	EscapeBackslash          bool

	ArchiveFormat archive.Format
	TableFilter   tf.Filter

	Email notify.Config
	S3    storage.Config
}

// ConfigFromOptions validates options and builds a Config. All problems are
// reported together in one configuration error.
func ConfigFromOptions(options map[string]string) (*Config, error) {
	p := &optionParser{options: options}
	conf := &Config{
		User:             p.str(OptionDBUsername),
		Password:         p.str(OptionDBPassword),
		Host:             p.strOr(OptionDBHost, defaultHost),
		Port:             p.port(OptionDBPort, defaultPort),
		ConnectionString: p.str(OptionJDBCConnectionString),
		TempDir:          p.strOr(OptionTempDir, defaultTempDir),
		SQLFileName:      p.str(OptionSQLFileName),

		AddIfNotExists:           p.boolean(OptionAddIfNotExists, true),
		DropTables:               p.boolean(OptionDropTables, false),
		DeleteExistingData:       p.boolean(OptionDeleteExistingData, false),
		PreserveGeneratedZip:     p.boolean(OptionPreserveGeneratedZip, false),
		PreserveGeneratedSQLFile: p.boolean(OptionPreserveGeneratedSQLFile, false),
		EscapeBackslash:          p.boolean(OptionEscapeBackslash, true),

		Email: notify.Config{
			Host:     p.str(OptionEmailHost),
			Port:     p.port(OptionEmailPort, defaultEmailPort),
			Username: p.str(OptionEmailUsername),
			Password: p.str(OptionEmailPassword),
			From:     p.str(OptionEmailFrom),
			To:       p.str(OptionEmailTo),
			Subject:  p.str(OptionEmailSubject),
			Message:  p.str(OptionEmailMessage),
		},
		S3: storage.Config{
			Bucket:         p.str(OptionS3Bucket),
			Region:         p.str(OptionS3Region),
			Prefix:         p.str(OptionS3Prefix),
			Endpoint:       p.str(OptionS3Endpoint),
			AccessKey:      p.str(OptionS3AccessKey),
			SecretKey:      p.str(OptionS3SecretKey),
			ForcePathStyle: p.boolean(OptionS3ForcePathStyle, false),
		},
	}

	if conf.User == "" {
		p.fail(errors.Errorf("%s is required", OptionDBUsername))
	}
	if _, ok := options[OptionDBPassword]; !ok {
		p.fail(errors.Errorf("%s is required", OptionDBPassword))
	}

	conf.Database = p.str(OptionDBName)
	if conf.ConnectionString != "" {
		host, port, database, err := parseConnectionString(conf.ConnectionString)
		if err != nil {
			p.fail(err)
		} else {
			conf.Host, conf.Port = host, port
			if conf.Database == "" {
				conf.Database = database
			}
		}
	} else if conf.Database == "" {
		p.fail(errors.Errorf("one of %s or %s is required", OptionDBName, OptionJDBCConnectionString))
	}

	driverName, err := resolveDriverName(p.str(OptionJDBCDriverName))
	if err != nil {
		p.fail(err)
	}
	conf.DriverName = driverName

	format, err := archive.ParseFormat(p.str(OptionArchiveFormat))
	if err != nil {
		p.fail(errors.WithMessage(err, OptionArchiveFormat))
	}
	conf.ArchiveFormat = format

	tableFilter, err := ParseTableFilter(p.str(OptionTableFilter))
	if err != nil {
		p.fail(errors.WithMessage(err, OptionTableFilter))
	}
	conf.TableFilter = tableFilter

	if conf.S3.Enabled() && conf.S3.Region == "" && conf.S3.Endpoint == "" {
		p.fail(errors.Errorf("%s or %s is required when %s is set", OptionS3Region, OptionS3Endpoint, OptionS3Bucket))
	}

	if p.err != nil {
		return nil, NewError(ErrConfiguration, "", p.err)
	}
	return conf, nil
}

// ScriptOptions returns the rewrite options of the configuration.
func (conf *Config) ScriptOptions() ScriptOptions {
	return ScriptOptions{
		AddIfNotExists:     conf.AddIfNotExists,
		DropTables:         conf.DropTables,
		DeleteExistingData: conf.DeleteExistingData,
		EscapeBackslash:    conf.EscapeBackslash,
	}
}

// DSN returns the data source name of the configured database.
func (conf *Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = conf.User
	cfg.Passwd = conf.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))
	cfg.DBName = conf.Database
	cfg.MultiStatements = true
	cfg.ParseTime = false
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open opens a handle on the configured database.
func (conf *Config) Open() (*sql.DB, error) {
	db, err := sql.Open(conf.DriverName, conf.DSN())
	if err != nil {
		return nil, withStack(err)
	}
	return db, nil
}

// ExtractDatabaseName returns the database segment of a connection string
// of the form scheme://host:port/dbname[?params].
func ExtractDatabaseName(connString string) (string, error) {
	connString = strings.TrimSpace(connString)
	if connString == "" {
		return "", NewError(ErrConfiguration, "", errors.New("connection string is empty"))
	}
	if idx := strings.Index(connString, "?"); idx >= 0 {
		connString = connString[:idx]
	}
	slash := strings.LastIndex(connString, "/")
	// a slash that belongs to "//" starts the authority, so there is no path
	if slash < 0 || (slash > 0 && connString[slash-1] == '/') {
		return "", NewError(ErrConfiguration, "", errors.Errorf("no database path in connection string %q", connString))
	}
	database := connString[slash+1:]
	if database == "" {
		return "", NewError(ErrConfiguration, "", errors.Errorf("no database name in connection string %q", connString))
	}
	return database, nil
}

// parseConnectionString splits a jdbc style connection string. Query
// parameters are ignored since the driver would send them as session
// variables.
func parseConnectionString(connString string) (host string, port int, database string, err error) {
	database, err = ExtractDatabaseName(connString)
	if err != nil {
		return "", 0, "", err
	}
	u, err := url.Parse(strings.TrimPrefix(connString, "jdbc:"))
	if err != nil {
		return "", 0, "", errors.WithMessage(err, OptionJDBCConnectionString)
	}
	host, port = u.Hostname(), defaultPort
	if host == "" {
		return "", 0, "", errors.Errorf("no host in %s %q", OptionJDBCConnectionString, connString)
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, "", errors.Errorf("invalid port in %s %q", OptionJDBCConnectionString, connString)
		}
	}
	return host, port, database, nil
}

// resolveDriverName maps the configured driver onto a registered
// database/sql driver. Java driver class names of MySQL map to mysql.
func resolveDriverName(name string) (string, error) {
	if name == "" {
		return defaultDriverName, nil
	}
	if strings.Contains(name, ".") && strings.Contains(strings.ToLower(name), "mysql") {
		return defaultDriverName, nil
	}
	for _, registered := range sql.Drivers() {
		if registered == name {
			return name, nil
		}
	}
	return "", errors.Errorf("%s %q is not a registered driver", OptionJDBCDriverName, name)
}

type optionParser struct {
	options map[string]string
	err     error
}

func (p *optionParser) fail(err error) {
	p.err = multierr.Append(p.err, err)
}

func (p *optionParser) str(key string) string {
	return strings.TrimSpace(p.options[key])
}

func (p *optionParser) strOr(key, def string) string {
	if v := p.str(key); v != "" {
		return v
	}
	return def
}

func (p *optionParser) boolean(key string, def bool) bool {
	v := p.str(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(errors.Errorf("%s must be a boolean, got %q", key, v))
		return def
	}
	return b
}

func (p *optionParser) port(key string, def int) int {
	v := p.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		p.fail(errors.Errorf("%s must be a port number, got %q", key, v))
		return def
	}
	return n
}
